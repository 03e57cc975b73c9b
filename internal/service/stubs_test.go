package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/course-market-api/internal/models"
	"github.com/noah-isme/course-market-api/internal/repository"
)

type recordingAudit struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, log *models.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

// memoryStore is a consistent in-memory catalog, ledger and grant store.
type memoryStore struct {
	mu        sync.Mutex
	seasons   map[string]models.Season
	episodes  map[string]models.Episode
	courses   map[string]models.Course
	purchases map[string]*models.Purchase
	grants    map[string]models.AccessGrant
	seq       int
	failGrant bool
	// users rejected by the grants foreign key
	unknownUsers map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		seasons:   map[string]models.Season{},
		episodes:  map[string]models.Episode{},
		courses:   map[string]models.Course{},
		purchases: map[string]*models.Purchase{},
		grants:    map[string]models.AccessGrant{},
	}
}

func (m *memoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryStore) addCourse(course models.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[course.ID] = course
}

func (m *memoryStore) addSeason(season models.Season) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seasons[season.ID] = season
}

func (m *memoryStore) addEpisode(episode models.Episode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes[episode.ID] = episode
}

func (m *memoryStore) GetSeason(ctx context.Context, id string) (*models.Season, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	season, ok := m.seasons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &season, nil
}

func (m *memoryStore) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	episode, ok := m.episodes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &episode, nil
}

func (m *memoryStore) GetCourseTree(ctx context.Context, courseID string) (*models.CourseTree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[courseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	var seasons []models.Season
	for _, s := range m.seasons {
		if s.CourseID == courseID {
			seasons = append(seasons, s)
		}
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].SeasonNumber < seasons[j].SeasonNumber })
	var episodes []models.Episode
	for _, e := range m.episodes {
		episodes = append(episodes, e)
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].EpisodeNumber < episodes[j].EpisodeNumber })
	return repository.BuildCourseTree(course, seasons, episodes), nil
}

func (m *memoryStore) ListCoursesWithGrants(ctx context.Context, userID string) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var courses []models.Course
	for _, g := range m.grants {
		if g.UserID != userID {
			continue
		}
		seasonID := g.ItemID
		if g.ItemType == models.ItemTypeEpisode {
			seasonID = m.episodes[g.ItemID].SeasonID
		}
		courseID := m.seasons[seasonID].CourseID
		if course, ok := m.courses[courseID]; ok && !seen[courseID] {
			seen[courseID] = true
			courses = append(courses, course)
		}
	}
	return courses, nil
}

func (m *memoryStore) Create(ctx context.Context, purchase *models.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if purchase.ID == "" {
		purchase.ID = m.nextID("purchase")
	}
	purchase.Status = models.PurchaseStatusPending
	purchase.CreatedAt = time.Now().UTC()
	copy := *purchase
	m.purchases[purchase.ID] = &copy
	return nil
}

func (m *memoryStore) GetByID(ctx context.Context, id string) (*models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *p
	return &copy, nil
}

func (m *memoryStore) List(ctx context.Context, filter models.PurchaseFilter) ([]models.PurchaseWithBuyer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.PurchaseWithBuyer
	for _, p := range m.purchases {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, p.Status) {
			continue
		}
		rows = append(rows, models.PurchaseWithBuyer{Purchase: *p, BuyerEmail: p.UserID + "@example.com"})
	}
	return rows, len(rows), nil
}

func (m *memoryStore) ListByUser(ctx context.Context, userID string) ([]models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Purchase
	for _, p := range m.purchases {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memoryStore) HasPending(ctx context.Context, userID string, ref models.ContentRef) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.purchases {
		if p.UserID == userID && p.ItemType == ref.Type() && p.ItemID == ref.ID() && p.Status == models.PurchaseStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) Settle(ctx context.Context, params models.SettlePurchaseParams) (*models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[params.PurchaseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !models.CanTransitionPurchase(p.Status, params.To) {
		return nil, repository.ErrPurchaseSettled
	}
	if params.Grant != nil && m.failGrant {
		return nil, errors.New("grant insert failed")
	}
	updated := *p
	updated.Status = params.To
	reviewer := params.ReviewerID
	now := time.Now().UTC()
	updated.ReviewedBy = &reviewer
	updated.ReviewedAt = &now
	updated.ReviewNote = params.Note
	if params.Grant != nil {
		purchaseID := p.ID
		grant := *params.Grant
		grant.ID = m.nextID("grant")
		grant.UserID = p.UserID
		grant.ItemType = p.ItemType
		grant.ItemID = p.ItemID
		grant.PurchaseID = &purchaseID
		m.grants[grant.ID] = grant
	}
	m.purchases[p.ID] = &updated
	copy := updated
	return &copy, nil
}

func (m *memoryStore) LoadSnapshot(ctx context.Context, userID string) (models.AccessSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var grants []models.AccessGrant
	for _, g := range m.grants {
		if g.UserID == userID {
			grants = append(grants, g)
		}
	}
	var pending []models.Purchase
	for _, p := range m.purchases {
		if p.UserID == userID && p.Status == models.PurchaseStatusPending {
			pending = append(pending, *p)
		}
	}
	return models.NewAccessSnapshot(grants, pending), nil
}

func (m *memoryStore) grantsFor(userID string) []models.AccessGrant {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AccessGrant
	for _, g := range m.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out
}

// memoryGrants adapts memoryStore to the grant store interface.
type memoryGrants struct{ *memoryStore }

func (g memoryGrants) Create(ctx context.Context, grant *models.AccessGrant) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unknownUsers[grant.UserID] {
		return fmt.Errorf("create access grant: %w", repository.ErrMissingParent)
	}
	if grant.ID == "" {
		grant.ID = g.nextID("grant")
	}
	g.grants[grant.ID] = *grant
	return nil
}

func (g memoryGrants) GetByID(ctx context.Context, id string) (*models.AccessGrant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	grant, ok := g.grants[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &grant, nil
}

func (g memoryGrants) Delete(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.grants[id]; !ok {
		return sql.ErrNoRows
	}
	delete(g.grants, id)
	return nil
}

func (g memoryGrants) ListByUser(ctx context.Context, userID string) ([]models.AccessGrant, error) {
	return g.grantsFor(userID), nil
}

func containsStatus(statuses []models.PurchaseStatus, status models.PurchaseStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// seedCourse builds course-1 with season-1 (price 500), a free preview
// episode ep-free and a paid episode ep-paid (price 150).
func seedCourse(m *memoryStore) {
	m.addCourse(models.Course{ID: "course-1", Title: "Fullstack Masterclass", Slug: "fullstack-masterclass", PriceStrategy: models.PriceStrategyPaid})
	m.addSeason(models.Season{ID: "season-1", CourseID: "course-1", Title: "Season 1", SeasonNumber: 1, Price: "500"})
	m.addEpisode(models.Episode{ID: "ep-free", SeasonID: "season-1", Title: "Intro", EpisodeNumber: 1, IsPreview: true, Price: "0", VideoProvider: "VIMEO", VideoRef: "111"})
	m.addEpisode(models.Episode{ID: "ep-paid", SeasonID: "season-1", Title: "Deep dive", EpisodeNumber: 2, Price: "150", VideoProvider: "VIMEO", VideoRef: "222"})
}
