package handler

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/course-market-api/internal/models"
	"github.com/noah-isme/course-market-api/internal/repository"
)

// marketStore keeps catalog, ledger and grants in memory behind one lock so
// settlement is atomic the way the SQL transaction is.
type marketStore struct {
	mu        sync.Mutex
	courses   map[string]models.Course
	seasons   map[string]models.Season
	episodes  map[string]models.Episode
	purchases map[string]models.Purchase
	grants    map[string]models.AccessGrant
	seq       int
}

func newMarketStore() *marketStore {
	s := &marketStore{
		courses:   map[string]models.Course{},
		seasons:   map[string]models.Season{},
		episodes:  map[string]models.Episode{},
		purchases: map[string]models.Purchase{},
		grants:    map[string]models.AccessGrant{},
	}
	s.courses["course-1"] = models.Course{ID: "course-1", Title: "Fullstack Masterclass", Slug: "fullstack-masterclass", PriceStrategy: models.PriceStrategyPaid}
	s.seasons["season-1"] = models.Season{ID: "season-1", CourseID: "course-1", Title: "Getting Started", SeasonNumber: 1, Price: "500"}
	s.episodes["ep-1"] = models.Episode{ID: "ep-1", SeasonID: "season-1", Title: "Introduction", EpisodeNumber: 1, IsPreview: true, Price: "0", VideoProvider: "VIMEO", VideoRef: "123456789"}
	s.episodes["ep-2"] = models.Episode{ID: "ep-2", SeasonID: "season-1", Title: "Setup", EpisodeNumber: 2, Price: "150", VideoProvider: "VIMEO", VideoRef: "987654321"}
	return s
}

func (s *marketStore) id(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *marketStore) GetSeason(ctx context.Context, id string) (*models.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	season, ok := s.seasons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &season, nil
}

func (s *marketStore) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	episode, ok := s.episodes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &episode, nil
}

func (s *marketStore) GetCourseTree(ctx context.Context, courseID string) (*models.CourseTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courses[courseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	var seasons []models.Season
	for _, season := range s.seasons {
		if season.CourseID == courseID {
			seasons = append(seasons, season)
		}
	}
	var episodes []models.Episode
	for _, ep := range s.episodes {
		episodes = append(episodes, ep)
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].EpisodeNumber < episodes[j].EpisodeNumber })
	return repository.BuildCourseTree(course, seasons, episodes), nil
}

func (s *marketStore) ListCoursesWithGrants(ctx context.Context, userID string) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grants {
		if g.UserID == userID {
			return []models.Course{s.courses["course-1"]}, nil
		}
	}
	return nil, nil
}

func (s *marketStore) LoadSnapshot(ctx context.Context, userID string) (models.AccessSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var grants []models.AccessGrant
	for _, g := range s.grants {
		if g.UserID == userID {
			grants = append(grants, g)
		}
	}
	var pending []models.Purchase
	for _, p := range s.purchases {
		if p.UserID == userID {
			pending = append(pending, p)
		}
	}
	return models.NewAccessSnapshot(grants, pending), nil
}

func (s *marketStore) Create(ctx context.Context, purchase *models.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	purchase.ID = s.id("purchase")
	purchase.Status = models.PurchaseStatusPending
	purchase.CreatedAt = time.Now().UTC()
	s.purchases[purchase.ID] = *purchase
	return nil
}

func (s *marketStore) GetByID(ctx context.Context, id string) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (s *marketStore) List(ctx context.Context, filter models.PurchaseFilter) ([]models.PurchaseWithBuyer, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.PurchaseWithBuyer
	for _, p := range s.purchases {
		match := len(filter.Statuses) == 0
		for _, st := range filter.Statuses {
			match = match || st == p.Status
		}
		if match {
			rows = append(rows, models.PurchaseWithBuyer{Purchase: p, BuyerName: "User", BuyerEmail: "user@example.com"})
		}
	}
	return rows, len(rows), nil
}

func (s *marketStore) ListByUser(ctx context.Context, userID string) ([]models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Purchase
	for _, p := range s.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *marketStore) HasPending(ctx context.Context, userID string, ref models.ContentRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.UserID == userID && p.ItemType == ref.Type() && p.ItemID == ref.ID() && p.Status == models.PurchaseStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *marketStore) Settle(ctx context.Context, params models.SettlePurchaseParams) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[params.PurchaseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !models.CanTransitionPurchase(p.Status, params.To) {
		return nil, repository.ErrPurchaseSettled
	}
	reviewer := params.ReviewerID
	now := time.Now().UTC()
	p.Status = params.To
	p.ReviewedBy = &reviewer
	p.ReviewedAt = &now
	p.ReviewNote = params.Note
	if params.Grant != nil {
		purchaseID := p.ID
		grant := *params.Grant
		grant.ID = s.id("grant")
		grant.UserID = p.UserID
		grant.ItemType = p.ItemType
		grant.ItemID = p.ItemID
		grant.PurchaseID = &purchaseID
		s.grants[grant.ID] = grant
	}
	s.purchases[p.ID] = p
	return &p, nil
}

func (s *marketStore) grantCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.grants {
		if g.UserID == userID {
			n++
		}
	}
	return n
}

// marketGrants exposes the grant half of marketStore.
type marketGrants struct{ *marketStore }

func (g marketGrants) Create(ctx context.Context, grant *models.AccessGrant) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	grant.ID = g.id("grant")
	g.grants[grant.ID] = *grant
	return nil
}

func (g marketGrants) GetByID(ctx context.Context, id string) (*models.AccessGrant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	grant, ok := g.grants[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &grant, nil
}

func (g marketGrants) Delete(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.grants[id]; !ok {
		return sql.ErrNoRows
	}
	delete(g.grants, id)
	return nil
}

func (g marketGrants) ListByUser(ctx context.Context, userID string) ([]models.AccessGrant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.AccessGrant
	for _, grant := range g.grants {
		if grant.UserID == userID {
			out = append(out, grant)
		}
	}
	return out, nil
}
