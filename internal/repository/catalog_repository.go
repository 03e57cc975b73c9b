package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-market-api/internal/models"
)

const (
	courseColumns  = `id, category_id, title, slug, description, thumbnail_url, instructor_name, price_strategy, created_at`
	seasonColumns  = `id, course_id, title, season_number, price, created_at`
	episodeColumns = `id, season_id, title, episode_number, description, duration_sec, is_preview, price, video_provider, video_ref, created_at`
)

// CatalogRepository provides access to categories, courses, seasons and episodes.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a catalog repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCategories returns all categories ordered by name.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	const query = `SELECT id, name, slug FROM categories ORDER BY name ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategory fetches a category by id.
func (r *CatalogRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	const query = `SELECT id, name, slug FROM categories WHERE id = $1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, translateReadError(err)
	}
	return &category, nil
}

// CreateCategory inserts a category.
func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	const query = `INSERT INTO categories (id, name, slug) VALUES (:id, :name, :slug)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return translateWriteError("create category", err, false)
	}
	return nil
}

// UpdateCategory updates a category's name and slug.
func (r *CatalogRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	const query = `UPDATE categories SET name = :name, slug = :slug WHERE id = :id`
	return r.namedExecAffecting(ctx, query, category, "update category")
}

// DeleteCategory removes a category.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.execAffecting(ctx, `DELETE FROM categories WHERE id = $1`, id, "delete category")
}

// ListCourses returns courses filtered by category and free text search.
func (r *CatalogRepository) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT " + courseColumns + " FROM courses")

	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", len(args), len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// GetCourse fetches a course by id.
func (r *CatalogRepository) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE id = $1"
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, translateReadError(err)
	}
	return &course, nil
}

// GetCourseBySlug fetches a course by its unique slug.
func (r *CatalogRepository) GetCourseBySlug(ctx context.Context, slug string) (*models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE slug = $1"
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, slug); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse inserts a course.
func (r *CatalogRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	if course.PriceStrategy == "" {
		course.PriceStrategy = models.PriceStrategyPaid
	}
	const query = `INSERT INTO courses (id, category_id, title, slug, description, thumbnail_url, instructor_name, price_strategy, created_at)
VALUES (:id, :category_id, :title, :slug, :description, :thumbnail_url, :instructor_name, :price_strategy, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return translateWriteError("create course", err, false)
	}
	return nil
}

// UpdateCourse updates a course's mutable fields.
func (r *CatalogRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	const query = `UPDATE courses SET category_id = :category_id, title = :title, slug = :slug, description = :description,
thumbnail_url = :thumbnail_url, instructor_name = :instructor_name, price_strategy = :price_strategy WHERE id = :id`
	return r.namedExecAffecting(ctx, query, course, "update course")
}

// DeleteCourse removes a course together with its seasons and episodes.
func (r *CatalogRepository) DeleteCourse(ctx context.Context, id string) error {
	return r.execAffecting(ctx, `DELETE FROM courses WHERE id = $1`, id, "delete course")
}

// ListSeasons returns the seasons of a course ordered by season number.
func (r *CatalogRepository) ListSeasons(ctx context.Context, courseID string) ([]models.Season, error) {
	query := "SELECT " + seasonColumns + " FROM seasons WHERE course_id = $1 ORDER BY season_number ASC"
	var seasons []models.Season
	if err := r.db.SelectContext(ctx, &seasons, query, courseID); err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	return seasons, nil
}

// GetSeason fetches a season by id.
func (r *CatalogRepository) GetSeason(ctx context.Context, id string) (*models.Season, error) {
	query := "SELECT " + seasonColumns + " FROM seasons WHERE id = $1"
	var season models.Season
	if err := r.db.GetContext(ctx, &season, query, id); err != nil {
		return nil, translateReadError(err)
	}
	return &season, nil
}

// CreateSeason inserts a season.
func (r *CatalogRepository) CreateSeason(ctx context.Context, season *models.Season) error {
	if season.ID == "" {
		season.ID = uuid.NewString()
	}
	if season.CreatedAt.IsZero() {
		season.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO seasons (id, course_id, title, season_number, price, created_at)
VALUES (:id, :course_id, :title, :season_number, :price, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, season); err != nil {
		return translateWriteError("create season", err, false)
	}
	return nil
}

// UpdateSeason updates a season's mutable fields.
func (r *CatalogRepository) UpdateSeason(ctx context.Context, season *models.Season) error {
	const query = `UPDATE seasons SET title = :title, season_number = :season_number, price = :price WHERE id = :id`
	return r.namedExecAffecting(ctx, query, season, "update season")
}

// DeleteSeason removes a season and its episodes.
func (r *CatalogRepository) DeleteSeason(ctx context.Context, id string) error {
	return r.execAffecting(ctx, `DELETE FROM seasons WHERE id = $1`, id, "delete season")
}

// ListEpisodesByCourse returns every episode of a course ordered by episode number.
func (r *CatalogRepository) ListEpisodesByCourse(ctx context.Context, courseID string) ([]models.Episode, error) {
	query := `SELECT e.id, e.season_id, e.title, e.episode_number, e.description, e.duration_sec, e.is_preview, e.price,
e.video_provider, e.video_ref, e.created_at
FROM episodes e JOIN seasons s ON s.id = e.season_id
WHERE s.course_id = $1
ORDER BY s.season_number ASC, e.episode_number ASC`
	var episodes []models.Episode
	if err := r.db.SelectContext(ctx, &episodes, query, courseID); err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	return episodes, nil
}

// GetEpisode fetches an episode by id.
func (r *CatalogRepository) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	query := "SELECT " + episodeColumns + " FROM episodes WHERE id = $1"
	var episode models.Episode
	if err := r.db.GetContext(ctx, &episode, query, id); err != nil {
		return nil, translateReadError(err)
	}
	return &episode, nil
}

// CreateEpisode inserts an episode.
func (r *CatalogRepository) CreateEpisode(ctx context.Context, episode *models.Episode) error {
	if episode.ID == "" {
		episode.ID = uuid.NewString()
	}
	if episode.CreatedAt.IsZero() {
		episode.CreatedAt = time.Now().UTC()
	}
	if episode.VideoProvider == "" {
		episode.VideoProvider = models.DefaultVideoProvider
	}
	const query = `INSERT INTO episodes (id, season_id, title, episode_number, description, duration_sec, is_preview, price, video_provider, video_ref, created_at)
VALUES (:id, :season_id, :title, :episode_number, :description, :duration_sec, :is_preview, :price, :video_provider, :video_ref, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, episode); err != nil {
		return translateWriteError("create episode", err, false)
	}
	return nil
}

// UpdateEpisode updates an episode's mutable fields.
func (r *CatalogRepository) UpdateEpisode(ctx context.Context, episode *models.Episode) error {
	const query = `UPDATE episodes SET title = :title, episode_number = :episode_number, description = :description,
duration_sec = :duration_sec, is_preview = :is_preview, price = :price, video_provider = :video_provider, video_ref = :video_ref
WHERE id = :id`
	return r.namedExecAffecting(ctx, query, episode, "update episode")
}

// DeleteEpisode removes an episode.
func (r *CatalogRepository) DeleteEpisode(ctx context.Context, id string) error {
	return r.execAffecting(ctx, `DELETE FROM episodes WHERE id = $1`, id, "delete episode")
}

// GetCourseTree loads a course with its seasons and episodes.
func (r *CatalogRepository) GetCourseTree(ctx context.Context, courseID string) (*models.CourseTree, error) {
	course, err := r.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	seasons, err := r.ListSeasons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	episodes, err := r.ListEpisodesByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return BuildCourseTree(*course, seasons, episodes), nil
}

// ListCoursesWithGrants returns courses in which the user holds at least one
// season or episode grant.
func (r *CatalogRepository) ListCoursesWithGrants(ctx context.Context, userID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.category_id, c.title, c.slug, c.description, c.thumbnail_url, c.instructor_name, c.price_strategy, c.created_at
FROM courses c
WHERE EXISTS (
	SELECT 1 FROM access_grants g JOIN seasons s ON g.item_type = 'SEASON' AND g.item_id = s.id
	WHERE g.user_id = $1 AND s.course_id = c.id
) OR EXISTS (
	SELECT 1 FROM access_grants g JOIN episodes e ON g.item_type = 'EPISODE' AND g.item_id = e.id
	JOIN seasons s ON s.id = e.season_id
	WHERE g.user_id = $1 AND s.course_id = c.id
)
ORDER BY c.title ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list granted courses: %w", err)
	}
	return courses, nil
}

// BuildCourseTree nests episodes under their seasons, preserving input order.
func BuildCourseTree(course models.Course, seasons []models.Season, episodes []models.Episode) *models.CourseTree {
	bySeason := make(map[string][]models.Episode, len(seasons))
	for _, ep := range episodes {
		bySeason[ep.SeasonID] = append(bySeason[ep.SeasonID], ep)
	}
	tree := &models.CourseTree{Course: course, Seasons: make([]models.SeasonTree, 0, len(seasons))}
	for _, season := range seasons {
		tree.Seasons = append(tree.Seasons, models.SeasonTree{Season: season, Episodes: bySeason[season.ID]})
	}
	return tree
}

func (r *CatalogRepository) namedExecAffecting(ctx context.Context, query string, arg interface{}, op string) error {
	result, err := r.db.NamedExecContext(ctx, query, arg)
	if isMalformedID(err) {
		return sql.ErrNoRows
	}
	if err != nil {
		return translateWriteError(op, err, false)
	}
	return checkAffected(result, op)
}

func (r *CatalogRepository) execAffecting(ctx context.Context, query, id, op string) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if isMalformedID(err) {
		return sql.ErrNoRows
	}
	if err != nil {
		return translateWriteError(op, err, true)
	}
	return checkAffected(result, op)
}

func checkAffected(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
