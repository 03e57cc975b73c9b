package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/dto"
	"github.com/noah-isme/course-market-api/internal/models"
	"github.com/noah-isme/course-market-api/internal/repository"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

type catalogRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) error
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	GetCourseBySlug(ctx context.Context, slug string) (*models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id string) error
	GetSeason(ctx context.Context, id string) (*models.Season, error)
	CreateSeason(ctx context.Context, season *models.Season) error
	UpdateSeason(ctx context.Context, season *models.Season) error
	DeleteSeason(ctx context.Context, id string) error
	GetEpisode(ctx context.Context, id string) (*models.Episode, error)
	CreateEpisode(ctx context.Context, episode *models.Episode) error
	UpdateEpisode(ctx context.Context, episode *models.Episode) error
	DeleteEpisode(ctx context.Context, id string) error
	GetCourseTree(ctx context.Context, courseID string) (*models.CourseTree, error)
}

// CatalogService serves the public catalog and admin catalog management.
type CatalogService struct {
	repo      catalogRepository
	cache     *CatalogCache
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs the catalog service. cache may be nil.
func NewCatalogService(repo catalogRepository, cache *CatalogCache, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger}
}

// ListCategories returns every category.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	if cached, ok := s.cache.Categories(ctx); ok {
		return cached, nil
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	if categories == nil {
		categories = []models.Category{}
	}
	s.cache.StoreCategories(ctx, categories)
	return categories, nil
}

// ListCourses returns courses matching the filter.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if cached, ok := s.cache.Courses(ctx, filter); ok {
		return cached, nil
	}
	courses, err := s.repo.ListCourses(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	s.cache.StoreCourses(ctx, filter, courses)
	return courses, nil
}

// GetCourseDetail returns the public course page by slug.
func (s *CatalogService) GetCourseDetail(ctx context.Context, courseSlug string) (*dto.CourseDetail, error) {
	if cached, ok := s.cache.CourseDetail(ctx, courseSlug); ok {
		return cached, nil
	}
	course, err := s.repo.GetCourseBySlug(ctx, courseSlug)
	if err != nil {
		return nil, mapLookupError(err, "course not found", "failed to load course")
	}
	tree, err := s.repo.GetCourseTree(ctx, course.ID)
	if err != nil {
		return nil, mapLookupError(err, "course not found", "failed to load course")
	}
	detail := dto.NewCourseDetail(*tree)
	s.cache.StoreCourseDetail(ctx, courseSlug, detail)
	return &detail, nil
}

// GetCourseTree returns the full tree for admins, video fields included.
func (s *CatalogService) GetCourseTree(ctx context.Context, courseID string) (*models.CourseTree, error) {
	tree, err := s.repo.GetCourseTree(ctx, courseID)
	if err != nil {
		return nil, mapLookupError(err, "course not found", "failed to load course")
	}
	return tree, nil
}

// CreateCategory adds a category.
func (s *CatalogService) CreateCategory(ctx context.Context, req dto.CategoryRequest, actorID string) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category := &models.Category{Name: strings.TrimSpace(req.Name), Slug: slugOr(req.Slug, req.Name)}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, mapWriteError(err, "category", "failed to create category")
	}
	s.cache.CategoriesChanged(ctx)
	s.recordChange(ctx, actorID, "categories", category.ID, category)
	return category, nil
}

// UpdateCategory renames a category.
func (s *CatalogService) UpdateCategory(ctx context.Context, id string, req dto.CategoryRequest, actorID string) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category := &models.Category{ID: id, Name: strings.TrimSpace(req.Name), Slug: slugOr(req.Slug, req.Name)}
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return nil, mapWriteError(err, "category", "failed to update category")
	}
	s.cache.CategoriesChanged(ctx)
	s.recordChange(ctx, actorID, "categories", id, category)
	return category, nil
}

// DeleteCategory removes an unused category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id, actorID string) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return mapWriteError(err, "category", "failed to delete category")
	}
	s.cache.CategoriesChanged(ctx)
	s.recordChange(ctx, actorID, "categories", id, nil)
	return nil
}

// CreateCourse adds a course.
func (s *CatalogService) CreateCourse(ctx context.Context, req dto.CourseRequest, actorID string) (*models.Course, error) {
	course, err := s.courseFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, mapWriteError(err, "course", "failed to create course")
	}
	s.cache.CoursesChanged(ctx, course.Slug)
	s.recordChange(ctx, actorID, "courses", course.ID, course)
	return course, nil
}

// UpdateCourse replaces a course's mutable fields.
func (s *CatalogService) UpdateCourse(ctx context.Context, id string, req dto.CourseRequest, actorID string) (*models.Course, error) {
	existing, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "course not found", "failed to load course")
	}
	course, err := s.courseFromRequest(req)
	if err != nil {
		return nil, err
	}
	course.ID = existing.ID
	course.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateCourse(ctx, course); err != nil {
		return nil, mapWriteError(err, "course", "failed to update course")
	}
	s.cache.CoursesChanged(ctx, existing.Slug, course.Slug)
	s.recordChange(ctx, actorID, "courses", id, course)
	return course, nil
}

// DeleteCourse removes a course with its seasons and episodes.
func (s *CatalogService) DeleteCourse(ctx context.Context, id, actorID string) error {
	existing, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return mapLookupError(err, "course not found", "failed to load course")
	}
	if err := s.repo.DeleteCourse(ctx, id); err != nil {
		return mapWriteError(err, "course", "failed to delete course")
	}
	s.cache.CoursesChanged(ctx, existing.Slug)
	s.recordChange(ctx, actorID, "courses", id, nil)
	return nil
}

// CreateSeason adds a season to a course.
func (s *CatalogService) CreateSeason(ctx context.Context, courseID string, req dto.SeasonRequest, actorID string) (*models.Season, error) {
	if err := s.validateSeason(req); err != nil {
		return nil, err
	}
	season := &models.Season{CourseID: courseID, Title: strings.TrimSpace(req.Title), SeasonNumber: req.SeasonNumber, Price: strings.TrimSpace(req.Price)}
	if err := s.repo.CreateSeason(ctx, season); err != nil {
		return nil, mapWriteError(err, "season", "failed to create season")
	}
	s.cache.CourseContentChanged(ctx, s.courseSlug(ctx, courseID))
	s.recordChange(ctx, actorID, "seasons", season.ID, season)
	return season, nil
}

// UpdateSeason replaces a season's mutable fields.
func (s *CatalogService) UpdateSeason(ctx context.Context, id string, req dto.SeasonRequest, actorID string) (*models.Season, error) {
	if err := s.validateSeason(req); err != nil {
		return nil, err
	}
	season, err := s.repo.GetSeason(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "season not found", "failed to load season")
	}
	season.Title = strings.TrimSpace(req.Title)
	season.SeasonNumber = req.SeasonNumber
	season.Price = strings.TrimSpace(req.Price)
	if err := s.repo.UpdateSeason(ctx, season); err != nil {
		return nil, mapWriteError(err, "season", "failed to update season")
	}
	s.cache.CourseContentChanged(ctx, s.courseSlug(ctx, season.CourseID))
	s.recordChange(ctx, actorID, "seasons", id, season)
	return season, nil
}

// DeleteSeason removes a season and its episodes.
func (s *CatalogService) DeleteSeason(ctx context.Context, id, actorID string) error {
	courseSlug := s.seasonCourseSlug(ctx, id)
	if err := s.repo.DeleteSeason(ctx, id); err != nil {
		return mapWriteError(err, "season", "failed to delete season")
	}
	s.cache.CourseContentChanged(ctx, courseSlug)
	s.recordChange(ctx, actorID, "seasons", id, nil)
	return nil
}

// CreateEpisode adds an episode to a season.
func (s *CatalogService) CreateEpisode(ctx context.Context, seasonID string, req dto.EpisodeRequest, actorID string) (*models.Episode, error) {
	if err := s.validateEpisode(req); err != nil {
		return nil, err
	}
	episode := &models.Episode{SeasonID: seasonID}
	applyEpisodeRequest(episode, req)
	if err := s.repo.CreateEpisode(ctx, episode); err != nil {
		return nil, mapWriteError(err, "episode", "failed to create episode")
	}
	s.cache.CourseContentChanged(ctx, s.seasonCourseSlug(ctx, seasonID))
	s.recordChange(ctx, actorID, "episodes", episode.ID, episode)
	return episode, nil
}

// UpdateEpisode replaces an episode's mutable fields.
func (s *CatalogService) UpdateEpisode(ctx context.Context, id string, req dto.EpisodeRequest, actorID string) (*models.Episode, error) {
	if err := s.validateEpisode(req); err != nil {
		return nil, err
	}
	episode, err := s.repo.GetEpisode(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "episode not found", "failed to load episode")
	}
	applyEpisodeRequest(episode, req)
	if err := s.repo.UpdateEpisode(ctx, episode); err != nil {
		return nil, mapWriteError(err, "episode", "failed to update episode")
	}
	s.cache.CourseContentChanged(ctx, s.seasonCourseSlug(ctx, episode.SeasonID))
	s.recordChange(ctx, actorID, "episodes", id, episode)
	return episode, nil
}

// DeleteEpisode removes an episode.
func (s *CatalogService) DeleteEpisode(ctx context.Context, id, actorID string) error {
	courseSlug := s.episodeCourseSlug(ctx, id)
	if err := s.repo.DeleteEpisode(ctx, id); err != nil {
		return mapWriteError(err, "episode", "failed to delete episode")
	}
	s.cache.CourseContentChanged(ctx, courseSlug)
	s.recordChange(ctx, actorID, "episodes", id, nil)
	return nil
}

func (s *CatalogService) courseFromRequest(req dto.CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	strategy := models.PriceStrategy(req.PriceStrategy)
	if strategy == "" {
		strategy = models.PriceStrategyPaid
	}
	return &models.Course{
		CategoryID:     req.CategoryID,
		Title:          strings.TrimSpace(req.Title),
		Slug:           slugOr(req.Slug, req.Title),
		Description:    req.Description,
		ThumbnailURL:   req.ThumbnailURL,
		InstructorName: strings.TrimSpace(req.InstructorName),
		PriceStrategy:  strategy,
	}, nil
}

func (s *CatalogService) validateSeason(req dto.SeasonRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid season payload")
	}
	if _, err := models.ParsePrice(req.Price); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "price must be a non-negative decimal")
	}
	return nil
}

func (s *CatalogService) validateEpisode(req dto.EpisodeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid episode payload")
	}
	if _, err := models.ParsePrice(req.Price); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "price must be a non-negative decimal")
	}
	return nil
}

func applyEpisodeRequest(episode *models.Episode, req dto.EpisodeRequest) {
	episode.Title = strings.TrimSpace(req.Title)
	episode.EpisodeNumber = req.EpisodeNumber
	episode.Description = req.Description
	episode.DurationSec = req.DurationSec
	episode.IsPreview = req.IsPreview
	episode.Price = strings.TrimSpace(req.Price)
	episode.VideoProvider = strings.ToUpper(strings.TrimSpace(req.VideoProvider))
	if episode.VideoProvider == "" {
		episode.VideoProvider = models.DefaultVideoProvider
	}
	episode.VideoRef = strings.TrimSpace(req.VideoRef)
}

// courseSlug resolves the slug whose public page a content edit touches. It
// only hits the database when the cache is on; "" makes the cache drop every
// course page.
func (s *CatalogService) courseSlug(ctx context.Context, courseID string) string {
	if !s.cache.Enabled() {
		return ""
	}
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		s.logger.Debug("course slug unresolved", zap.String("course_id", courseID), zap.Error(err))
		return ""
	}
	return course.Slug
}

func (s *CatalogService) seasonCourseSlug(ctx context.Context, seasonID string) string {
	if !s.cache.Enabled() {
		return ""
	}
	season, err := s.repo.GetSeason(ctx, seasonID)
	if err != nil {
		s.logger.Debug("season course unresolved", zap.String("season_id", seasonID), zap.Error(err))
		return ""
	}
	return s.courseSlug(ctx, season.CourseID)
}

func (s *CatalogService) episodeCourseSlug(ctx context.Context, episodeID string) string {
	if !s.cache.Enabled() {
		return ""
	}
	episode, err := s.repo.GetEpisode(ctx, episodeID)
	if err != nil {
		s.logger.Debug("episode course unresolved", zap.String("episode_id", episodeID), zap.Error(err))
		return ""
	}
	return s.seasonCourseSlug(ctx, episode.SeasonID)
}

// recordChange writes the catalog audit entry for an admin mutation.
func (s *CatalogService) recordChange(ctx context.Context, actorID, resource, id string, value interface{}) {
	var payload []byte
	if value != nil {
		payload, _ = json.Marshal(value)
	}
	recordAudit(ctx, s.audit, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionCatalogChange,
		Resource:   resource,
		ResourceID: &id,
		NewValues:  payload,
	})
}

// Slugify turns a title into the URL slug used for courses and categories.
func Slugify(s string) string {
	return slug.Make(s)
}

func slugOr(explicit, fallback string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return Slugify(trimmed)
	}
	return Slugify(fallback)
}

func mapLookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func mapWriteError(err error, entity, internal string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, entity+" already exists")
	case errors.Is(err, repository.ErrMissingParent):
		return appErrors.Clone(appErrors.ErrNotFound, "parent of "+entity+" not found")
	case errors.Is(err, repository.ErrStillReferenced):
		return appErrors.Clone(appErrors.ErrConflict, entity+" is still in use")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
	}
}
