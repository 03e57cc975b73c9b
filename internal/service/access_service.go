package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/dto"
	"github.com/noah-isme/course-market-api/internal/models"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

type accessCatalog interface {
	GetEpisode(ctx context.Context, id string) (*models.Episode, error)
	GetCourseTree(ctx context.Context, courseID string) (*models.CourseTree, error)
	ListCoursesWithGrants(ctx context.Context, userID string) ([]models.Course, error)
}

type accessSnapshotLoader interface {
	LoadSnapshot(ctx context.Context, userID string) (models.AccessSnapshot, error)
}

type accessMetrics interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// AccessService answers "may this user watch this?" questions.
type AccessService struct {
	catalog accessCatalog
	grants  accessSnapshotLoader
	metrics accessMetrics
	logger  *zap.Logger
}

// NewAccessService wires the access control core.
func NewAccessService(catalog accessCatalog, grants accessSnapshotLoader, metrics accessMetrics, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{catalog: catalog, grants: grants, metrics: metrics, logger: logger}
}

// CheckEpisodeAccess decides access to an episode that lives in seasonID.
func (s *AccessService) CheckEpisodeAccess(ctx context.Context, userID string, episode models.Episode, seasonID string) (models.AccessStatus, error) {
	if episode.IsFree() {
		return models.AccessGranted, nil
	}
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return models.AccessLocked, err
	}
	return EvaluateEpisodeAccess(snap, episode, seasonID), nil
}

// CheckSeasonAccess decides access to a whole season.
func (s *AccessService) CheckSeasonAccess(ctx context.Context, userID string, season models.Season) (models.AccessStatus, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return models.AccessLocked, err
	}
	return EvaluateSeasonAccess(snap, season.ID), nil
}

// ResolveEpisodeAccess loads an episode by id and decides access to it.
func (s *AccessService) ResolveEpisodeAccess(ctx context.Context, userID, episodeID string) (*models.Episode, models.AccessStatus, error) {
	episode, err := s.catalog.GetEpisode(ctx, episodeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.AccessLocked, appErrors.Clone(appErrors.ErrNotFound, "episode not found")
		}
		return nil, models.AccessLocked, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load episode")
	}
	status, err := s.CheckEpisodeAccess(ctx, userID, *episode, episode.SeasonID)
	if err != nil {
		return episode, models.AccessLocked, err
	}
	return episode, status, nil
}

// ComputeCourseAccessView returns the course tree annotated for userID.
func (s *AccessService) ComputeCourseAccessView(ctx context.Context, userID, courseID string) (*dto.CourseAccessView, error) {
	tree, err := s.catalog.GetCourseTree(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := ProjectCourseAccess(snap, *tree)
	return &view, nil
}

// ListOwnedCourses returns courses in which the user holds any grant.
func (s *AccessService) ListOwnedCourses(ctx context.Context, userID string) ([]models.Course, error) {
	courses, err := s.catalog.ListCoursesWithGrants(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

func (s *AccessService) snapshot(ctx context.Context, userID string) (models.AccessSnapshot, error) {
	if userID == "" {
		return models.NewAccessSnapshot(nil, nil), nil
	}
	start := time.Now()
	snap, err := s.grants.LoadSnapshot(ctx, userID)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("access_snapshot", time.Since(start))
	}
	if err != nil {
		s.logger.Error("failed to load access snapshot", zap.String("user_id", userID), zap.Error(err))
		return models.AccessSnapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve access")
	}
	return snap, nil
}
