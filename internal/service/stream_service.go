package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/dto"
	"github.com/noah-isme/course-market-api/internal/models"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

type episodeAccessResolver interface {
	ResolveEpisodeAccess(ctx context.Context, userID, episodeID string) (*models.Episode, models.AccessStatus, error)
}

type streamMetrics interface {
	RecordStreamDecision(outcome string)
}

// StreamService is the only path that hands out video references.
type StreamService struct {
	access  episodeAccessResolver
	metrics streamMetrics
	logger  *zap.Logger
}

// NewStreamService constructs the stream gate.
func NewStreamService(access episodeAccessResolver, metrics streamMetrics, logger *zap.Logger) *StreamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamService{access: access, metrics: metrics, logger: logger}
}

// Authorize returns the video reference for episodeID when userID may watch it.
// Anything other than a granted decision, including lookup failures, is denied.
func (s *StreamService) Authorize(ctx context.Context, userID, episodeID string) (*dto.StreamGrant, error) {
	episode, status, err := s.access.ResolveEpisodeAccess(ctx, userID, episodeID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
			s.record(StreamOutcomeNotFound)
			return nil, err
		}
		s.logger.Error("stream authorization failed, denying",
			zap.String("user_id", userID),
			zap.String("episode_id", episodeID),
			zap.Error(err),
		)
		s.record(StreamOutcomeError)
		return nil, appErrors.Clone(appErrors.ErrPaymentRequired, "")
	}
	if status != models.AccessGranted {
		s.record(StreamOutcomeDenied)
		return nil, appErrors.Clone(appErrors.ErrPaymentRequired, "")
	}

	s.record(StreamOutcomeGranted)
	provider := episode.VideoProvider
	if provider == "" {
		provider = models.DefaultVideoProvider
	}
	return &dto.StreamGrant{EpisodeID: episode.ID, VideoProvider: provider, VideoRef: episode.VideoRef}, nil
}

func (s *StreamService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordStreamDecision(outcome)
	}
}
