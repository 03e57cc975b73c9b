package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/models"
	"github.com/noah-isme/course-market-api/pkg/jobs"
)

const auditJobType = "audit_log"

type auditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditQueue interface {
	TryEnqueue(job jobs.Job) error
}

// auditRecorder is what business services depend on to leave an audit trail.
type auditRecorder interface {
	Record(ctx context.Context, log *models.AuditLog)
}

// AuditService writes audit logs off the request path through a job queue.
// Without a running queue it falls back to writing inline.
type AuditService struct {
	store  auditStore
	queue  auditQueue
	logger *zap.Logger
}

// NewAuditService constructs the audit writer.
func NewAuditService(store auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, logger: logger}
}

// AttachQueue routes subsequent records through q.
func (s *AuditService) AttachQueue(q auditQueue) {
	s.queue = q
}

// Record persists an audit entry. Failures are logged, never returned.
func (s *AuditService) Record(ctx context.Context, log *models.AuditLog) {
	if s == nil || log == nil {
		return
	}
	if s.queue != nil {
		err := s.queue.TryEnqueue(jobs.Job{ID: log.ID, Type: auditJobType, Payload: log})
		if err == nil {
			return
		}
		s.logger.Warn("audit queue unavailable, writing inline", zap.String("action", log.Action), zap.Error(err))
	}
	if err := s.store.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

// Handle is the queue handler that persists a queued audit entry.
func (s *AuditService) Handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return s.store.CreateAuditLog(ctx, log)
}

func recordAudit(ctx context.Context, audit auditRecorder, log *models.AuditLog) {
	if audit == nil {
		return
	}
	audit.Record(ctx, log)
}
