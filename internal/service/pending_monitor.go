package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/models"
)

type pendingStatsSource interface {
	PendingStats(ctx context.Context, cutoff time.Time) (models.PendingStats, error)
}

type pendingGauge interface {
	SetPendingPurchases(stats models.PendingStats)
}

// PendingMonitorConfig schedules the review queue probe.
type PendingMonitorConfig struct {
	Schedule       string
	StaleThreshold time.Duration
	Timeout        time.Duration
}

// PendingMonitor periodically publishes the depth of the admin review queue and
// warns when purchases wait longer than the stale threshold.
type PendingMonitor struct {
	source  pendingStatsSource
	gauge   pendingGauge
	logger  *zap.Logger
	cfg     PendingMonitorConfig
	cron    *cron.Cron
	now     func() time.Time
	entryID cron.EntryID
}

// NewPendingMonitor builds a monitor. Call Start to register the schedule.
func NewPendingMonitor(source pendingStatsSource, gauge pendingGauge, cfg PendingMonitorConfig, logger *zap.Logger) *PendingMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = 48 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PendingMonitor{
		source: source,
		gauge:  gauge,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(),
		now:    time.Now,
	}
}

// Start registers the probe and starts the scheduler.
func (m *PendingMonitor) Start() error {
	id, err := m.cron.AddFunc(m.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
		defer cancel()
		if _, err := m.RunOnce(ctx); err != nil {
			m.logger.Warn("pending purchase probe failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	m.entryID = id
	m.cron.Start()
	m.logger.Info("pending purchase monitor started", zap.String("schedule", m.cfg.Schedule))
	return nil
}

// Stop halts the scheduler and waits for a running probe to finish.
func (m *PendingMonitor) Stop() {
	<-m.cron.Stop().Done()
}

// RunOnce samples the queue and publishes the result.
func (m *PendingMonitor) RunOnce(ctx context.Context) (models.PendingStats, error) {
	cutoff := m.now().Add(-m.cfg.StaleThreshold)
	stats, err := m.source.PendingStats(ctx, cutoff)
	if err != nil {
		return models.PendingStats{}, err
	}
	if m.gauge != nil {
		m.gauge.SetPendingPurchases(stats)
	}
	if stats.Stale > 0 {
		fields := []zap.Field{zap.Int("stale", stats.Stale), zap.Int("pending", stats.Total), zap.Duration("threshold", m.cfg.StaleThreshold)}
		if stats.Oldest != nil {
			fields = append(fields, zap.Time("oldest", *stats.Oldest))
		}
		m.logger.Warn("purchases awaiting review past threshold", fields...)
	}
	return stats, nil
}
