package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/linkvault-api/internal/models"
)

type reaperStore interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.ExpiredShare, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// ReaperConfig tunes the expiry sweep.
type ReaperConfig struct {
	Interval  time.Duration
	BatchSize int
	Now       func() time.Time
}

// ReaperService deletes expired shares and their payloads on a fixed interval.
type ReaperService struct {
	repo    reaperStore
	cleaner payloadRemover
	stats   statsInvalidator
	metrics *MetricsService
	logger  *zap.Logger
	config  ReaperConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReaperService constructs the reaper. It does nothing until Start.
func NewReaperService(repo reaperStore, cleaner payloadRemover, stats statsInvalidator, metrics *MetricsService, logger *zap.Logger, cfg ReaperConfig) *ReaperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ReaperService{repo: repo, cleaner: cleaner, stats: stats, metrics: metrics, logger: logger, config: cfg}
}

// Start sweeps once immediately and then on every interval until Stop or
// until ctx is cancelled. Calling Start on a running reaper is a no-op.
func (s *ReaperService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(runCtx, s.done)

	s.logger.Info("share reaper started", zap.Duration("interval", s.config.Interval), zap.Int("batch_size", s.config.BatchSize))
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *ReaperService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("share reaper stopped")
}

func (s *ReaperService) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("share reaper sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce deletes up to one batch of expired shares and returns how many
// records were removed. Deleting ids that are already gone is not an error.
func (s *ReaperService) SweepOnce(ctx context.Context) (int, error) {
	started := time.Now()

	expired, err := s.repo.ListExpired(ctx, s.config.Now().UTC(), s.config.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		s.metrics.ReaperSweep(0, time.Since(started))
		return 0, nil
	}

	ids := make([]string, 0, len(expired))
	for _, share := range expired {
		if share.Kind == models.ShareKindFile && share.FileStoredName != nil {
			s.cleaner.Remove(ctx, *share.FileStoredName)
		}
		ids = append(ids, share.ID)
	}

	deleted, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.metrics.ReaperSweep(int(deleted), time.Since(started))
	if deleted > 0 {
		s.stats.InvalidateUserStats(ctx)
		s.logger.Info("expired shares removed", zap.Int64("deleted", deleted), zap.Int("matched", len(expired)))
	}
	return int(deleted), nil
}
