package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/linkvault-api/pkg/jobs"
	"github.com/noah-isme/linkvault-api/pkg/storage"
)

const jobTypePayloadDelete = "share.payload.delete"

// PayloadCleaner removes share payloads from the payload store. A failed
// removal is handed to a retry queue instead of failing the caller.
type PayloadCleaner struct {
	store   storage.PayloadStore
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewPayloadCleaner wires the cleaner to its own job queue.
func NewPayloadCleaner(store storage.PayloadStore, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *PayloadCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &PayloadCleaner{store: store, metrics: metrics, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	c.queue = jobs.NewQueue("payload-cleanup", c.handle, cfg)
	return c
}

// Start launches the retry workers.
func (c *PayloadCleaner) Start(ctx context.Context) {
	c.queue.Start(ctx)
}

// Stop drains the retry workers.
func (c *PayloadCleaner) Stop() {
	c.queue.Stop()
}

// Remove deletes the named payload. Missing payloads count as removed.
func (c *PayloadCleaner) Remove(ctx context.Context, name string) {
	if name == "" {
		return
	}
	err := c.delete(ctx, name)
	if err == nil {
		return
	}

	c.metrics.PayloadDeleteFailed()
	c.logger.Warn("payload delete failed", zap.String("object", name), zap.Error(err))
	if qErr := c.queue.TryEnqueue(jobs.Job{Type: jobTypePayloadDelete, Payload: name}); qErr != nil {
		c.logger.Error("payload delete not scheduled", zap.String("object", name), zap.Error(qErr))
	}
}

func (c *PayloadCleaner) handle(ctx context.Context, job jobs.Job) error {
	name, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return c.delete(ctx, name)
}

func (c *PayloadCleaner) delete(ctx context.Context, name string) error {
	if err := c.store.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}
	return nil
}
