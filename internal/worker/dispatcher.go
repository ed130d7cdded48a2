// Package worker runs the background dispatcher that drains pending clips
// from the store and feeds them into the processing pipeline.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/clipcast/api/internal/model"
	"github.com/clipcast/api/internal/pipeline"
)

// PendingLister is the store subset the dispatcher needs.
type PendingLister interface {
	ListPending(ctx context.Context, limit int) ([]model.Clip, error)
}

// Processor runs one clip through the pipeline.
type Processor interface {
	ProcessOne(ctx context.Context, clipID string) pipeline.Result
}

// Dispatcher polls the store for pending clips and processes them oldest
// first. Multiple dispatchers can run against the same store; the pipeline's
// atomic claim ensures each clip is processed exactly once.
type Dispatcher struct {
	store     PendingLister
	processor Processor
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewDispatcher(store PendingLister, processor Processor, interval time.Duration, batchSize int, logger *slog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Dispatcher{
		store:     store,
		processor: processor,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run polls until the context is cancelled. An initial sweep happens
// immediately so a freshly started worker doesn't sit idle for a full
// interval with work already queued.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started",
		"poll_interval", d.interval, "batch_size", d.batchSize)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

// sweep processes one batch of pending clips. Store errors are logged and
// the sweep is abandoned until the next tick; a broken poll must not kill
// the loop.
func (d *Dispatcher) sweep(ctx context.Context) {
	clips, err := d.store.ListPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("listing pending clips failed", "error", err)
		return
	}

	for _, clip := range clips {
		if ctx.Err() != nil {
			return
		}
		result := d.processor.ProcessOne(ctx, clip.ID)
		switch {
		case result.Skipped:
			d.logger.Debug("clip skipped", "clip_id", clip.ID)
		case result.Success:
			d.logger.Info("clip processed", "clip_id", clip.ID)
		default:
			d.logger.Warn("clip failed", "clip_id", clip.ID, "error", result.Err)
		}
	}
}
