// Package reaper periodically returns progress records orphaned in processing
// by crashed runs back to pending, so a later resume can pick them up.
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crawlspace/harvester/config"
	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/observability/metrics"
)

// Options groups dependencies for Reaper.
type Options struct {
	Progress core.ProgressRepository // Required
	Config   config.ReaperConfig
	Logger   *slog.Logger // Optional
}

// Reaper runs the stale-processing sweep at a fixed interval.
type Reaper struct {
	progress core.ProgressRepository
	cfg      config.ReaperConfig
	logger   *slog.Logger
}

// New constructs a Reaper from options.
func New(opts Options) (*Reaper, error) {
	if opts.Progress == nil {
		return nil, errors.New("ProgressRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	cfg.Sanitize()

	return &Reaper{
		progress: opts.Progress,
		cfg:      cfg,
		logger:   logger.With("component", "reaper"),
	}, nil
}

// Run sweeps until the context is cancelled. Returns nil on graceful
// shutdown, the sweep error otherwise is logged and the loop continues; only
// context cancellation stops it.
func (r *Reaper) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "reaper starting",
		"interval", r.cfg.Interval,
		"processing_max_age", r.cfg.ProcessingMaxAge,
	)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "reaper stopping")
			return nil
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// Sweep runs one requeue pass. Exposed for startup recovery, which wants one
// synchronous pass before any job resumes.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	requeued, err := r.progress.RequeueStaleProcessing(ctx, r.cfg.ProcessingMaxAge, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if requeued > 0 {
		metrics.StaleRequeuedTotal.Add(float64(requeued))
	}
	return requeued, nil
}

func (r *Reaper) sweep(ctx context.Context) {
	requeued, err := r.Sweep(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.logger.ErrorContext(ctx, "stale sweep failed", "error", err)
		return
	}
	if requeued > 0 {
		r.logger.InfoContext(ctx, "stale sweep requeued targets", "count", requeued)
	}
}
