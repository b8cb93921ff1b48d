// Package orchestrator drives the batch crawl loop for a single job: claim a
// batch of pending targets, fetch them with bounded concurrency, reconcile
// outcomes into the store, and decide whether to continue, pause, or finish.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/crawlspace/harvester/config"
	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/domain/abuse"
	"github.com/crawlspace/harvester/internal/domain/harvest"
	"github.com/crawlspace/harvester/internal/domain/model"
	"github.com/crawlspace/harvester/internal/domain/retrypolicy"
	"github.com/crawlspace/harvester/internal/observability/metrics"
)

// Options groups dependencies for Runner.
type Options struct {
	Jobs       core.JobRepository      // Required
	Progress   core.ProgressRepository // Required
	AbuseLog   core.AbuseLogRepository // Required
	Catalog    core.CatalogRepository  // Required
	Fetcher    core.Fetcher            // Required
	Classifier *abuse.Classifier       // Optional: defaults to NewClassifier()
	Retry      *retrypolicy.Policy     // Optional: defaults to DefaultConfig
	Config     config.CrawlConfig
	Logger     *slog.Logger // Optional
}

// Runner executes one job's batch loop. A Runner instance drives exactly one
// job at a time; distinct jobs get distinct Runner invocations.
type Runner struct {
	jobs       core.JobRepository
	progress   core.ProgressRepository
	abuseLog   core.AbuseLogRepository
	catalog    core.CatalogRepository
	fetcher    core.Fetcher
	classifier *abuse.Classifier
	retry      *retrypolicy.Policy
	cfg        config.CrawlConfig
	logger     *slog.Logger
}

// New constructs a Runner from options.
func New(opts Options) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Progress == nil {
		return nil, errors.New("ProgressRepository is required")
	}
	if opts.AbuseLog == nil {
		return nil, errors.New("AbuseLogRepository is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("CatalogRepository is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("Fetcher is required")
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = abuse.NewClassifier()
	}
	retry := opts.Retry
	if retry == nil {
		retry = retrypolicy.New(retrypolicy.DefaultConfig())
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	cfg.Sanitize()

	return &Runner{
		jobs:       opts.Jobs,
		progress:   opts.Progress,
		abuseLog:   opts.AbuseLog,
		catalog:    opts.Catalog,
		fetcher:    opts.Fetcher,
		classifier: classifier,
		retry:      retry,
		cfg:        cfg,
		logger:     logger.With("component", "orchestrator"),
	}, nil
}

// targetOutcome is the reconciled result of one fetch attempt.
type targetOutcome struct {
	completed bool
	data      json.RawMessage
	errText   string
	detection *model.Detection
}

// Run drives the job's loop until it completes, pauses, fails, or the context
// is cancelled. The job must already be in running status. Cancellation is
// observed only at batch boundaries; a dispatched batch always finishes.
func (r *Runner) Run(ctx context.Context, job *model.Job) error {
	if job == nil {
		return errors.New("job is required")
	}

	extractor, err := harvest.NewExtractor(job.Extract)
	if err != nil {
		// Validated at creation time; a bad stored expression only disables
		// summaries.
		r.logger.WarnContext(ctx, "extract expression invalid, summaries disabled",
			"job_id", job.ID, "error", err)
		extractor = nil
	}

	metrics.RunningJobs.Inc()
	defer metrics.RunningJobs.Dec()

	r.logger.InfoContext(ctx, "batch loop starting",
		"job_id", job.ID,
		"batch_size", r.cfg.BatchSize,
		"concurrent_limit", r.cfg.ConcurrentLimit,
	)

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		batch, claimErr := r.progress.ClaimPendingBatch(ctx, job.ID, r.cfg.BatchSize)
		if claimErr != nil {
			return r.failJob(ctx, job.ID, fmt.Errorf("claim batch: %w", claimErr))
		}

		if len(batch) == 0 {
			if finishErr := r.jobs.UpdateStatus(ctx, job.ID, model.JobStatusCompleted, ""); finishErr != nil {
				return r.failJob(ctx, job.ID, fmt.Errorf("complete job: %w", finishErr))
			}
			r.logger.InfoContext(ctx, "job completed", "job_id", job.ID)
			metrics.BatchesTotal.WithLabelValues("completed").Inc()
			return nil
		}

		outcomes := r.dispatch(ctx, batch)

		tally, recErr := r.reconcile(ctx, job, batch, outcomes, extractor)
		if recErr != nil {
			return r.failJob(ctx, job.ID, fmt.Errorf("reconcile batch: %w", recErr))
		}
		metrics.BatchesTotal.WithLabelValues("processed").Inc()

		abuseRatio := float64(tally.abuse) / float64(len(batch))
		r.logger.InfoContext(ctx, "batch reconciled",
			"job_id", job.ID,
			"batch_len", len(batch),
			"completed", tally.completed,
			"failed", tally.failed,
			"retried", tally.retried,
			"abuse_ratio", abuseRatio,
		)

		if r.cfg.AutoPause && abuseRatio > r.cfg.AbuseRatioThreshold {
			reason := fmt.Sprintf("auto-paused: abuse ratio %.2f exceeded %.2f",
				abuseRatio, r.cfg.AbuseRatioThreshold)
			if pauseErr := r.jobs.UpdateStatus(ctx, job.ID, model.JobStatusPaused, reason); pauseErr != nil {
				return r.failJob(ctx, job.ID, fmt.Errorf("pause job: %w", pauseErr))
			}
			r.logger.WarnContext(ctx, "job auto-paused", "job_id", job.ID, "reason", reason)
			metrics.BatchesTotal.WithLabelValues("paused").Inc()
			return nil
		}

		if sleepErr := sleepCtx(ctx, r.cfg.InterBatchDelay); sleepErr != nil {
			return sleepErr
		}
	}
}

// dispatch fetches the batch with bounded concurrency. Each target's outcome
// is isolated: a panic or failure on one never aborts its siblings. The batch
// deliberately ignores cancellation of ctx so an already dispatched batch
// runs to completion.
func (r *Runner) dispatch(ctx context.Context, batch []model.ProgressRecord) []targetOutcome {
	detached := context.WithoutCancel(ctx)
	sem := semaphore.NewWeighted(int64(r.cfg.ConcurrentLimit))
	outcomes := make([]targetOutcome, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		// Acquire cannot fail on a non-cancellable context.
		_ = sem.Acquire(detached, 1)
		wg.Add(1)
		go func(i int, rec model.ProgressRecord) {
			defer wg.Done()
			defer sem.Release(1)
			outcomes[i] = r.fetchOne(detached, rec)
		}(i, batch[i])
	}
	wg.Wait()
	return outcomes
}

// fetchOne performs one fetch attempt and classifies its outcome.
func (r *Runner) fetchOne(ctx context.Context, rec model.ProgressRecord) (out targetOutcome) {
	defer func() {
		if p := recover(); p != nil {
			out = targetOutcome{errText: fmt.Sprintf("fetch panicked: %v", p)}
			r.logger.ErrorContext(ctx, "fetch panicked",
				"job_id", rec.JobID, "target_id", rec.TargetID, "panic", p)
		}
	}()

	host := harvest.HostLabel(rec.TargetAddress)
	metrics.InflightFetches.Inc()
	start := time.Now()

	result, err := r.fetcher.Fetch(ctx, model.Target{ID: rec.TargetID, Address: rec.TargetAddress})

	metrics.InflightFetches.Dec()
	metrics.FetchLatency.WithLabelValues(host).Observe(time.Since(start).Seconds())

	if err != nil {
		// Transport failure: no response was produced.
		det := r.classifier.Classify(0, err.Error(), nil)
		if det == nil {
			det = r.networkDetection(err)
		}
		det.Details = fmt.Sprintf("%s (host %s)", det.Details, host)
		return targetOutcome{errText: err.Error(), detection: det}
	}

	if result.OK() {
		return targetOutcome{completed: true, data: result.Data}
	}

	det := r.classifier.Classify(result.StatusCode, result.BodyExcerpt, result.Headers)
	if det != nil {
		det.Details = fmt.Sprintf("%s (host %s)", det.Details, host)
	}
	return targetOutcome{
		errText:   fmt.Sprintf("fetch returned status %d", result.StatusCode),
		detection: det,
	}
}

func (r *Runner) networkDetection(err error) *model.Detection {
	det := &model.Detection{
		Type:       model.DetectionNetworkError,
		DetectedAt: time.Now(),
		Details:    fmt.Sprintf("transport failure: %v", err),
	}
	det.RecoveryAction = r.classifier.RecoveryStrategy(det).Action
	return det
}

// batchTally aggregates one batch's reconciled outcomes.
type batchTally struct {
	completed int
	failed    int
	retried   int
	abuse     int
}

// reconcile writes every outcome back to the store per the lifecycle rules:
// success → completed; abuse detection → logged and failed; otherwise retry
// while the policy allows, else failed. Store errors abort the loop.
func (r *Runner) reconcile(
	ctx context.Context,
	job *model.Job,
	batch []model.ProgressRecord,
	outcomes []targetOutcome,
	extractor *harvest.Extractor,
) (batchTally, error) {
	var tally batchTally
	var completedIDs []string
	var lastTarget string

	for i, rec := range batch {
		out := outcomes[i]
		host := harvest.HostLabel(rec.TargetAddress)

		switch {
		case out.completed:
			if err := r.setStatus(ctx, rec, model.ProgressCompleted, "", false); err != nil {
				return tally, err
			}
			tally.completed++
			completedIDs = append(completedIDs, rec.TargetID)
			lastTarget = rec.TargetID
			if summary := extractor.Summarize(out.data); summary != "" {
				lastTarget = rec.TargetID + ": " + summary
			}
			metrics.FetchesTotal.WithLabelValues(host, "completed").Inc()

		case out.detection != nil:
			det := out.detection
			det.JobID = &job.ID
			if _, err := r.abuseLog.Insert(ctx, det); err != nil {
				return tally, fmt.Errorf("log detection: %w", err)
			}
			if err := r.setStatus(ctx, rec, model.ProgressFailed, det.Details, false); err != nil {
				return tally, err
			}
			tally.failed++
			tally.abuse++
			metrics.AbuseDetectionsTotal.WithLabelValues(string(det.Type)).Inc()
			metrics.FetchesTotal.WithLabelValues(host, "abuse").Inc()
			r.logger.WarnContext(ctx, "abuse detected",
				"job_id", job.ID,
				"target_id", rec.TargetID,
				"type", det.Type,
				"recovery_action", det.RecoveryAction,
			)

		case r.retry.ShouldRetry(rec.RetryCount, false):
			if err := r.setStatus(ctx, rec, model.ProgressPending, out.errText, true); err != nil {
				return tally, err
			}
			tally.retried++
			metrics.FetchesTotal.WithLabelValues(host, "retried").Inc()

		default:
			if err := r.setStatus(ctx, rec, model.ProgressFailed, out.errText, false); err != nil {
				return tally, err
			}
			tally.failed++
			metrics.FetchesTotal.WithLabelValues(host, "failed").Inc()
		}
	}

	if err := r.jobs.AddCounters(ctx, core.AddCountersParams{
		JobID:          job.ID,
		CompletedDelta: tally.completed,
		FailedDelta:    tally.failed,
		LastTarget:     lastTarget,
	}); err != nil {
		return tally, fmt.Errorf("add counters: %w", err)
	}

	if len(completedIDs) > 0 {
		// Bookkeeping only; a failure here must not fail the job.
		if _, err := r.catalog.MarkProcessed(ctx, completedIDs); err != nil {
			r.logger.WarnContext(ctx, "mark processed failed",
				"job_id", job.ID, "count", len(completedIDs), "error", err)
		}
	}

	return tally, nil
}

func (r *Runner) setStatus(ctx context.Context, rec model.ProgressRecord, status model.ProgressStatus, errText string, incrementRetry bool) error {
	return r.progress.SetStatus(ctx, core.SetProgressParams{
		JobID:          rec.JobID,
		TargetID:       rec.TargetID,
		Status:         status,
		Error:          errText,
		IncrementRetry: incrementRetry,
	})
}

// failJob records an orchestration-level error on the job and returns it.
// The status write uses a detached context so a cancelled loop can still
// record why it died.
func (r *Runner) failJob(ctx context.Context, jobID string, cause error) error {
	detached := context.WithoutCancel(ctx)
	if err := r.jobs.UpdateStatus(detached, jobID, model.JobStatusFailed, cause.Error()); err != nil {
		r.logger.ErrorContext(detached, "failed to mark job failed",
			"job_id", jobID, "cause", cause, "error", err)
	}
	metrics.BatchesTotal.WithLabelValues("failed").Inc()
	r.logger.ErrorContext(detached, "batch loop aborted", "job_id", jobID, "error", cause)
	return cause
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
