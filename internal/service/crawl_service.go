// Package service implements the caller-facing crawl operations: job
// creation, lifecycle control, status reads, and aggregate statistics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/crawlspace/harvester/config"
	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/domain/harvest"
	"github.com/crawlspace/harvester/internal/domain/model"
	apperrors "github.com/crawlspace/harvester/internal/errors"
)

// BatchRunner drives one running job's batch loop to a terminal or paused
// state. Satisfied by orchestrator.Runner.
type BatchRunner interface {
	Run(ctx context.Context, job *model.Job) error
}

// CrawlServiceOptions groups dependencies for CrawlService.
type CrawlServiceOptions struct {
	Jobs     core.JobRepository      // Required
	Progress core.ProgressRepository // Required
	AbuseLog core.AbuseLogRepository // Required
	Catalog  core.CatalogRepository  // Required
	Runner   BatchRunner             // Required
	Cache    core.CacheRepository    // Optional: resume info / statistics caching
	Crawl    config.CrawlConfig
	CacheTTL config.CacheConfig
	Logger   *slog.Logger // Optional
}

// jobHandle tracks one running job's loop.
type jobHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// CrawlService coordinates batch crawl jobs. One service instance owns the
// registry of running loops; the registry replaces any process-wide shared
// state, and each entry holds the loop's cancel function.
type CrawlService struct {
	jobs     core.JobRepository
	progress core.ProgressRepository
	abuseLog core.AbuseLogRepository
	catalog  core.CatalogRepository
	runner   BatchRunner
	cache    core.CacheRepository
	crawlCfg config.CrawlConfig
	cacheTTL config.CacheConfig
	logger   *slog.Logger

	mu      sync.Mutex
	running map[string]*jobHandle
}

// NewCrawlService constructs a CrawlService.
func NewCrawlService(opts CrawlServiceOptions) (*CrawlService, error) {
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
	if opts.Runner == nil {
		return nil, errors.New("BatchRunner is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	crawlCfg := opts.Crawl
	crawlCfg.Sanitize()

	return &CrawlService{
		jobs:     opts.Jobs,
		progress: opts.Progress,
		abuseLog: opts.AbuseLog,
		catalog:  opts.Catalog,
		runner:   opts.Runner,
		cache:    opts.Cache,
		crawlCfg: crawlCfg,
		cacheTTL: opts.CacheTTL,
		logger:   logger.With("component", "crawl_service"),
		running:  make(map[string]*jobHandle),
	}, nil
}

// CreateJob resolves the filter, persists the job row sized by the filter's
// cardinality, and seeds one pending progress record per target. Re-seeding
// an existing (job, target) pair is a no-op, so a crash between job insert
// and seeding is repaired by seeding again.
func (s *CrawlService) CreateJob(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("create job", errors.New("request is required"))
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation("create job", err)
	}
	if _, err := harvest.NewExtractor(req.Extract); err != nil {
		return nil, apperrors.Validation("create job", err)
	}

	total, err := s.catalog.CountTargets(ctx, &req.Filter)
	if err != nil {
		return nil, fmt.Errorf("count targets: %w", err)
	}

	job, err := s.jobs.Create(ctx, req, total)
	if err != nil {
		return nil, err
	}

	targets, err := s.catalog.ResolveTargets(ctx, &req.Filter)
	if err != nil {
		return nil, fmt.Errorf("resolve targets: %w", err)
	}

	seeded, err := s.progress.SeedPending(ctx, job.ID, targets)
	if err != nil {
		return nil, fmt.Errorf("seed progress: %w", err)
	}

	s.logger.InfoContext(ctx, "job created",
		"job_id", job.ID,
		"name", job.Name,
		"total", total,
		"seeded", seeded,
	)
	s.invalidateStatistics(ctx)
	return job, nil
}

// Start begins or resumes a job's batch loop. With resume false the job must
// be freshly seeded (pending); with resume true a paused or failed job
// re-enters the loop at its checkpoint, which is simply the set of records
// still pending.
func (s *CrawlService) Start(ctx context.Context, jobID string, resume bool) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	if s.isLoopRunning(jobID) {
		return apperrors.Conflict("start job", fmt.Errorf("job %s loop already running", jobID))
	}
	if !resume && job.Status != model.JobStatusPending {
		return apperrors.InvalidState("start job",
			fmt.Errorf("job %s is %s; starting without resume requires a pending job", jobID, job.Status))
	}

	if err := s.jobs.UpdateStatus(ctx, jobID, model.JobStatusRunning, ""); err != nil {
		return err
	}
	job.Status = model.JobStatusRunning

	s.launch(job)
	s.logger.InfoContext(ctx, "job started", "job_id", jobID, "resume", resume)
	return nil
}

// Pause suspends a running job. The loop observes the cancellation at its
// next batch boundary; the batch in flight finishes first.
func (s *CrawlService) Pause(ctx context.Context, jobID, reason string) error {
	if err := s.jobs.UpdateStatus(ctx, jobID, model.JobStatusPaused, reason); err != nil {
		return err
	}
	s.stopLoop(jobID)
	s.invalidateResumeInfo(ctx, jobID)
	s.logger.InfoContext(ctx, "job paused", "job_id", jobID, "reason", reason)
	return nil
}

// Resume re-enters a paused job's loop at its checkpoint.
func (s *CrawlService) Resume(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusPaused {
		return apperrors.InvalidState("resume job",
			fmt.Errorf("job %s is %s, not paused", jobID, job.Status))
	}
	if s.isLoopRunning(jobID) {
		return apperrors.Conflict("resume job", fmt.Errorf("job %s loop already running", jobID))
	}

	if err := s.jobs.UpdateStatus(ctx, jobID, model.JobStatusRunning, ""); err != nil {
		return err
	}
	job.Status = model.JobStatusRunning

	s.launch(job)
	s.logger.InfoContext(ctx, "job resumed", "job_id", jobID)
	return nil
}

// Cancel terminally stops a job. Pending records stay pending but the status
// machine admits no way out of cancelled.
func (s *CrawlService) Cancel(ctx context.Context, jobID string) error {
	if err := s.jobs.UpdateStatus(ctx, jobID, model.JobStatusCancelled, ""); err != nil {
		return err
	}
	s.stopLoop(jobID)
	s.invalidateResumeInfo(ctx, jobID)
	s.invalidateStatistics(ctx)
	s.logger.InfoContext(ctx, "job cancelled", "job_id", jobID)
	return nil
}

// RecoverInterrupted marks jobs left running by a previous process as paused
// so they surface as resumable. Called once at startup before any loop runs.
func (s *CrawlService) RecoverInterrupted(ctx context.Context) (int, error) {
	ids, err := s.jobs.RunningIDs(ctx)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, id := range ids {
		if s.isLoopRunning(id) {
			continue
		}
		if err := s.jobs.UpdateStatus(ctx, id, model.JobStatusPaused, "interrupted by restart"); err != nil {
			return recovered, fmt.Errorf("pause interrupted job %s: %w", id, err)
		}
		recovered++
		s.logger.WarnContext(ctx, "interrupted job recovered to paused", "job_id", id)
	}
	return recovered, nil
}

// Shutdown cancels every running loop and waits for them to wind down or the
// context to expire.
func (s *CrawlService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	handles := make([]*jobHandle, 0, len(s.running))
	for _, h := range s.running {
		h.cancel()
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		select {
		case <-h.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// launch registers the job in the running registry and spawns its loop. The
// loop context is detached from the caller: an API request ending must not
// kill the crawl.
func (s *CrawlService) launch(job *model.Job) {
	runCtx, cancel := context.WithCancel(context.Background())
	h := &jobHandle{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	if _, exists := s.running[job.ID]; exists {
		s.mu.Unlock()
		cancel()
		return
	}
	s.running[job.ID] = h
	s.mu.Unlock()

	go func() {
		defer close(h.done)
		defer cancel()
		defer func() {
			s.mu.Lock()
			delete(s.running, job.ID)
			s.mu.Unlock()
			s.invalidateResumeInfo(context.Background(), job.ID)
			s.invalidateStatistics(context.Background())
		}()

		if err := s.runner.Run(runCtx, job); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("batch loop ended with error", "job_id", job.ID, "error", err)
		}
	}()
}

func (s *CrawlService) isLoopRunning(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[jobID]
	return ok
}

// stopLoop cancels a job's loop if this instance owns one. The status row is
// already updated by the caller; the loop exits at its next batch boundary.
func (s *CrawlService) stopLoop(jobID string) {
	s.mu.Lock()
	h, ok := s.running[jobID]
	s.mu.Unlock()
	if ok {
		h.cancel()
	}
}
