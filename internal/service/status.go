package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/domain/model"
	apperrors "github.com/crawlspace/harvester/internal/errors"
)

const (
	resumeInfoKeyPrefix = "harvester:resume_info:"
	statisticsKey       = "harvester:statistics"
)

// JobStatus pairs a job row with its resume checkpoint view.
type JobStatus struct {
	Job        *model.Job        `json:"job"`
	ResumeInfo *model.ResumeInfo `json:"resume_info"`
}

// GetStatus returns the job row and its resume info.
func (s *CrawlService) GetStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	info, err := s.resumeInfo(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &JobStatus{Job: job, ResumeInfo: info}, nil
}

// ListJobs returns jobs newest-first, optionally restricted to one status.
func (s *CrawlService) ListJobs(ctx context.Context, statusFilter *model.JobStatus) ([]*model.Job, error) {
	if statusFilter != nil && !statusFilter.Valid() {
		return nil, apperrors.Validation("list jobs",
			fmt.Errorf("invalid status filter: %q", *statusFilter))
	}
	return s.jobs.List(ctx, statusFilter)
}

// RetryFailed returns a job's failed records with retry_count below
// maxRetryCount to pending and rolls the job's failed counter back by the
// affected count. maxRetryCount <= 0 means no cap. Not permitted while the
// job is running or once it is completed or cancelled.
func (s *CrawlService) RetryFailed(ctx context.Context, jobID string, maxRetryCount int) (int, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return 0, err
	}
	switch job.Status {
	case model.JobStatusRunning:
		return 0, apperrors.InvalidState("retry failed",
			fmt.Errorf("job %s is running; pause it first", jobID))
	case model.JobStatusCompleted, model.JobStatusCancelled:
		return 0, apperrors.InvalidState("retry failed",
			fmt.Errorf("job %s is %s", jobID, job.Status))
	}

	if maxRetryCount <= 0 {
		// No cap: any failed record qualifies regardless of prior retries.
		maxRetryCount = int(^uint(0) >> 1)
	}

	count, err := s.progress.ResetFailed(ctx, jobID, maxRetryCount)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		if err := s.jobs.AddCounters(ctx, core.AddCountersParams{
			JobID:       jobID,
			FailedDelta: -count,
		}); err != nil {
			return count, fmt.Errorf("roll back failed counter: %w", err)
		}
		s.invalidateResumeInfo(ctx, jobID)
		s.invalidateStatistics(ctx)
	}

	s.logger.InfoContext(ctx, "failed targets requeued", "job_id", jobID, "count", count)
	return count, nil
}

// Statistics aggregates job and target counts across the store. The three
// queries run in parallel; the assembled result is cached briefly.
func (s *CrawlService) Statistics(ctx context.Context) (*model.Statistics, error) {
	if cached := s.cachedStatistics(ctx); cached != nil {
		return cached, nil
	}

	var stats model.Statistics
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		jobStats, err := s.jobs.Stats(gctx)
		if err != nil {
			return fmt.Errorf("job stats: %w", err)
		}
		stats.Jobs = *jobStats
		return nil
	})
	g.Go(func() error {
		targetStats, err := s.progress.TargetStats(gctx)
		if err != nil {
			return fmt.Errorf("target stats: %w", err)
		}
		stats.Targets = *targetStats
		return nil
	})
	g.Go(func() error {
		ids, err := s.jobs.RunningIDs(gctx)
		if err != nil {
			return fmt.Errorf("running ids: %w", err)
		}
		stats.RunningJobs = ids
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.cacheSet(ctx, statisticsKey, &stats, s.cacheTTL.StatisticsTTL)
	return &stats, nil
}

// resumeInfo assembles the checkpoint view for a job, serving from cache when
// fresh. canResume is true iff at least one record remains pending.
func (s *CrawlService) resumeInfo(ctx context.Context, jobID string) (*model.ResumeInfo, error) {
	key := resumeInfoKeyPrefix + jobID
	if s.cache != nil {
		var cached model.ResumeInfo
		if ok := s.cacheGet(ctx, key, &cached); ok {
			return &cached, nil
		}
	}

	counts, err := s.progress.StatusCounts(ctx, jobID)
	if err != nil {
		return nil, err
	}
	last, err := s.progress.LastProcessed(ctx, jobID)
	if err != nil {
		return nil, err
	}
	detections, err := s.abuseLog.Recent(ctx, jobID, s.crawlCfg.RecentDetections)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	finished := counts[model.ProgressCompleted] + counts[model.ProgressFailed]

	info := &model.ResumeInfo{
		StatusCounts:     counts,
		LastProcessed:    last,
		RecentDetections: detections,
		CanResume:        counts[model.ProgressPending] > 0,
	}
	if total > 0 {
		info.ProgressPercentage = float64(finished) / float64(total) * 100
	}

	s.cacheSet(ctx, key, info, s.cacheTTL.ResumeInfoTTL)
	return info, nil
}

func (s *CrawlService) cachedStatistics(ctx context.Context) *model.Statistics {
	if s.cache == nil {
		return nil
	}
	var stats model.Statistics
	if ok := s.cacheGet(ctx, statisticsKey, &stats); ok {
		return &stats
	}
	return nil
}

// Cache helpers degrade to the store silently; a cold or broken cache only
// costs latency.

func (s *CrawlService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (s *CrawlService) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		s.logger.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}

func (s *CrawlService) invalidateResumeInfo(ctx context.Context, jobID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Delete(ctx, resumeInfoKeyPrefix+jobID); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "job_id", jobID, "error", err)
	}
}

func (s *CrawlService) invalidateStatistics(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Delete(ctx, statisticsKey); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "key", statisticsKey, "error", err)
	}
}
