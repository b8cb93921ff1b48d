// Package core declares the ports between the crawl services and their
// collaborators. Services depend on these interfaces, never on concrete
// repositories or fetchers.
package core

import (
	"context"
	"time"

	"github.com/crawlspace/harvester/internal/domain/model"
)

// CatalogRepository resolves a filter snapshot against the harvested catalog.
type CatalogRepository interface {
	// ResolveTargets returns the ordered targets matching the filter.
	ResolveTargets(ctx context.Context, filter *model.FilterSpec) ([]model.Target, error)
	// CountTargets returns the cardinality of the filter without materializing
	// the full sequence. Limit and offset are ignored for counting.
	CountTargets(ctx context.Context, filter *model.FilterSpec) (int, error)
	// MarkProcessed flags catalog items whose content has been harvested.
	MarkProcessed(ctx context.Context, targetIDs []string) (int, error)
}

// JobRepository defines job row operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest, total int) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, statusFilter *model.JobStatus) ([]*model.Job, error)
	// UpdateStatus applies a state transition, rejecting moves the status
	// machine does not permit. errMsg annotates pauses and failures.
	UpdateStatus(ctx context.Context, id string, status model.JobStatus, errMsg string) error
	// AddCounters accumulates a batch's outcome into the job's running
	// counters and refreshes last_target when non-empty. Deltas may be
	// negative; counters never drop below zero.
	AddCounters(ctx context.Context, params AddCountersParams) error
	Stats(ctx context.Context) (*model.JobStats, error)
	RunningIDs(ctx context.Context) ([]string, error)
}

// AddCountersParams groups parameters for JobRepository.AddCounters.
type AddCountersParams struct {
	JobID          string
	CompletedDelta int
	FailedDelta    int
	LastTarget     string
}

// SetProgressParams groups parameters for ProgressRepository.SetStatus.
type SetProgressParams struct {
	JobID          string
	TargetID       string
	Status         model.ProgressStatus
	Error          string
	IncrementRetry bool
}

// ProgressRepository defines per-target progress operations. The set of a
// job's pending records is its resume checkpoint.
type ProgressRepository interface {
	// SeedPending inserts one pending record per target, skipping pairs that
	// already exist so re-seeding is idempotent. Returns rows inserted.
	SeedPending(ctx context.Context, jobID string, targets []model.Target) (int, error)
	// NextPendingBatch returns up to n pending records ordered
	// oldest-created-first without changing their status.
	NextPendingBatch(ctx context.Context, jobID string, n int) ([]model.ProgressRecord, error)
	// ClaimPendingBatch atomically moves up to n pending records to
	// processing and returns them, oldest-created-first. Two claimers can
	// never receive the same record.
	ClaimPendingBatch(ctx context.Context, jobID string, n int) ([]model.ProgressRecord, error)
	// SetStatus is an idempotent single-record update with timestamp refresh.
	SetStatus(ctx context.Context, params SetProgressParams) error
	StatusCounts(ctx context.Context, jobID string) (map[model.ProgressStatus]int, error)
	LastProcessed(ctx context.Context, jobID string) (*model.LastProcessed, error)
	// ResetFailed returns failed records with retry_count below the cap to
	// pending, clearing their error. Returns rows affected.
	ResetFailed(ctx context.Context, jobID string, maxRetryCount int) (int, error)
	// RequeueStaleProcessing returns records stuck in processing longer than
	// maxAge to pending. Cleans up after crashed runs.
	RequeueStaleProcessing(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
	TargetStats(ctx context.Context) (*model.TargetStats, error)
}

// AbuseLogRepository persists the append-only anti-automation log.
type AbuseLogRepository interface {
	Insert(ctx context.Context, detection *model.Detection) (int64, error)
	// Recent returns the newest detections for a job, most recent first.
	Recent(ctx context.Context, jobID string, limit int) ([]model.Detection, error)
	// MarkRecovered backfills recovery_time, the only permitted mutation.
	MarkRecovered(ctx context.Context, id int64, at time.Time) error
}

// CacheRepository defines byte-value caching with TTLs.
type CacheRepository interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
}
