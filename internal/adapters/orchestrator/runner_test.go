package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawlspace/harvester/config"
	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/domain/model"
	"github.com/crawlspace/harvester/internal/domain/retrypolicy"
)

// fakeStore is an in-memory stand-in for the job, progress, abuse log, and
// catalog repositories, good enough to drive the batch loop end to end.
type fakeStore struct {
	mu sync.Mutex

	records []*model.ProgressRecord
	job     *model.Job

	statusHistory []model.JobStatus
	lastErrMsg    string
	completed     int
	failed        int
	lastTarget    string

	detections []model.Detection
	processed  []string

	claimErr    error
	countersErr error
}

func newFakeStore(jobID string, targetCount int) *fakeStore {
	s := &fakeStore{
		job: &model.Job{ID: jobID, Status: model.JobStatusRunning, Total: targetCount},
	}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < targetCount; i++ {
		id := fmt.Sprintf("t-%02d", i)
		s.records = append(s.records, &model.ProgressRecord{
			ID:            int64(i + 1),
			JobID:         jobID,
			TargetID:      id,
			TargetAddress: "https://example.com/items/" + id,
			Status:        model.ProgressPending,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		})
	}
	return s
}

func (s *fakeStore) record(targetID string) *model.ProgressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.TargetID == targetID {
			return r
		}
	}
	return nil
}

// JobRepository

func (s *fakeStore) Create(context.Context, *model.CreateJobRequest, int) (*model.Job, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) GetByID(context.Context, string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := *s.job
	return &j, nil
}

func (s *fakeStore) List(context.Context, *model.JobStatus) ([]*model.Job, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) UpdateStatus(_ context.Context, _ string, status model.JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job.Status = status
	s.statusHistory = append(s.statusHistory, status)
	s.lastErrMsg = errMsg
	return nil
}

func (s *fakeStore) AddCounters(_ context.Context, params core.AddCountersParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countersErr != nil {
		return s.countersErr
	}
	s.completed += params.CompletedDelta
	s.failed += params.FailedDelta
	if params.LastTarget != "" {
		s.lastTarget = params.LastTarget
	}
	return nil
}

func (s *fakeStore) Stats(context.Context) (*model.JobStats, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) RunningIDs(context.Context) ([]string, error) {
	return nil, errors.New("not implemented")
}

// ProgressRepository

func (s *fakeStore) SeedPending(context.Context, string, []model.Target) (int, error) {
	return 0, errors.New("not implemented")
}

func (s *fakeStore) NextPendingBatch(context.Context, string, int) ([]model.ProgressRecord, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) ClaimPendingBatch(_ context.Context, jobID string, n int) ([]model.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	var batch []model.ProgressRecord
	for _, r := range s.records {
		if len(batch) >= n {
			break
		}
		if r.JobID == jobID && r.Status == model.ProgressPending {
			r.Status = model.ProgressProcessing
			batch = append(batch, *r)
		}
	}
	return batch, nil
}

func (s *fakeStore) SetStatus(_ context.Context, params core.SetProgressParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.JobID == params.JobID && r.TargetID == params.TargetID {
			r.Status = params.Status
			r.Error = params.Error
			if params.IncrementRetry {
				r.RetryCount++
			}
			return nil
		}
	}
	return errors.New("progress record not found")
}

func (s *fakeStore) StatusCounts(context.Context, string) (map[model.ProgressStatus]int, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) LastProcessed(context.Context, string) (*model.LastProcessed, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) ResetFailed(context.Context, string, int) (int, error) {
	return 0, errors.New("not implemented")
}

func (s *fakeStore) RequeueStaleProcessing(context.Context, time.Duration, int) (int64, error) {
	return 0, errors.New("not implemented")
}

func (s *fakeStore) TargetStats(context.Context) (*model.TargetStats, error) {
	return nil, errors.New("not implemented")
}

// AbuseLogRepository

func (s *fakeStore) Insert(_ context.Context, d *model.Detection) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detections = append(s.detections, *d)
	return int64(len(s.detections)), nil
}

func (s *fakeStore) Recent(context.Context, string, int) ([]model.Detection, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) MarkRecovered(context.Context, int64, time.Time) error {
	return errors.New("not implemented")
}

// CatalogRepository

func (s *fakeStore) ResolveTargets(context.Context, *model.FilterSpec) ([]model.Target, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) CountTargets(context.Context, *model.FilterSpec) (int, error) {
	return 0, errors.New("not implemented")
}

func (s *fakeStore) MarkProcessed(_ context.Context, targetIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = append(s.processed, targetIDs...)
	return len(targetIDs), nil
}

type fetcherFunc func(ctx context.Context, target model.Target) (*core.FetchResult, error)

func (f fetcherFunc) Fetch(ctx context.Context, target model.Target) (*core.FetchResult, error) {
	return f(ctx, target)
}

func okResult() *core.FetchResult {
	return &core.FetchResult{StatusCode: 200, Data: json.RawMessage(`{"title":"ok"}`)}
}

func testConfig(batchSize int) config.CrawlConfig {
	return config.CrawlConfig{
		BatchSize:           batchSize,
		ConcurrentLimit:     batchSize,
		InterBatchDelay:     0,
		AutoPause:           true,
		AbuseRatioThreshold: 0.5,
		RecentDetections:    5,
	}
}

func newTestRunner(t *testing.T, store *fakeStore, fetch fetcherFunc, cfg config.CrawlConfig, retry *retrypolicy.Policy) *Runner {
	t.Helper()
	r, err := New(Options{
		Jobs:     store,
		Progress: store,
		AbuseLog: store,
		Catalog:  store,
		Fetcher:  fetch,
		Retry:    retry,
		Config:   cfg,
	})
	require.NoError(t, err)
	return r
}

func TestNew_RequiredDependencies(t *testing.T) {
	store := newFakeStore("job-1", 0)
	fetch := fetcherFunc(func(context.Context, model.Target) (*core.FetchResult, error) {
		return okResult(), nil
	})

	tests := []struct {
		name string
		opts Options
	}{
		{name: "missing jobs", opts: Options{Progress: store, AbuseLog: store, Catalog: store, Fetcher: fetch}},
		{name: "missing progress", opts: Options{Jobs: store, AbuseLog: store, Catalog: store, Fetcher: fetch}},
		{name: "missing abuse log", opts: Options{Jobs: store, Progress: store, Catalog: store, Fetcher: fetch}},
		{name: "missing catalog", opts: Options{Jobs: store, Progress: store, AbuseLog: store, Fetcher: fetch}},
		{name: "missing fetcher", opts: Options{Jobs: store, Progress: store, AbuseLog: store, Catalog: store}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestRunner_Run_ProcessesAllBatchesAndCompletes(t *testing.T) {
	store := newFakeStore("job-1", 23)
	var fetches atomic.Int64
	fetch := fetcherFunc(func(context.Context, model.Target) (*core.FetchResult, error) {
		fetches.Add(1)
		return okResult(), nil
	})
	r := newTestRunner(t, store, fetch, testConfig(10), nil)

	err := r.Run(context.Background(), store.job)

	require.NoError(t, err)
	assert.Equal(t, int64(23), fetches.Load())
	assert.Equal(t, model.JobStatusCompleted, store.job.Status)
	assert.Equal(t, 23, store.completed)
	assert.Equal(t, 0, store.failed)
	assert.Len(t, store.processed, 23)
	for _, rec := range store.records {
		assert.Equal(t, model.ProgressCompleted, rec.Status, "target %s", rec.TargetID)
	}
}

func TestRunner_Run_AutoPausesWhenAbuseRatioExceeded(t *testing.T) {
	store := newFakeStore("job-1", 10)
	// Six of ten targets answer 403, tripping the 0.5 threshold.
	blocked := map[string]bool{"t-00": true, "t-01": true, "t-02": true, "t-03": true, "t-04": true, "t-05": true}
	fetch := fetcherFunc(func(_ context.Context, target model.Target) (*core.FetchResult, error) {
		if blocked[target.ID] {
			return &core.FetchResult{StatusCode: 403, BodyExcerpt: "forbidden"}, nil
		}
		return okResult(), nil
	})
	r := newTestRunner(t, store, fetch, testConfig(10), nil)

	err := r.Run(context.Background(), store.job)

	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPaused, store.job.Status)
	assert.Contains(t, store.lastErrMsg, "auto-paused")
	assert.Len(t, store.detections, 6)
	for _, d := range store.detections {
		assert.Equal(t, model.DetectionIPBlock, d.Type)
		require.NotNil(t, d.JobID)
		assert.Equal(t, "job-1", *d.JobID)
	}
	// Abuse failures are terminal, never retried.
	for id := range blocked {
		rec := store.record(id)
		assert.Equal(t, model.ProgressFailed, rec.Status)
		assert.Zero(t, rec.RetryCount)
	}
	assert.Equal(t, 4, store.completed)
	assert.Equal(t, 6, store.failed)
}

func TestRunner_Run_ContinuesAtExactThreshold(t *testing.T) {
	store := newFakeStore("job-1", 10)
	// Exactly half the batch is abuse; the trip requires strictly more.
	blocked := map[string]bool{"t-00": true, "t-01": true, "t-02": true, "t-03": true, "t-04": true}
	fetch := fetcherFunc(func(_ context.Context, target model.Target) (*core.FetchResult, error) {
		if blocked[target.ID] {
			return &core.FetchResult{StatusCode: 429}, nil
		}
		return okResult(), nil
	})
	r := newTestRunner(t, store, fetch, testConfig(10), nil)

	err := r.Run(context.Background(), store.job)

	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, store.job.Status)
	assert.Equal(t, 5, store.completed)
	assert.Equal(t, 5, store.failed)
}

func TestRunner_Run_RetriesOrdinaryFailureThenSucceeds(t *testing.T) {
	store := newFakeStore("job-1", 3)
	var attempts sync.Map
	fetch := fetcherFunc(func(_ context.Context, target model.Target) (*core.FetchResult, error) {
		if target.ID == "t-01" {
			if _, retried := attempts.LoadOrStore(target.ID, true); !retried {
				// 404 carries no abuse signal, so the retry policy applies.
				return &core.FetchResult{StatusCode: 404, BodyExcerpt: "not found"}, nil
			}
		}
		return okResult(), nil
	})
	retry := retrypolicy.New(retrypolicy.Config{
		MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, ExponentialBase: 2,
	})
	r := newTestRunner(t, store, fetch, testConfig(10), retry)

	err := r.Run(context.Background(), store.job)

	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, store.job.Status)
	rec := store.record("t-01")
	assert.Equal(t, model.ProgressCompleted, rec.Status)
	assert.Equal(t, 1, rec.RetryCount)
	assert.Equal(t, 3, store.completed)
	assert.Equal(t, 0, store.failed)
	assert.Empty(t, store.detections)
}

func TestRunner_Run_PanicIsIsolatedToItsTarget(t *testing.T) {
	store := newFakeStore("job-1", 3)
	fetch := fetcherFunc(func(_ context.Context, target model.Target) (*core.FetchResult, error) {
		if target.ID == "t-01" {
			panic("boom")
		}
		return okResult(), nil
	})
	noRetry := retrypolicy.New(retrypolicy.Config{
		MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, ExponentialBase: 2,
	})
	r := newTestRunner(t, store, fetch, testConfig(10), noRetry)

	err := r.Run(context.Background(), store.job)

	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, store.job.Status)
	rec := store.record("t-01")
	assert.Equal(t, model.ProgressFailed, rec.Status)
	assert.Contains(t, rec.Error, "fetch panicked")
	assert.Equal(t, model.ProgressCompleted, store.record("t-00").Status)
	assert.Equal(t, model.ProgressCompleted, store.record("t-02").Status)
	assert.Equal(t, 2, store.completed)
	assert.Equal(t, 1, store.failed)
}

func TestRunner_Run_TransportFailureBecomesNetworkDetection(t *testing.T) {
	store := newFakeStore("job-1", 1)
	fetch := fetcherFunc(func(context.Context, model.Target) (*core.FetchResult, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	cfg := testConfig(10)
	cfg.AutoPause = false
	r := newTestRunner(t, store, fetch, cfg, nil)

	err := r.Run(context.Background(), store.job)

	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, store.job.Status)
	require.Len(t, store.detections, 1)
	assert.Equal(t, model.DetectionNetworkError, store.detections[0].Type)
	assert.Equal(t, model.RecoverRetryImmediately, store.detections[0].RecoveryAction)
	assert.Equal(t, model.ProgressFailed, store.record("t-00").Status)
}

func TestRunner_Run_StoreErrorFailsJob(t *testing.T) {
	store := newFakeStore("job-1", 5)
	store.claimErr = errors.New("connection reset")
	fetch := fetcherFunc(func(context.Context, model.Target) (*core.FetchResult, error) {
		return okResult(), nil
	})
	r := newTestRunner(t, store, fetch, testConfig(10), nil)

	err := r.Run(context.Background(), store.job)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim batch")
	assert.Equal(t, model.JobStatusFailed, store.job.Status)
	assert.Contains(t, store.lastErrMsg, "connection reset")
}

func TestRunner_Run_CounterErrorFailsJob(t *testing.T) {
	store := newFakeStore("job-1", 2)
	store.countersErr = errors.New("counters unavailable")
	fetch := fetcherFunc(func(context.Context, model.Target) (*core.FetchResult, error) {
		return okResult(), nil
	})
	r := newTestRunner(t, store, fetch, testConfig(10), nil)

	err := r.Run(context.Background(), store.job)

	require.Error(t, err)
	assert.Equal(t, model.JobStatusFailed, store.job.Status)
}

func TestRunner_Run_CancelledBeforeFirstBatch(t *testing.T) {
	store := newFakeStore("job-1", 5)
	var fetches atomic.Int64
	fetch := fetcherFunc(func(context.Context, model.Target) (*core.FetchResult, error) {
		fetches.Add(1)
		return okResult(), nil
	})
	r := newTestRunner(t, store, fetch, testConfig(10), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx, store.job)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fetches.Load())
	for _, rec := range store.records {
		assert.Equal(t, model.ProgressPending, rec.Status)
	}
}

func TestRunner_Run_DispatchedBatchFinishesDespiteCancel(t *testing.T) {
	store := newFakeStore("job-1", 4)
	ctx, cancel := context.WithCancel(context.Background())

	var fetches atomic.Int64
	fetch := fetcherFunc(func(context.Context, model.Target) (*core.FetchResult, error) {
		// Cancel mid-batch; the remaining targets must still be fetched.
		cancel()
		fetches.Add(1)
		return okResult(), nil
	})
	r := newTestRunner(t, store, fetch, testConfig(10), nil)

	err := r.Run(ctx, store.job)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(4), fetches.Load())
	assert.Equal(t, 4, store.completed)
	for _, rec := range store.records {
		assert.Equal(t, model.ProgressCompleted, rec.Status)
	}
}

func TestRunner_Run_RecordsLastTargetWithSummary(t *testing.T) {
	store := newFakeStore("job-1", 1)
	store.job.Extract = "title"
	fetch := fetcherFunc(func(context.Context, model.Target) (*core.FetchResult, error) {
		return &core.FetchResult{StatusCode: 200, Data: json.RawMessage(`{"title":"An Answer"}`)}, nil
	})
	r := newTestRunner(t, store, fetch, testConfig(10), nil)

	err := r.Run(context.Background(), store.job)

	require.NoError(t, err)
	assert.Equal(t, "t-00: An Answer", store.lastTarget)
}
