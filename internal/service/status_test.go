package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/crawlspace/harvester/config"
	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/domain/model"
	apperrors "github.com/crawlspace/harvester/internal/errors"
	"github.com/crawlspace/harvester/internal/mocks"
)

func TestCrawlService_GetStatus(t *testing.T) {
	svc, m := newTestService(t, nil)
	ctx := context.Background()

	job := &model.Job{ID: "job-1", Status: model.JobStatusPaused, Total: 6}
	last := &model.LastProcessed{TargetID: "t-3", TargetAddress: "https://example.com/items/t-3"}
	detections := []model.Detection{{Type: model.DetectionRateLimit}}

	m.jobs.EXPECT().GetByID(ctx, "job-1").Return(job, nil)
	m.progress.EXPECT().StatusCounts(ctx, "job-1").Return(map[model.ProgressStatus]int{
		model.ProgressPending:    2,
		model.ProgressProcessing: 0,
		model.ProgressCompleted:  3,
		model.ProgressFailed:     1,
	}, nil)
	m.progress.EXPECT().LastProcessed(ctx, "job-1").Return(last, nil)
	m.abuseLog.EXPECT().Recent(ctx, "job-1", gomock.Any()).Return(detections, nil)

	status, err := svc.GetStatus(ctx, "job-1")

	require.NoError(t, err)
	assert.Equal(t, job, status.Job)
	require.NotNil(t, status.ResumeInfo)
	assert.True(t, status.ResumeInfo.CanResume)
	assert.Equal(t, last, status.ResumeInfo.LastProcessed)
	assert.Equal(t, detections, status.ResumeInfo.RecentDetections)
	assert.InDelta(t, 100.0*4/6, status.ResumeInfo.ProgressPercentage, 0.01)
}

func TestCrawlService_GetStatus_NothingPendingBlocksResume(t *testing.T) {
	svc, m := newTestService(t, nil)
	ctx := context.Background()

	m.jobs.EXPECT().GetByID(ctx, "job-1").
		Return(&model.Job{ID: "job-1", Status: model.JobStatusCompleted}, nil)
	m.progress.EXPECT().StatusCounts(ctx, "job-1").Return(map[model.ProgressStatus]int{
		model.ProgressPending:    0,
		model.ProgressProcessing: 0,
		model.ProgressCompleted:  4,
		model.ProgressFailed:     0,
	}, nil)
	m.progress.EXPECT().LastProcessed(ctx, "job-1").Return(nil, nil)
	m.abuseLog.EXPECT().Recent(ctx, "job-1", gomock.Any()).Return(nil, nil)

	status, err := svc.GetStatus(ctx, "job-1")

	require.NoError(t, err)
	assert.False(t, status.ResumeInfo.CanResume)
	assert.InDelta(t, 100.0, status.ResumeInfo.ProgressPercentage, 0.01)
}

func TestCrawlService_ListJobs(t *testing.T) {
	svc, m := newTestService(t, nil)
	ctx := context.Background()

	jobs := []*model.Job{{ID: "job-2"}, {ID: "job-1"}}
	paused := model.JobStatusPaused
	m.jobs.EXPECT().List(ctx, &paused).Return(jobs, nil)

	got, err := svc.ListJobs(ctx, &paused)

	require.NoError(t, err)
	assert.Equal(t, jobs, got)
}

func TestCrawlService_ListJobs_InvalidStatusFilter(t *testing.T) {
	svc, _ := newTestService(t, nil)

	bogus := model.JobStatus("definitely-not-a-status")
	_, err := svc.ListJobs(context.Background(), &bogus)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestCrawlService_RetryFailed(t *testing.T) {
	svc, m := newTestService(t, nil)
	ctx := context.Background()

	m.jobs.EXPECT().GetByID(ctx, "job-1").
		Return(&model.Job{ID: "job-1", Status: model.JobStatusPaused}, nil)
	m.progress.EXPECT().ResetFailed(ctx, "job-1", 3).Return(7, nil)
	m.jobs.EXPECT().AddCounters(ctx, core.AddCountersParams{
		JobID:       "job-1",
		FailedDelta: -7,
	}).Return(nil)

	count, err := svc.RetryFailed(ctx, "job-1", 3)

	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestCrawlService_RetryFailed_NoCapUsesMaxInt(t *testing.T) {
	svc, m := newTestService(t, nil)
	ctx := context.Background()

	m.jobs.EXPECT().GetByID(ctx, "job-1").
		Return(&model.Job{ID: "job-1", Status: model.JobStatusFailed}, nil)
	m.progress.EXPECT().ResetFailed(ctx, "job-1", math.MaxInt).Return(0, nil)

	count, err := svc.RetryFailed(ctx, "job-1", 0)

	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCrawlService_RetryFailed_StateGuards(t *testing.T) {
	svc, m := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		status model.JobStatus
	}{
		{name: "running job must be paused first", status: model.JobStatusRunning},
		{name: "completed job", status: model.JobStatusCompleted},
		{name: "cancelled job", status: model.JobStatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.jobs.EXPECT().GetByID(ctx, "job-1").
				Return(&model.Job{ID: "job-1", Status: tt.status}, nil)

			_, err := svc.RetryFailed(ctx, "job-1", 0)

			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidState))
		})
	}
}

func TestCrawlService_Statistics(t *testing.T) {
	svc, m := newTestService(t, nil)
	ctx := context.Background()

	jobStats := &model.JobStats{Total: 4, Running: 1, Completed: 2, Paused: 1}
	targetStats := &model.TargetStats{Total: 100, Completed: 80, Failed: 10, SuccessRate: 80.0 / 90.0}

	m.jobs.EXPECT().Stats(gomock.Any()).Return(jobStats, nil)
	m.progress.EXPECT().TargetStats(gomock.Any()).Return(targetStats, nil)
	m.jobs.EXPECT().RunningIDs(gomock.Any()).Return([]string{"job-3"}, nil)

	stats, err := svc.Statistics(ctx)

	require.NoError(t, err)
	assert.Equal(t, *jobStats, stats.Jobs)
	assert.Equal(t, *targetStats, stats.Targets)
	assert.Equal(t, []string{"job-3"}, stats.RunningJobs)
}

func TestCrawlService_Statistics_PropagatesQueryError(t *testing.T) {
	svc, m := newTestService(t, nil)

	m.jobs.EXPECT().Stats(gomock.Any()).Return(nil, errors.New("store down"))
	m.progress.EXPECT().TargetStats(gomock.Any()).Return(&model.TargetStats{}, nil).AnyTimes()
	m.jobs.EXPECT().RunningIDs(gomock.Any()).Return(nil, nil).AnyTimes()

	_, err := svc.Statistics(context.Background())
	assert.ErrorContains(t, err, "job stats")
}

func newCachedService(t *testing.T) (*CrawlService, *serviceMocks, *mocks.MockCacheRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := &serviceMocks{
		jobs:     mocks.NewMockJobRepository(ctrl),
		progress: mocks.NewMockProgressRepository(ctrl),
		abuseLog: mocks.NewMockAbuseLogRepository(ctrl),
		catalog:  mocks.NewMockCatalogRepository(ctrl),
	}
	cache := mocks.NewMockCacheRepository(ctrl)
	svc, err := NewCrawlService(CrawlServiceOptions{
		Jobs:     m.jobs,
		Progress: m.progress,
		AbuseLog: m.abuseLog,
		Catalog:  m.catalog,
		Runner:   &blockingRunner{},
		Cache:    cache,
		CacheTTL: config.CacheConfig{ResumeInfoTTL: 30 * time.Second, StatisticsTTL: 15 * time.Second},
	})
	require.NoError(t, err)
	return svc, m, cache
}

func TestCrawlService_Statistics_ServedFromCache(t *testing.T) {
	svc, _, cache := newCachedService(t)
	ctx := context.Background()

	cached := model.Statistics{Jobs: model.JobStats{Total: 9}}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)
	cache.EXPECT().Get(ctx, statisticsKey).Return(raw, nil)

	stats, err := svc.Statistics(ctx)

	require.NoError(t, err)
	assert.Equal(t, 9, stats.Jobs.Total)
}

func TestCrawlService_Statistics_CacheMissFallsThroughAndStores(t *testing.T) {
	svc, m, cache := newCachedService(t)
	ctx := context.Background()

	cache.EXPECT().Get(ctx, statisticsKey).Return(nil, nil)
	m.jobs.EXPECT().Stats(gomock.Any()).Return(&model.JobStats{Total: 1}, nil)
	m.progress.EXPECT().TargetStats(gomock.Any()).Return(&model.TargetStats{}, nil)
	m.jobs.EXPECT().RunningIDs(gomock.Any()).Return(nil, nil)
	cache.EXPECT().Set(ctx, statisticsKey, gomock.Any(), 15*time.Second).Return(nil)

	stats, err := svc.Statistics(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Jobs.Total)
}

func TestCrawlService_GetStatus_BrokenCacheDegradesToStore(t *testing.T) {
	svc, m, cache := newCachedService(t)
	ctx := context.Background()

	m.jobs.EXPECT().GetByID(ctx, "job-1").
		Return(&model.Job{ID: "job-1", Status: model.JobStatusPaused}, nil)
	cache.EXPECT().Get(ctx, resumeInfoKeyPrefix+"job-1").Return(nil, errors.New("redis gone"))
	m.progress.EXPECT().StatusCounts(ctx, "job-1").Return(map[model.ProgressStatus]int{
		model.ProgressPending: 1,
	}, nil)
	m.progress.EXPECT().LastProcessed(ctx, "job-1").Return(nil, nil)
	m.abuseLog.EXPECT().Recent(ctx, "job-1", gomock.Any()).Return(nil, nil)
	cache.EXPECT().Set(ctx, resumeInfoKeyPrefix+"job-1", gomock.Any(), 30*time.Second).Return(nil)

	status, err := svc.GetStatus(ctx, "job-1")

	require.NoError(t, err)
	assert.True(t, status.ResumeInfo.CanResume)
}
