package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/domain/model"
	apperrors "github.com/crawlspace/harvester/internal/errors"
	"github.com/crawlspace/harvester/internal/testutil"
)

func TestJobRepo_CreateAndGet(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoOptions{})
		ctx := context.Background()

		minAnswers := 10
		req := &model.CreateJobRequest{
			Name:        "hot questions",
			Description: "questions with traction",
			Filter: model.FilterSpec{
				AnswerCountMin: &minAnswers,
				TitleKeywords:  []string{"golang"},
				OrderBy:        model.OrderByAnswerCount,
				OrderDesc:      true,
			},
			Extract: "title",
		}

		created, err := repo.Create(ctx, req, 42)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, model.JobStatusPending, created.Status)
		assert.Equal(t, 42, created.Total)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "hot questions", got.Name)
		assert.Equal(t, "title", got.Extract)
		require.NotNil(t, got.Filter.AnswerCountMin)
		assert.Equal(t, 10, *got.Filter.AnswerCountMin)
		assert.Equal(t, []string{"golang"}, got.Filter.TitleKeywords)
		assert.True(t, got.Filter.OrderDesc)
	})
}

func TestJobRepo_GetByID_NotFound(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoOptions{})

		_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_List(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoOptions{})
		ctx := context.Background()

		first := mustCreateJob(t, db, "first")
		second := mustCreateJob(t, db, "second")
		require.NoError(t, repo.UpdateStatus(ctx, second.ID, model.JobStatusRunning, ""))

		all, err := repo.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 2)

		running := model.JobStatusRunning
		onlyRunning, err := repo.List(ctx, &running)
		require.NoError(t, err)
		require.Len(t, onlyRunning, 1)
		assert.Equal(t, second.ID, onlyRunning[0].ID)

		pending := model.JobStatusPending
		onlyPending, err := repo.List(ctx, &pending)
		require.NoError(t, err)
		require.Len(t, onlyPending, 1)
		assert.Equal(t, first.ID, onlyPending[0].ID)
	})
}

func TestJobRepo_UpdateStatus_LegalTransitions(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoOptions{})
		ctx := context.Background()
		job := mustCreateJob(t, db, "lifecycle")

		require.NoError(t, repo.UpdateStatus(ctx, job.ID, model.JobStatusRunning, ""))
		require.NoError(t, repo.UpdateStatus(ctx, job.ID, model.JobStatusPaused, "operator"))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPaused, got.Status)
		require.NotNil(t, got.LastError)
		assert.Equal(t, "operator", *got.LastError)

		require.NoError(t, repo.UpdateStatus(ctx, job.ID, model.JobStatusRunning, ""))
		require.NoError(t, repo.UpdateStatus(ctx, job.ID, model.JobStatusCompleted, ""))
	})
}

func TestJobRepo_UpdateStatus_RejectsIllegalTransitions(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoOptions{})
		ctx := context.Background()

		// A pending job cannot jump straight to completed.
		job := mustCreateJob(t, db, "illegal")
		err := repo.UpdateStatus(ctx, job.ID, model.JobStatusCompleted, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidState))

		// Cancelled is terminal.
		require.NoError(t, repo.UpdateStatus(ctx, job.ID, model.JobStatusCancelled, ""))
		err = repo.UpdateStatus(ctx, job.ID, model.JobStatusRunning, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidState))
	})
}

func TestJobRepo_UpdateStatus_UnknownJob(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoOptions{})

		err := repo.UpdateStatus(context.Background(), "00000000-0000-0000-0000-000000000000",
			model.JobStatusRunning, "")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_AddCounters(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoOptions{})
		ctx := context.Background()
		job := mustCreateJob(t, db, "counters")

		require.NoError(t, repo.AddCounters(ctx, core.AddCountersParams{
			JobID:          job.ID,
			CompletedDelta: 3,
			FailedDelta:    2,
			LastTarget:     "t-05: a summary",
		}))
		require.NoError(t, repo.AddCounters(ctx, core.AddCountersParams{
			JobID:          job.ID,
			CompletedDelta: 1,
		}))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Completed)
		assert.Equal(t, 2, got.Failed)
		require.NotNil(t, got.LastTarget)
		// An empty LastTarget leaves the previous value in place.
		assert.Equal(t, "t-05: a summary", *got.LastTarget)
	})
}

func TestJobRepo_AddCounters_NegativeDeltaFloorsAtZero(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoOptions{})
		ctx := context.Background()
		job := mustCreateJob(t, db, "rollback")

		require.NoError(t, repo.AddCounters(ctx, core.AddCountersParams{JobID: job.ID, FailedDelta: 2}))
		require.NoError(t, repo.AddCounters(ctx, core.AddCountersParams{JobID: job.ID, FailedDelta: -5}))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Failed)
	})
}

func TestJobRepo_StatsAndRunningIDs(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoOptions{})
		ctx := context.Background()

		mustCreateJob(t, db, "pending one")
		running := mustCreateJob(t, db, "running one")
		require.NoError(t, repo.UpdateStatus(ctx, running.ID, model.JobStatusRunning, ""))
		done := mustCreateJob(t, db, "completed one")
		require.NoError(t, repo.UpdateStatus(ctx, done.ID, model.JobStatusRunning, ""))
		require.NoError(t, repo.UpdateStatus(ctx, done.ID, model.JobStatusCompleted, ""))

		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 1, stats.Pending)
		assert.Equal(t, 1, stats.Running)
		assert.Equal(t, 1, stats.Completed)
		assert.Zero(t, stats.Failed)

		ids, err := repo.RunningIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{running.ID}, ids)
	})
}
