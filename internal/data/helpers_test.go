package data

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crawlspace/harvester/internal/domain/model"
)

// mustCreateJob inserts a pending job row for repo tests.
func mustCreateJob(t *testing.T, db *sql.DB, name string) *model.Job {
	t.Helper()
	repo := NewJobRepo(db, JobRepoOptions{})
	job, err := repo.Create(context.Background(), &model.CreateJobRequest{Name: name}, 0)
	require.NoError(t, err)
	return job
}

// mustSeed seeds n pending progress rows for a job and returns the targets.
func mustSeed(t *testing.T, repo *ProgressRepo, jobID string, n int) []model.Target {
	t.Helper()
	targets := make([]model.Target, n)
	for i := range targets {
		id := fmt.Sprintf("t-%02d", i)
		targets[i] = model.Target{ID: id, Address: "https://example.com/items/" + id}
	}
	inserted, err := repo.SeedPending(context.Background(), jobID, targets)
	require.NoError(t, err)
	require.Equal(t, n, inserted)
	return targets
}

// mustInsertItem inserts a catalog row with the given column overrides.
func mustInsertItem(t *testing.T, db *sql.DB, itemID string, opts itemRow) {
	t.Helper()
	if opts.url == "" {
		opts.url = "https://example.com/items/" + itemID
	}
	tags := opts.tags
	if tags == nil {
		tags = []string{}
	}
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO items (item_id, source_job_id, title, content, author, url,
			create_time, answer_count, follow_count, view_count, tags, processed)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, itemID, opts.sourceJobID, opts.title, opts.content, opts.author, opts.url,
		opts.createTime, opts.answerCount, opts.followCount, opts.viewCount, tags, opts.processed)
	require.NoError(t, err)
}

type itemRow struct {
	sourceJobID string
	title       string
	content     string
	author      string
	url         string
	createTime  sql.NullTime
	answerCount int
	followCount int
	viewCount   int
	tags        []string
	processed   bool
}
