package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/data/pgxutil"
	"github.com/crawlspace/harvester/internal/domain/model"
)

const progressColumns = `id, job_id, target_id, target_address, status, error,
	retry_count, created_at, updated_at`

// ProgressRepo persists per-target progress rows. The set of a job's pending
// rows is its resume checkpoint.
type ProgressRepo struct {
	DB           *sql.DB
	logger       *slog.Logger
	timeProvider TimeProvider
}

// ProgressRepoOptions configures a ProgressRepo.
type ProgressRepoOptions struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// NewProgressRepo creates a ProgressRepo with the given options.
func NewProgressRepo(db *sql.DB, opts ProgressRepoOptions) *ProgressRepo {
	tp := opts.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressRepo{DB: db, logger: logger, timeProvider: tp}
}

// SeedPending inserts one pending row per target. Existing (job, target)
// pairs are left untouched so re-seeding after a crash or filter re-resolve
// is idempotent. Returns the number of rows actually inserted.
func (r *ProgressRepo) SeedPending(ctx context.Context, jobID string, targets []model.Target) (int, error) {
	if strings.TrimSpace(jobID) == "" {
		return 0, errors.New("job id is required")
	}
	if len(targets) == 0 {
		return 0, nil
	}

	ids := make([]string, len(targets))
	addresses := make([]string, len(targets))
	for i, t := range targets {
		ids[i] = t.ID
		addresses[i] = t.Address
	}

	var inserted int
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO progress (job_id, target_id, target_address, status, created_at, updated_at)
				SELECT $1, t.id, t.address, 'pending', $2, $2
				FROM unnest($3::text[], $4::text[]) AS t(id, address)
				ON CONFLICT (job_id, target_id) DO NOTHING
			`, jobID, r.timeProvider.Now().UTC(), ids, addresses)
			if err != nil {
				return fmt.Errorf("seed progress: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			inserted = int(n)
			return nil
		},
	})
	if txErr != nil {
		return 0, mapDBError("seed progress", txErr)
	}
	return inserted, nil
}

// NextPendingBatch returns up to n pending rows oldest-created-first without
// changing their status. Read-only preview of what a claim would take.
func (r *ProgressRepo) NextPendingBatch(ctx context.Context, jobID string, n int) ([]model.ProgressRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+progressColumns+`
		FROM progress
		WHERE job_id = $1 AND status = 'pending'
		ORDER BY created_at, id
		LIMIT $2
	`, jobID, n)
	if err != nil {
		return nil, mapDBError("next pending batch", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	return collectProgressRows(rows)
}

// SQL used by ClaimPendingBatch to atomically move pending rows to processing.
const claimPendingBatchSQL = `
  UPDATE progress p
  SET status = 'processing', updated_at = $3
  FROM (
    SELECT id FROM progress
    WHERE job_id = $1 AND status = 'pending'
    ORDER BY created_at, id
    LIMIT $2
    FOR UPDATE SKIP LOCKED
  ) picked
  WHERE p.id = picked.id
  RETURNING p.id, p.job_id, p.target_id, p.target_address, p.status, p.error,
    p.retry_count, p.created_at, p.updated_at`

// ClaimPendingBatch atomically moves up to n pending rows to processing and
// returns them oldest-created-first. SKIP LOCKED keeps two claimers from ever
// receiving the same row.
func (r *ProgressRepo) ClaimPendingBatch(ctx context.Context, jobID string, n int) ([]model.ProgressRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	var claimed []model.ProgressRecord
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx *sql.Tx) error {
			rows, err := tx.QueryContext(ctx, claimPendingBatchSQL,
				jobID, n, r.timeProvider.Now().UTC())
			if err != nil {
				return fmt.Errorf("claim batch: %w", err)
			}
			defer rows.Close() //nolint:errcheck // read-only cursor

			claimed, err = collectProgressRows(rows)
			return err
		},
	})
	if txErr != nil {
		return nil, mapDBError("claim pending batch", txErr)
	}

	// RETURNING order is not defined, so restore claim order here.
	sortProgressByCreated(claimed)
	return claimed, nil
}

// SetStatus updates a single (job, target) row. Idempotent; refreshes
// updated_at on every call and bumps retry_count when asked.
func (r *ProgressRepo) SetStatus(ctx context.Context, params core.SetProgressParams) error {
	if !params.Status.Valid() {
		return fmt.Errorf("invalid progress status: %q", params.Status)
	}

	increment := 0
	if params.IncrementRetry {
		increment = 1
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE progress
		SET status = $3,
		    error = $4,
		    retry_count = retry_count + $5,
		    updated_at = $6
		WHERE job_id = $1 AND target_id = $2
	`, params.JobID, params.TargetID, params.Status, params.Error, increment,
		r.timeProvider.Now().UTC())
	if err != nil {
		return mapDBError("set progress status", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProgressNotFound
	}
	return nil
}

// StatusCounts returns the number of rows per status for a job. Statuses with
// no rows are present with a zero count.
func (r *ProgressRepo) StatusCounts(ctx context.Context, jobID string) (map[model.ProgressStatus]int, error) {
	counts := map[model.ProgressStatus]int{
		model.ProgressPending:    0,
		model.ProgressProcessing: 0,
		model.ProgressCompleted:  0,
		model.ProgressFailed:     0,
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, count(*)
		FROM progress
		WHERE job_id = $1
		GROUP BY status
	`, jobID)
	if err != nil {
		return nil, mapDBError("progress status counts", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	for rows.Next() {
		var status model.ProgressStatus
		var count int
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, fmt.Errorf("scan status count: %w", scanErr)
		}
		counts[status] = count
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, mapDBError("progress status counts", rowsErr)
	}
	return counts, nil
}

// LastProcessed returns the most recently finished target of a job, or nil
// when nothing has finished yet.
func (r *ProgressRepo) LastProcessed(ctx context.Context, jobID string) (*model.LastProcessed, error) {
	var lp model.LastProcessed
	err := r.DB.QueryRowContext(ctx, `
		SELECT target_id, target_address, updated_at
		FROM progress
		WHERE job_id = $1 AND status IN ('completed', 'failed')
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`, jobID).Scan(&lp.TargetID, &lp.TargetAddress, &lp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapDBError("last processed", err)
	}
	return &lp, nil
}

// ResetFailed returns failed rows with retry_count below the cap to pending
// and clears their error. Returns the number of rows reset.
func (r *ProgressRepo) ResetFailed(ctx context.Context, jobID string, maxRetryCount int) (int, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE progress
		SET status = 'pending', error = '', updated_at = $3
		WHERE job_id = $1 AND status = 'failed' AND retry_count < $2
	`, jobID, maxRetryCount, r.timeProvider.Now().UTC())
	if err != nil {
		return 0, mapDBError("reset failed progress", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// RequeueStaleProcessing returns rows stuck in processing longer than maxAge
// to pending. Cleans up after runs that died without reconciling.
func (r *ProgressRepo) RequeueStaleProcessing(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if maxAge <= 0 {
		return 0, errors.New("maxAge must be positive")
	}
	if batchSize <= 0 {
		return 0, errors.New("batchSize must be positive")
	}

	now := r.timeProvider.Now().UTC()
	cutoff := now.Add(-maxAge)

	var requeued int64
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `
				UPDATE progress p
				SET status = 'pending', updated_at = $2
				FROM (
					SELECT id FROM progress
					WHERE status = 'processing' AND updated_at < $1
					ORDER BY updated_at
					LIMIT $3
					FOR UPDATE SKIP LOCKED
				) stale
				WHERE p.id = stale.id
			`, cutoff, now, batchSize)
			if err != nil {
				return fmt.Errorf("requeue stale: %w", err)
			}
			requeued, err = res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			return nil
		},
	})
	if txErr != nil {
		return 0, mapDBError("requeue stale processing", txErr)
	}

	if requeued > 0 {
		r.logger.InfoContext(ctx, "requeued stale processing targets",
			"count", requeued,
			"max_age", maxAge,
		)
	}
	return requeued, nil
}

// TargetStats counts progress rows by terminal status across all jobs.
func (r *ProgressRepo) TargetStats(ctx context.Context) (*model.TargetStats, error) {
	var s model.TargetStats
	err := r.DB.QueryRowContext(ctx, `
	  SELECT
	    count(*)                                     AS total,
	    count(*) FILTER (WHERE status = 'completed') AS completed,
	    count(*) FILTER (WHERE status = 'failed')    AS failed
	  FROM progress
	`).Scan(&s.Total, &s.Completed, &s.Failed)
	if err != nil {
		return nil, mapDBError("target stats", err)
	}

	finished := s.Completed + s.Failed
	if finished > 0 {
		s.SuccessRate = float64(s.Completed) / float64(finished)
	}
	return &s, nil
}

func collectProgressRows(rows *sql.Rows) ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	for rows.Next() {
		var rec model.ProgressRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.JobID,
			&rec.TargetID,
			&rec.TargetAddress,
			&rec.Status,
			&rec.Error,
			&rec.RetryCount,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func sortProgressByCreated(records []model.ProgressRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
