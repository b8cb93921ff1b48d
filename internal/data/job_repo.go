// Package data implements the persistence layer over PostgreSQL and Redis.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/data/pgxutil"
	apperrors "github.com/crawlspace/harvester/internal/errors"
	"github.com/crawlspace/harvester/internal/domain/model"
)

const jobColumns = `id, name, description, filter_json, extract_expr, status,
	total, completed, failed, last_target, last_error, created_at, updated_at`

// JobRepo persists batch crawl jobs.
type JobRepo struct {
	DB           *sql.DB
	logger       *slog.Logger
	timeProvider TimeProvider
}

// JobRepoOptions configures a JobRepo.
type JobRepoOptions struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// NewJobRepo creates a JobRepo with the given options.
func NewJobRepo(db *sql.DB, opts JobRepoOptions) *JobRepo {
	tp := opts.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRepo{DB: db, logger: logger, timeProvider: tp}
}

// Create inserts a new pending job together with its progress seed inside one
// transaction. total is the resolved target count; the seed itself is
// performed by the caller through ProgressRepo.SeedPending on the same tx
// boundary via CreateInTx, or after commit for large target sets.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest, total int) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation("create job", err)
	}

	var job *model.Job
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var insertErr error
			job, insertErr = r.insertJob(ctx, tx, req, total)
			return insertErr
		},
	})
	if txErr != nil {
		return nil, mapDBError("create job", txErr)
	}
	return job, nil
}

// CreateInTx inserts a job within an existing transaction so callers can seed
// progress rows atomically with the job row.
func (r *JobRepo) CreateInTx(ctx context.Context, tx *sql.Tx, req *model.CreateJobRequest, total int) (*model.Job, error) {
	if tx == nil {
		return nil, errors.New("transaction is required")
	}
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation("create job", err)
	}
	return r.insertJob(ctx, tx, req, total)
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *JobRepo) insertJob(ctx context.Context, q execQuerier, req *model.CreateJobRequest, total int) (*model.Job, error) {
	filterJSON, err := json.Marshal(req.Filter)
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}

	now := r.timeProvider.Now().UTC()
	row := q.QueryRowContext(ctx, `
		INSERT INTO jobs (id, name, description, filter_json, extract_expr, status, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $7)
		RETURNING `+jobColumns,
		uuid.NewString(), req.Name, req.Description, filterJSON, req.Extract, total, now)

	job, scanErr := scanJob(row)
	if scanErr != nil {
		return nil, fmt.Errorf("insert job: %w", scanErr)
	}
	return job, nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, mapDBError("get job", err)
	}
	return job, nil
}

// List returns jobs newest-first, optionally restricted to one status.
func (r *JobRepo) List(ctx context.Context, statusFilter *model.JobStatus) ([]*model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if statusFilter != nil {
		if !statusFilter.Valid() {
			return nil, fmt.Errorf("invalid job status filter: %q", *statusFilter)
		}
		query += ` WHERE status = $1`
		args = append(args, *statusFilter)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapDBError("list jobs", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var jobs []*model.Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, mapDBError("list jobs", rowsErr)
	}
	return jobs, nil
}

// UpdateStatus applies a state transition. The transition is validated inside
// the UPDATE itself so two concurrent callers cannot both win an illegal move;
// when zero rows change, the current row is re-read to distinguish a missing
// job from a disallowed transition.
func (r *JobRepo) UpdateStatus(ctx context.Context, id string, status model.JobStatus, errMsg string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid job status: %q", status)
	}

	allowedFrom := transitionSources(status)
	if len(allowedFrom) == 0 {
		return apperrors.InvalidState("update job status",
			fmt.Errorf("no status may transition to %q", status))
	}

	var lastError any
	if errMsg != "" {
		lastError = errMsg
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2,
		    last_error = COALESCE($3, last_error),
		    updated_at = $4
		WHERE id = $1 AND status = ANY($5)
	`, id, status, lastError, r.timeProvider.Now().UTC(), statusStrings(allowedFrom))
	if err != nil {
		return mapDBError("update job status", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	job, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return getErr
	}
	return apperrors.InvalidState("update job status",
		fmt.Errorf("cannot transition job %s from %q to %q", id, job.Status, status))
}

// transitionSources lists the statuses allowed to move to next under the
// status machine.
func transitionSources(next model.JobStatus) []model.JobStatus {
	all := []model.JobStatus{
		model.JobStatusPending, model.JobStatusRunning, model.JobStatusPaused,
		model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCancelled,
	}
	var sources []model.JobStatus
	for _, from := range all {
		if from.CanTransitionTo(next) {
			sources = append(sources, from)
		}
	}
	return sources
}

func statusStrings(statuses []model.JobStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// AddCounters accumulates a batch outcome into the job's running counters.
// Deltas may be negative (retryFailed returns failed targets to pending);
// counters are clamped at zero.
func (r *JobRepo) AddCounters(ctx context.Context, params core.AddCountersParams) error {
	var lastTarget any
	if params.LastTarget != "" {
		lastTarget = params.LastTarget
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET completed = GREATEST(0, completed + $2),
		    failed = GREATEST(0, failed + $3),
		    last_target = COALESCE($4, last_target),
		    updated_at = $5
		WHERE id = $1
	`, params.JobID, params.CompletedDelta, params.FailedDelta, lastTarget,
		r.timeProvider.Now().UTC())
	if err != nil {
		return mapDBError("add job counters", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Stats counts jobs by status.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
	  SELECT
	    count(*)                                     AS total,
	    count(*) FILTER (WHERE status = 'pending')   AS pending,
	    count(*) FILTER (WHERE status = 'running')   AS running,
	    count(*) FILTER (WHERE status = 'paused')    AS paused,
	    count(*) FILTER (WHERE status = 'completed') AS completed,
	    count(*) FILTER (WHERE status = 'failed')    AS failed,
	    count(*) FILTER (WHERE status = 'cancelled') AS cancelled
	  FROM jobs
	`).Scan(&s.Total, &s.Pending, &s.Running, &s.Paused, &s.Completed, &s.Failed, &s.Cancelled)
	if err != nil {
		return nil, mapDBError("job stats", err)
	}
	return &s, nil
}

// RunningIDs returns the ids of jobs currently marked running.
func (r *JobRepo) RunningIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id FROM jobs WHERE status = 'running' ORDER BY created_at`)
	if err != nil {
		return nil, mapDBError("running job ids", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var ids []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("scan job id: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, mapDBError("running job ids", rowsErr)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner rowScanner) (*model.Job, error) {
	job := &model.Job{}
	var filterJSON []byte
	var lastTarget, lastError sql.NullString

	if err := scanner.Scan(
		&job.ID,
		&job.Name,
		&job.Description,
		&filterJSON,
		&job.Extract,
		&job.Status,
		&job.Total,
		&job.Completed,
		&job.Failed,
		&lastTarget,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(filterJSON) > 0 {
		if err := json.Unmarshal(filterJSON, &job.Filter); err != nil {
			return nil, fmt.Errorf("unmarshal filter: %w", err)
		}
	}
	job.LastTarget = cloneNullableString(lastTarget)
	job.LastError = cloneNullableString(lastError)
	return job, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
