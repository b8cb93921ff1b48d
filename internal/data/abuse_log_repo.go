package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crawlspace/harvester/internal/domain/model"
)

const abuseLogColumns = `id, job_id, detected_at, type, details, status_code,
	headers_json, recovery_action, recovery_time`

// AbuseLogRepo persists the append-only anti-automation log.
type AbuseLogRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// AbuseLogRepoOptions configures an AbuseLogRepo.
type AbuseLogRepoOptions struct {
	TimeProvider TimeProvider
}

// NewAbuseLogRepo creates an AbuseLogRepo with the given options.
func NewAbuseLogRepo(db *sql.DB, opts AbuseLogRepoOptions) *AbuseLogRepo {
	tp := opts.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	return &AbuseLogRepo{DB: db, timeProvider: tp}
}

// Insert appends a detection and returns its id.
func (r *AbuseLogRepo) Insert(ctx context.Context, detection *model.Detection) (int64, error) {
	if detection == nil {
		return 0, errors.New("detection is required")
	}
	if !detection.Type.Valid() {
		return 0, fmt.Errorf("invalid detection type: %q", detection.Type)
	}

	headersJSON := []byte(`{}`)
	if len(detection.Headers) > 0 {
		var err error
		headersJSON, err = json.Marshal(detection.Headers)
		if err != nil {
			return 0, fmt.Errorf("marshal headers: %w", err)
		}
	}

	detectedAt := detection.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = r.timeProvider.Now()
	}

	var id int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO abuse_log (job_id, detected_at, type, details, status_code, headers_json, recovery_action)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, detection.JobID, detectedAt.UTC(), detection.Type, detection.Details,
		detection.StatusCode, headersJSON, detection.RecoveryAction).Scan(&id)
	if err != nil {
		return 0, mapDBError("insert detection", err)
	}
	return id, nil
}

// Recent returns the newest detections for a job, most recent first.
func (r *AbuseLogRepo) Recent(ctx context.Context, jobID string, limit int) ([]model.Detection, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+abuseLogColumns+`
		FROM abuse_log
		WHERE job_id = $1
		ORDER BY detected_at DESC, id DESC
		LIMIT $2
	`, jobID, limit)
	if err != nil {
		return nil, mapDBError("recent detections", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var detections []model.Detection
	for rows.Next() {
		d, scanErr := scanDetection(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		detections = append(detections, *d)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, mapDBError("recent detections", rowsErr)
	}
	return detections, nil
}

// MarkRecovered backfills recovery_time on an entry. The only mutation the
// log permits, and only once.
func (r *AbuseLogRepo) MarkRecovered(ctx context.Context, id int64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE abuse_log
		SET recovery_time = $2
		WHERE id = $1 AND recovery_time IS NULL
	`, id, at.UTC())
	if err != nil {
		return mapDBError("mark detection recovered", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDetectionNotFound
	}
	return nil
}

func scanDetection(scanner rowScanner) (*model.Detection, error) {
	d := &model.Detection{}
	var jobID sql.NullString
	var headersJSON []byte
	var recoveryTime sql.NullTime

	if err := scanner.Scan(
		&d.ID,
		&jobID,
		&d.DetectedAt,
		&d.Type,
		&d.Details,
		&d.StatusCode,
		&headersJSON,
		&d.RecoveryAction,
		&recoveryTime,
	); err != nil {
		return nil, fmt.Errorf("scan detection: %w", err)
	}

	d.JobID = cloneNullableString(jobID)
	if recoveryTime.Valid {
		t := recoveryTime.Time.UTC()
		d.RecoveryTime = &t
	}
	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &d.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
	}
	return d, nil
}
