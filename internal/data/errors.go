package data

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/crawlspace/harvester/internal/errors"
)

// Shared sentinel errors for data-layer repositories.
var (
	// ErrJobNotFound is returned when a job id matches no row.
	ErrJobNotFound = errors.New("job not found")
	// ErrProgressNotFound is returned when a (job, target) pair matches no row.
	ErrProgressNotFound = errors.New("progress record not found")
	// ErrDetectionNotFound is returned when an abuse log entry id matches no row.
	ErrDetectionNotFound = errors.New("detection not found")
)

// mapDBError normalizes low-level database failures into the application
// error taxonomy. Unique violations become conflicts, connectivity failures
// become store_unavailable, everything else stays untouched so sentinel
// checks still work.
func mapDBError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperrors.Wrap(apperrors.ErrCodeConflict, op, err)
		case pgerrcode.ForeignKeyViolation:
			return apperrors.Wrap(apperrors.ErrCodeValidation, op, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return apperrors.StoreUnavailable(op, err)
	}
	return err
}
