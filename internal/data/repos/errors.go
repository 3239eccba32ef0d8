package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/docfill-backend/internal/data/repos/sessions"
	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

// MapError maps infrastructure failures into fill error codes. Errors that
// already carry a code are returned unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *fill.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sessions.ErrStaleWrite):
		return fill.Wrap(fill.CodeConflict, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fill.Wrap(fill.CodeNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fill.Wrap(fill.CodeConflict, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fill.Wrap(fill.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return fill.Wrap(fill.CodeConflict, op, err) // unique_violation
		case "23503":
			return fill.Wrap(fill.CodePreconditionFailed, op, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return fill.Wrap(fill.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "already exists"):
		return fill.Wrap(fill.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return fill.Wrap(fill.CodeRetryable, op, err)
	default:
		return fill.Wrap(fill.CodeInternal, op, err)
	}
}
