package repos

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/docfill-backend/internal/data/repos/sessions"
	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want fill.ErrorCode
	}{
		{"not found", gorm.ErrRecordNotFound, fill.CodeNotFound},
		{"stale write", fmt.Errorf("save: %w", sessions.ErrStaleWrite), fill.CodeConflict},
		{"pg unique", &pgconn.PgError{Code: "23505"}, fill.CodeConflict},
		{"pg fk", &pgconn.PgError{Code: "23503"}, fill.CodePreconditionFailed},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, fill.CodeRetryable},
		{"sqlite unique", errors.New("UNIQUE constraint failed: fill_fact.session_id, fill_fact.placeholder_key"), fill.CodeConflict},
		{"sqlite locked", errors.New("database is locked"), fill.CodeRetryable},
		{"deadline", context.DeadlineExceeded, fill.CodeRetryable},
		{"other", errors.New("boom"), fill.CodeInternal},
	}
	for _, tc := range cases {
		if got := fill.CodeOf(MapError("op", tc.in)); got != tc.want {
			t.Fatalf("%s: code = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMapError_PassthroughDomainError(t *testing.T) {
	in := fill.NewError(fill.CodeRetryable, "op", "retry", errors.New("boom"))
	if out := MapError("other", in); out != in {
		t.Fatalf("expected passthrough domain error")
	}
	if MapError("op", nil) != nil {
		t.Fatalf("nil must map to nil")
	}
}
