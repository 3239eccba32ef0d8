package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromDomain maps a fill.Error code onto an HTTP status. Errors that are
// already *Error pass through unchanged.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	code := fill.CodeOf(err)
	switch code {
	case fill.CodeValidation:
		return New(http.StatusBadRequest, string(code), err)
	case fill.CodeNotFound:
		return New(http.StatusNotFound, string(code), err)
	case fill.CodeConflict, fill.CodePreconditionFailed:
		return New(http.StatusConflict, string(code), err)
	case fill.CodeRetryable:
		return New(http.StatusServiceUnavailable, string(code), err)
	case fill.CodeInvariantViolation:
		return New(http.StatusInternalServerError, string(code), err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
