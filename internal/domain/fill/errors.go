package fill

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes failure semantics across the fill domain.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error is the canonical domain error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
	// Details is surfaced to API callers verbatim (e.g. pending placeholder ids).
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a domain error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// WithDetails attaches caller-visible details to err when it is a *Error.
func WithDetails(err error, details map[string]any) error {
	var de *Error
	if !errors.As(err, &de) {
		return err
	}
	cp := *de
	cp.Details = details
	return &cp
}

// Wrap annotates an existing error with domain error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the domain error code when available.
func CodeOf(err error) ErrorCode {
	var de *Error
	if !errors.As(err, &de) {
		return ""
	}
	return de.Code
}

// DetailsOf returns the details of the outermost *Error in err's chain.
func DetailsOf(err error) map[string]any {
	var de *Error
	if !errors.As(err, &de) {
		return nil
	}
	return de.Details
}
