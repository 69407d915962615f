// Package errors provides structured error types for pagefit.
//
// Every failure the calibration loop can end with maps to one Code, so the
// CLI can pick an exit status and a remediation hint without string matching.
//
// # Error Codes
//
//   - CONFIG_ERROR: malformed or missing baseline, settings or project data
//   - MEASUREMENT_ERROR: an artifact is unreadable or has no positioned content
//   - BUILD_FAILURE: the external render step failed twice
//   - BOUND_FAILURE: a variant cannot fit inside the allowed parameter ranges
//   - STALL: no settings changed between two iterations
//   - BUDGET_EXHAUSTED: the iteration budget ran out before convergence
//   - UNCONVERGED: every remaining failing variant is bound-failed
//   - CANCELED: the run was interrupted at an iteration boundary
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfig, "tolerance must be >= 0, got %v", tol)
//	if errors.Is(err, errors.ErrCodeConfig) {
//	    // exit before any iteration
//	}
//
//	err := errors.Wrap(errors.ErrCodeMeasurement, origErr, "measure %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the calibration taxonomy.
const (
	ErrCodeConfig      Code = "CONFIG_ERROR"
	ErrCodeMeasurement Code = "MEASUREMENT_ERROR"
	ErrCodeBuild       Code = "BUILD_FAILURE"
	ErrCodeBound       Code = "BOUND_FAILURE"
	ErrCodeStall       Code = "STALL"

	// Terminal run outcomes
	ErrCodeBudgetExhausted Code = "BUDGET_EXHAUSTED"
	ErrCodeUnconverged     Code = "UNCONVERGED"
	ErrCodeCanceled        Code = "CANCELED"

	// Input validation
	ErrCodeInvalidVariant Code = "INVALID_VARIANT"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Fatal reports whether an error with this code must unwind the whole run.
// Bound failures are accumulated per variant instead.
func (c Code) Fatal() bool {
	return c != ErrCodeBound && c != ""
}

// BoundFailure describes a variant pinned at a parameter limit while the
// error it needs to fix still points past that limit.
type BoundFailure struct {
	Variant string
	Limit   string // "floor" or "ceiling"
	Reason  string
}

// Error implements the error interface.
func (e *BoundFailure) Error() string {
	return fmt.Sprintf("variant %s pinned at density %s: %s", e.Variant, e.Limit, e.Reason)
}

// Code returns the error code for this error type.
func (e *BoundFailure) Code() Code {
	return ErrCodeBound
}

// Remediation suggests a content change that frees the variant from its bound.
func (e *BoundFailure) Remediation() string {
	if e.Limit == "floor" {
		return "content does not fit one page at minimum density; shorten the variant's content"
	}
	return "content is too short even at maximum density; add content or relax the baseline ratio"
}
