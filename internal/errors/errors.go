// Package errors provides standardized domain errors with codes for the
// organizer pipeline.
//
// Usage:
//
//	// In adapters - return typed errors
//	if resp.StatusCode == http.StatusNotFound {
//	    return errors.NotFound("no volumes matched")
//	}
//
//	// In the resolver/orchestrator - route on the category
//	if errors.IsTransient(err) {
//	    // retry with backoff, then skip the source
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeClassification:
//	        // route the unit to "unclassified"
//	    case errors.CodeFilesystem:
//	        // fail this unit, continue the batch
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error category.
type Code string

// Error codes used throughout the pipeline. They map 1:1 onto the failure
// taxonomy the orchestrator routes on.
const (
	// CodeClassification - insufficient name information; the unit goes to
	// the unclassified bucket, never fatal.
	CodeClassification Code = "CLASSIFICATION"
	// CodeTransient - network/timeout/rate-limit from a source; retried with
	// backoff, then the cascade moves on.
	CodeTransient Code = "TRANSIENT"
	// CodeNotFound - a source had no result; the cascade moves on, no retry.
	CodeNotFound Code = "NOT_FOUND"
	// CodeValidation - a result is structurally present but fails quality
	// rules; treated as not-found for cascade purposes.
	CodeValidation Code = "VALIDATION"
	// CodeFilesystem - move/copy/write failure; fatal for the single unit,
	// never for the batch.
	CodeFilesystem Code = "FILESYSTEM"
	// CodeConflict - destination path already claimed with conflicting
	// content; recoverable by collision redirect.
	CodeConflict Code = "CONFLICT"
	// CodeConfig - missing credential or unreadable configuration; fatal for
	// the entire run at startup.
	CodeConfig Code = "CONFIG"
	// CodeInternal - anything that does not fit the taxonomy.
	CodeInternal Code = "INTERNAL"
)

// Fatal reports whether an error of this code aborts the whole run.
// Only configuration/credential failures do.
func (c Code) Fatal() bool {
	return c == CodeConfig
}

// Error is a domain error with a code, message, and optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrClassification = &Error{Code: CodeClassification, Message: "insufficient name information"}
	ErrTransient      = &Error{Code: CodeTransient, Message: "source unavailable"}
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrFilesystem     = &Error{Code: CodeFilesystem, Message: "filesystem failure"}
	ErrConflict       = &Error{Code: CodeConflict, Message: "destination conflict"}
	ErrConfig         = &Error{Code: CodeConfig, Message: "configuration error"}
)

// Category helpers. These keep failure handling a data-flow decision in the
// resolver and orchestrator instead of scattered errors.As boilerplate.

// IsTransient reports whether err is a retryable source failure.
func IsTransient(err error) bool { return Is(err, ErrTransient) }

// IsNotFound reports whether err is a miss (includes failed validation,
// which the cascade treats the same way).
func IsNotFound(err error) bool { return Is(err, ErrNotFound) || Is(err, ErrValidation) }

// IsConflict reports whether err is a destination collision.
func IsConflict(err error) bool { return Is(err, ErrConflict) }

// CodeOf extracts the Code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Constructor functions for creating errors with custom messages.

// Classification creates a classification-failure error.
func Classification(msg string) *Error {
	return &Error{Code: CodeClassification, Message: msg}
}

// Classificationf creates a classification-failure error with formatted message.
func Classificationf(format string, args ...any) *Error {
	return &Error{Code: CodeClassification, Message: fmt.Sprintf(format, args...)}
}

// Transient creates a transient source error.
func Transient(msg string) *Error {
	return &Error{Code: CodeTransient, Message: msg}
}

// Transientf creates a transient source error with formatted message.
func Transientf(format string, args ...any) *Error {
	return &Error{Code: CodeTransient, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not-found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Filesystem creates a filesystem error.
func Filesystem(msg string) *Error {
	return &Error{Code: CodeFilesystem, Message: msg}
}

// Filesystemf creates a filesystem error with formatted message.
func Filesystemf(format string, args ...any) *Error {
	return &Error{Code: CodeFilesystem, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Conflictf creates a conflict error with formatted message.
func Conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Config creates a configuration error.
func Config(msg string) *Error {
	return &Error{Code: CodeConfig, Message: msg}
}

// Configf creates a configuration error with formatted message.
func Configf(format string, args ...any) *Error {
	return &Error{Code: CodeConfig, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
