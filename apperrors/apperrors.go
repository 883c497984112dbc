// Package apperrors defines the structured error kinds surfaced by the
// provisioning core. Every error carries a stable code so the API layer can
// map it to an appropriate response without string matching.
package apperrors

import (
	"errors"
	"fmt"
)

// Code identifies an error kind.
type Code string

const (
	// CodeValidation rejects malformed input (bad date ordering, password
	// mismatch) before any saga step runs.
	CodeValidation Code = "validation"
	// CodeConflict rejects an operation that would duplicate an existing
	// resource (course already exists, onyen/email taken).
	CodeConflict Code = "conflict"
	// CodeNotFound reports a missing course, assignment or user.
	CodeNotFound Code = "not_found"
	// CodeExternalService reports a Git hosting or secret store failure.
	// It is surfaced only after rollback has been attempted.
	CodeExternalService Code = "external_service"
	// CodeDoubleFault reports a compensation failure during rollback. The
	// system is in an inconsistent state requiring manual intervention.
	CodeDoubleFault Code = "double_fault"
)

// Error is a coded error. Use the package constructors rather than building
// one directly.
type Error struct {
	code  Code
	msg   string
	cause error
	// compensation holds the accumulated undo failures for double faults.
	compensation error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.compensation != nil:
		return fmt.Sprintf("%s: %s: %v (compensation: %v)", e.code, e.msg, e.cause, e.compensation)
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.msg)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the error's stable code.
func (e *Error) Code() Code {
	return e.code
}

// Compensation returns the accumulated compensation failures of a double
// fault, or nil for every other kind.
func (e *Error) Compensation() error {
	return e.compensation
}

// Validationf constructs a validation error.
func Validationf(format string, args ...any) error {
	return &Error{code: CodeValidation, msg: fmt.Sprintf(format, args...)}
}

// Conflictf constructs a conflict error.
func Conflictf(format string, args ...any) error {
	return &Error{code: CodeConflict, msg: fmt.Sprintf(format, args...)}
}

// NotFoundf constructs a not-found error.
func NotFoundf(format string, args ...any) error {
	return &Error{code: CodeNotFound, msg: fmt.Sprintf(format, args...)}
}

// ExternalService wraps a failure from the Git hosting service or the secret
// store.
func ExternalService(cause error, msg string) error {
	return &Error{code: CodeExternalService, msg: msg, cause: cause}
}

// DoubleFault wraps a failed rollback: cause is the forward failure that
// triggered it, compensation the accumulated undo failures. Neither is
// swallowed.
func DoubleFault(cause, compensation error, msg string) error {
	return &Error{code: CodeDoubleFault, msg: msg, cause: cause, compensation: compensation}
}

// CodeOf extracts the code from an error chain. Unknown errors report an
// empty code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsExternalService reports whether err is an external-service failure.
func IsExternalService(err error) bool { return CodeOf(err) == CodeExternalService }

// IsDoubleFault reports whether err is a double fault.
func IsDoubleFault(err error) bool { return CodeOf(err) == CodeDoubleFault }
