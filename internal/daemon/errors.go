package daemon

import (
	"errors"
	"fmt"
)

// Status is the RPC status vocabulary that every daemon error translates to
// at the dispatch boundary, mirroring original_source/ccm-daemon/src/error.rs's
// mapping onto tonic::Status codes.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusAlreadyExists
	StatusInvalidArgument
	StatusFailedPrecondition
	StatusInternal
)

func (s Status) String() string {
	switch s {
	case StatusNotFound:
		return "not_found"
	case StatusAlreadyExists:
		return "already_exists"
	case StatusInvalidArgument:
		return "invalid_argument"
	case StatusFailedPrecondition:
		return "failed_precondition"
	case StatusInternal:
		return "internal"
	default:
		return "ok"
	}
}

// DaemonError is the single error type RPC handlers return. It carries an
// RPC status alongside the usual wrapped cause.
type DaemonError struct {
	Status Status
	Msg    string
	Cause  error
}

func (e *DaemonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *DaemonError) Unwrap() error { return e.Cause }

func newErr(status Status, format string, args ...any) *DaemonError {
	return &DaemonError{Status: status, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(status Status, cause error, format string, args ...any) *DaemonError {
	return &DaemonError{Status: status, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

func ErrNotFound(format string, args ...any) *DaemonError {
	return newErr(StatusNotFound, format, args...)
}

func ErrAlreadyExists(format string, args ...any) *DaemonError {
	return newErr(StatusAlreadyExists, format, args...)
}

func ErrInvalidArgument(format string, args ...any) *DaemonError {
	return newErr(StatusInvalidArgument, format, args...)
}

func ErrFailedPrecondition(format string, args ...any) *DaemonError {
	return newErr(StatusFailedPrecondition, format, args...)
}

func ErrInternal(cause error, format string, args ...any) *DaemonError {
	return wrapErr(StatusInternal, cause, format, args...)
}

// StatusOf extracts the RPC status for an error, defaulting to Internal for
// errors that did not originate as a *DaemonError (e.g. raw I/O errors from a
// collaborator package).
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var de *DaemonError
	if errors.As(err, &de) {
		return de.Status
	}
	return StatusInternal
}
