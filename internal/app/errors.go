package app

import (
	"errors"
	"fmt"
)

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound      = errors.New("not found")
	ErrConfigInvalid = errors.New("invalid configuration")
	ErrProbeMiss     = errors.New("active window unavailable")
	ErrStoreIO       = errors.New("store i/o failure")
)

// StoreIOError wraps a failed read or write against durable storage.
type StoreIOError struct {
	Op   string
	Path string
	Err  error
}

// Error implements error.
func (e *StoreIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StoreIOError) Unwrap() error {
	return e.Err
}

// Is matches ErrStoreIO.
func (e *StoreIOError) Is(target error) bool {
	return target == ErrStoreIO
}

// RemoteServiceError reports a failed call to the text-generation service.
type RemoteServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements error.
func (e *RemoteServiceError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Message != "":
		return fmt.Sprintf("remote service error (status %d): %s", e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("remote service error (status %d)", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("remote service error: %v", e.Err)
	default:
		return "remote service error: " + e.Message
	}
}

// Unwrap returns the transport cause, if any.
func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// IsRemoteServiceError reports whether err carries a RemoteServiceError.
func IsRemoteServiceError(err error) bool {
	var remote *RemoteServiceError
	return errors.As(err, &remote)
}
