package schema

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for errors.Is checks:
//
//	if errors.Is(err, schema.ErrRemote) {
//	    // offline, keep working locally
//	}
var (
	// ErrStorage matches every StorageError.
	ErrStorage = errors.New("storage error")

	// ErrRemote matches every RemoteError.
	ErrRemote = errors.New("remote error")

	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a record with the requested id does not exist.
	ErrNotFound = errors.New("todo not found")
)

// StorageError reports a failure of the local medium.
type StorageError struct {
	Op  string
	ID  int64
	Err error
}

func (e *StorageError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("storage %s %d: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// RemoteError reports a network fault or a non-success response.
type RemoteError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s: %s %s: http %d: %v", e.Op, e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s: %s %s: %v", e.Op, e.Method, e.URL, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// IsNotFound reports whether the remote answered 404.
func (e *RemoteError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// ValidationError reports a record a caller should never have passed in.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid todo: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
