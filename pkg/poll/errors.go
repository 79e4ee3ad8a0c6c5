package poll

import (
	"errors"
	"fmt"
)

var (
	// ErrPollNotFound reports that the poll message or its channel cannot be
	// located. Terminal for the operation, never retried.
	ErrPollNotFound = errors.New("poll not found")

	// ErrAlreadyResolved reports an attempt to resolve a poll a second time.
	ErrAlreadyResolved = errors.New("poll already resolved")

	// ErrResolveInProgress reports that another create-or-resolve pass holds
	// the poll's lock.
	ErrResolveInProgress = errors.New("poll operation already in progress")
)

// TransientError wraps a platform or network failure that the caller may
// retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
