package scheduler

import "errors"

// ErrJobNotFound is returned by Store.Get for unknown job IDs.
var ErrJobNotFound = errors.New("scheduled job not found")

type permanentError struct {
	cause error
}

func (e permanentError) Error() string {
	if e.cause == nil {
		return "permanent error"
	}
	return e.cause.Error()
}

func (e permanentError) Unwrap() error {
	return e.cause
}

// Permanent marks a handler error as non-retryable. The job is dead-lettered
// on the first failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{cause: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var target permanentError
	return errors.As(err, &target)
}
