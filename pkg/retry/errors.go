package retry

import "errors"

var (
	ErrExhausted       = errors.New("retry attempts exhausted")
	ErrInvalidAttempts = errors.New("attempts must be positive")
)

// permanent marks an error that must not be retried.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}
