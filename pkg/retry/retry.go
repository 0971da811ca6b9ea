package retry

import (
	"context"
	"errors"
	"time"
)

// Do calls fn up to attempts times until it returns nil.
// Errors wrapped with Permanent stop the loop right away.
func Do(ctx context.Context, attempts int, backoff BackoffStrategy, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		return ErrInvalidAttempts
	}
	if backoff == nil {
		backoff = DefaultBackoff()
	}

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			if err := sleep(ctx, backoff.NextInterval(attempt)); err != nil {
				return errors.Join(err, lastErr)
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		var p permanent
		if errors.As(err, &p) {
			return p.err
		}
		lastErr = err
	}
	return errors.Join(ErrExhausted, lastErr)
}

// Until polls cond until it reports done, returns an error, or attempts run out.
func Until(ctx context.Context, attempts int, backoff BackoffStrategy, cond func(ctx context.Context) (bool, error)) error {
	return Do(ctx, attempts, backoff, func(ctx context.Context) error {
		done, err := cond(ctx)
		if err != nil {
			return Permanent(err)
		}
		if !done {
			return errNotDone
		}
		return nil
	})
}

var errNotDone = errors.New("condition not met")

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
