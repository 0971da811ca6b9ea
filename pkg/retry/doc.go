// Package retry runs an operation repeatedly with a pluggable backoff.
//
// Do retries a function until it succeeds; Until polls a condition until it
// reports done. Both respect context cancellation between attempts and stop
// after a bounded number of attempts, so a missing row or a flapping
// dependency can never turn into an unbounded wait.
//
//	err := retry.Until(ctx, 5, retry.ExponentialBackoff{InitialInterval: 50 * time.Millisecond},
//		func(ctx context.Context) (bool, error) {
//			_, err := store.GetAccount(ctx, id)
//			if errors.Is(err, account.ErrAccountNotFound) {
//				return false, nil
//			}
//			return err == nil, err
//		})
package retry
