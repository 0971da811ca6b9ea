package txn_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/entitlekit/pkg/txn"
)

func TestAfterCommit(t *testing.T) {
	t.Parallel()

	t.Run("runs immediately outside a transaction", func(t *testing.T) {
		t.Parallel()
		ran := false
		txn.AfterCommit(context.Background(), func(context.Context) { ran = true })
		assert.True(t, ran)
	})

	t.Run("deferred until Run", func(t *testing.T) {
		t.Parallel()
		ctx, hooks := txn.Begin(context.Background())
		assert.True(t, txn.Active(ctx))

		var order []int
		txn.AfterCommit(ctx, func(context.Context) { order = append(order, 1) })
		txn.AfterCommit(ctx, func(context.Context) { order = append(order, 2) })
		assert.Empty(t, order)

		hooks.Run(ctx)
		assert.Equal(t, []int{1, 2}, order)

		hooks.Run(ctx)
		assert.Len(t, order, 2)
	})

	t.Run("hooks survive canceled transaction context", func(t *testing.T) {
		t.Parallel()
		parent, cancel := context.WithCancel(context.Background())
		ctx, hooks := txn.Begin(parent)
		var hookErr error
		txn.AfterCommit(ctx, func(c context.Context) { hookErr = c.Err() })
		cancel()
		hooks.Run(ctx)
		assert.NoError(t, hookErr)
	})
}
