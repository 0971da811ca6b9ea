package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/entitlekit/pkg/broadcast"
)

type changed struct {
	AccountID string
	Status    string
}

func receive(t *testing.T, sub broadcast.Subscriber[changed]) (broadcast.Message[changed], bool) {
	t.Helper()
	select {
	case msg, ok := <-sub.Receive(context.Background()):
		return msg, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return broadcast.Message[changed]{}, false
	}
}

func TestMemoryBroadcaster(t *testing.T) {
	t.Parallel()

	t.Run("delivers to every subscriber", func(t *testing.T) {
		t.Parallel()
		b := broadcast.NewMemoryBroadcaster[changed](4)
		defer b.Close()

		s1 := b.Subscribe(context.Background())
		s2 := b.Subscribe(context.Background())

		require.NoError(t, b.Broadcast(context.Background(), broadcast.Message[changed]{Data: changed{AccountID: "a", Status: "canceled"}}))

		m1, ok := receive(t, s1)
		require.True(t, ok)
		assert.Equal(t, "canceled", m1.Data.Status)
		m2, ok := receive(t, s2)
		require.True(t, ok)
		assert.Equal(t, "a", m2.Data.AccountID)
	})

	t.Run("context cancel closes subscriber", func(t *testing.T) {
		t.Parallel()
		b := broadcast.NewMemoryBroadcaster[changed](1)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		cancel()

		_, ok := receive(t, sub)
		assert.False(t, ok)
	})

	t.Run("closed broadcaster", func(t *testing.T) {
		t.Parallel()
		b := broadcast.NewMemoryBroadcaster[changed](1)
		sub := b.Subscribe(context.Background())
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())

		_, ok := receive(t, sub)
		assert.False(t, ok)
		assert.ErrorIs(t, b.Broadcast(context.Background(), broadcast.Message[changed]{}), broadcast.ErrClosed)

		late := b.Subscribe(context.Background())
		_, ok = receive(t, late)
		assert.False(t, ok)
	})
}
