package lockRepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.now = func() time.Time { return now }

	ok, err := l.TryAcquire(ctx, "sweep", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.TryAcquire(ctx, "sweep", "b", time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "sweep", "b"))
	ok, _ = l.TryAcquire(ctx, "sweep", "b", time.Minute)
	assert.False(t, ok, "release by a non-owner is ignored")

	now = now.Add(2 * time.Minute)
	ok, _ = l.TryAcquire(ctx, "sweep", "b", time.Minute)
	assert.True(t, ok, "expired lease can be taken over")

	require.NoError(t, l.Release(ctx, "sweep", "b"))
	ok, _ = l.TryAcquire(ctx, "sweep", "a", time.Minute)
	assert.True(t, ok)
}

func TestNoopLocker(t *testing.T) {
	var l Locker = NoopLocker{}
	ok, err := l.TryAcquire(context.Background(), "k", "o", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, l.Release(context.Background(), "k", "o"))
}
