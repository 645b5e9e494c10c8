package lockRepo

import (
	"context"
	"time"
)

// Locker hands out short-lived leases so overlapping sweep triggers can skip a run.
// A lease is an optimisation; callers must stay correct when two holders overlap.
type Locker interface {
	// TryAcquire takes key for owner until ttl elapses. False means someone else holds it.
	TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Release frees key if owner still holds it.
	Release(ctx context.Context, key, owner string) error
}

// NoopLocker always grants the lease.
type NoopLocker struct{}

func (NoopLocker) TryAcquire(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}

func (NoopLocker) Release(context.Context, string, string) error { return nil }
