package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a previously acquired lease.
type UnlockFunc func(ctx context.Context) error

// Locker is an external claiming primitive granting a time-bounded lease on
// a key. It is advisory from this process's point of view: the claim
// manager re-reads the run record after claiming and confirms ownership
// rather than trusting a non-erroring TryLock (see claim.Manager).
type Locker interface {
	// TryLock attempts to acquire the lease without blocking. It returns
	// (nil, false, nil) when the lease is currently held elsewhere.
	TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, bool, error)
}
