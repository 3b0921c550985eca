// Package redis implements ports.Locker on a Redis lease. It is the
// optional external claiming primitive the claim manager serializes under;
// the manager still re-verifies ownership against the run store because
// this lease is advisory, not atomic, from the manager's point of view.
package redis

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/gardenfork/espalier/pkg/ports"
)

// unlockScript deletes the lease only if the caller still holds it.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// Locker implements ports.Locker using Redis SET NX PX.
type Locker struct {
	client *backend.Client
	prefix string
}

var _ ports.Locker = (*Locker)(nil)

// NewLocker creates a Redis locker. The prefix namespaces lease keys so
// multiple stores can share one Redis.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
	}
}

// TryLock attempts to acquire the lease without blocking. The lease value
// is unique per acquisition so unlock cannot release someone else's lease
// after expiry.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, bool, error) {
	leaseKey := l.prefix + key
	val := fmt.Sprintf("%d", time.Now().UnixNano())

	acquired, err := l.client.SetNX(ctx, leaseKey, val, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis error acquiring lease: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		return l.client.Eval(ctx, unlockScript, []string{leaseKey}, val).Err()
	}
	return unlock, true, nil
}
