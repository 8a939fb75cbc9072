// Package lock provides per-resource distributed mutual exclusion on top
// of an atomic set-if-absent store, with token-checked release so a
// holder whose TTL expired cannot free a lock re-acquired by someone
// else.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const retryInterval = 150 * time.Millisecond

// Store is the subset of store operations the locker needs.
type Store interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)
}

type Locker struct {
	store Store
}

func New(store Store) *Locker {
	return &Locker{store: store}
}

// Acquire attempts to take the lock at key, retrying until wait elapses.
// Returns the minted token and true on success; "" and false on timeout,
// store failure, or context cancellation. The TTL must exceed the
// expected critical-section duration.
func (l *Locker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (string, bool) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.store.SetNX(ctx, key, []byte(token), ttl)
		if err != nil {
			return "", false
		}
		if ok {
			return token, true
		}
		if time.Now().After(deadline) {
			return "", false
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(retryInterval):
		}
	}
}

// Release frees the lock at key only if it still holds token. Reports
// whether the release actually happened.
func (l *Locker) Release(ctx context.Context, key, token string) bool {
	if token == "" {
		return false
	}
	ok, err := l.store.CompareAndDelete(ctx, key, []byte(token))
	return err == nil && ok
}
