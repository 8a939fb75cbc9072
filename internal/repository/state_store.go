package repository

import (
	"context"
	"time"
)

// StateStore abstracts the ephemeral TTL-capable key-value store.
// Implementations: Redis (production) or in-memory (local dev / tests).
//
// A key is only ever used as one value type (string or list), mirroring
// how Redis types are kept disjoint by the key namespaces in keys.go.
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// SetNX sets key only if absent, with the given TTL. Reports whether
	// the set happened.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// CompareAndDelete deletes key only if its current value equals value,
	// as a single atomic operation. Reports whether the delete happened.
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)

	// Incr increments the integer value at key, creating it at 1.
	// The new key has no TTL until Expire is called.
	Incr(ctx context.Context, key string) (int64, error)

	ListPush(ctx context.Context, key string, value []byte) error
	ListRange(ctx context.Context, key string) ([][]byte, error)
	ListSet(ctx context.Context, key string, index int64, value []byte) error
	// ListRemoveAll removes every list element equal to value.
	ListRemoveAll(ctx context.Context, key string, value []byte) error
}
