package driven

import (
	"context"
	"time"
)

// DistributedLock serialises work across instances. The ingestion
// pipeline takes one lock per (technology, filename) so the same file
// is never indexed twice concurrently.
type DistributedLock interface {
	// Acquire tries to take the named lock without blocking. Returns
	// false when another holder has it. The TTL bounds how long a
	// crashed holder keeps the lock; backends without expiry may
	// ignore it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release drops a named lock. Safe to call for a lock that is
	// not held or already expired.
	Release(ctx context.Context, name string) error

	// Extend pushes out the TTL of a held lock. Errors when the lock
	// is not held by this instance.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy
	Ping(ctx context.Context) error
}
