package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements DistributedLock on pg_try_advisory_lock.
// Advisory locks are connection-scoped, so every held lock pins one
// pooled connection until it is released; a lost connection releases
// the lock on the server side. The TTL parameter is ignored and
// Extend is a no-op. Serves single-binary deployments without Redis.
type AdvisoryLock struct {
	db *DB

	mu   sync.Mutex
	held map[string]*sql.Conn
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{
		db:   db,
		held: make(map[string]*sql.Conn),
	}
}

// lockKey folds a lock name into the 64-bit key space Postgres
// advisory locks use.
func lockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("dossier:lock:" + name))
	return int64(h.Sum64())
}

// Acquire attempts to take the named lock without blocking. Returns
// false when another holder has it, or when this instance already
// holds it.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[name]; ok {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockKey(name)).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	l.held[name] = conn
	return true, nil
}

// Release drops the named lock and returns its connection to the pool.
// Safe to call for a lock this instance does not hold.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn, ok := l.held[name]
	delete(l.held, name)
	l.mu.Unlock()

	if !ok {
		return nil
	}
	defer conn.Close()

	var released bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", lockKey(name)).Scan(&released); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend is a no-op; advisory locks have no TTL to push out
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

// Ping checks if the PostgreSQL backend is healthy
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
