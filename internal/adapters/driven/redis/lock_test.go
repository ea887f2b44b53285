package redis

import (
	"context"
	"testing"
	"time"
)

func TestNewLock(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)

	if lock == nil {
		t.Fatal("expected non-nil lock")
	}
	if lock.ownerID == "" {
		t.Error("expected non-empty owner ID")
	}
}

func TestLock_OwnerID_Unique(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	if lock1.OwnerID() == lock2.OwnerID() {
		t.Errorf("expected unique owner IDs, got same: %s", lock1.OwnerID())
	}
}

func TestLock_Acquire_Success(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "test-lock", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock")
	}
}

func TestLock_Acquire_AlreadyHeld(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	// First lock acquires
	acquired, err := lock1.Acquire(ctx, "test-lock", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected first lock to acquire")
	}

	// Second lock cannot acquire
	acquired, err = lock2.Acquire(ctx, "test-lock", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected second lock to fail")
	}
}

func TestLock_Release_AllowsReacquire(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	acquired, err := lock1.Acquire(ctx, "test-lock", 10*time.Second)
	if err != nil || !acquired {
		t.Fatalf("expected first acquire to succeed, got %v/%v", acquired, err)
	}

	if err := lock1.Release(ctx, "test-lock"); err != nil {
		t.Fatalf("unexpected error releasing: %v", err)
	}

	acquired, err = lock2.Acquire(ctx, "test-lock", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected second lock to acquire after release")
	}
}

func TestLock_Release_NotOwner(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	acquired, err := lock1.Acquire(ctx, "test-lock", 10*time.Second)
	if err != nil || !acquired {
		t.Fatalf("expected acquire to succeed, got %v/%v", acquired, err)
	}

	// Release by non-owner is a no-op, not an error
	if err := lock2.Release(ctx, "test-lock"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Owner still holds the lock
	acquired, err = lock2.Acquire(ctx, "test-lock", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected lock still held by original owner")
	}
}

func TestLock_Release_NotHeld(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)

	// Releasing a lock that was never acquired is safe
	if err := lock.Release(context.Background(), "never-acquired"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLock_Extend_Success(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "test-lock", 5*time.Second)
	if err != nil || !acquired {
		t.Fatalf("expected acquire to succeed, got %v/%v", acquired, err)
	}

	if err := lock.Extend(ctx, "test-lock", 30*time.Second); err != nil {
		t.Errorf("unexpected error extending: %v", err)
	}
}

func TestLock_Extend_NotOwner(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	acquired, err := lock1.Acquire(ctx, "test-lock", 10*time.Second)
	if err != nil || !acquired {
		t.Fatalf("expected acquire to succeed, got %v/%v", acquired, err)
	}

	if err := lock2.Extend(ctx, "test-lock", 30*time.Second); err == nil {
		t.Error("expected error extending lock held by another instance")
	}
}

func TestLock_Extend_NotHeld(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)

	if err := lock.Extend(context.Background(), "never-acquired", 30*time.Second); err == nil {
		t.Error("expected error extending a lock that is not held")
	}
}

func TestLock_TTL_Expiration(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	acquired, err := lock1.Acquire(ctx, "test-lock", 2*time.Second)
	if err != nil || !acquired {
		t.Fatalf("expected acquire to succeed, got %v/%v", acquired, err)
	}

	// Lock expires after TTL
	mr.FastForward(3 * time.Second)

	acquired, err = lock2.Acquire(ctx, "test-lock", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected lock acquirable after TTL expiry")
	}
}

func TestLock_Ping(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)

	if err := lock.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.Close()
	if err := lock.Ping(context.Background()); err == nil {
		t.Error("expected error when Redis is unavailable")
	}
}
