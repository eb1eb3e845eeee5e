package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch-routing-service/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLock(t *testing.T) (*RedisRouteLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRouteLock(client), mr
}

func TestRedisRouteLockAcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLock(t)

	release, err := l.TryAcquire(ctx, "route-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	_, err = l.TryAcquire(ctx, "route-1")
	if !errors.Is(err, domain.ErrRouteBusy) {
		t.Fatalf("expected ErrRouteBusy while held, got %v", err)
	}

	// A different route is unaffected.
	other, err := l.TryAcquire(ctx, "route-2")
	if err != nil {
		t.Fatalf("acquire other route: %v", err)
	}
	other()

	release()

	again, err := l.TryAcquire(ctx, "route-1")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}

func TestRedisRouteLockReleaseIgnoresForeignHolder(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLock(t)

	release, err := l.TryAcquire(ctx, "route-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Simulate TTL expiry plus re-acquisition by another instance.
	mr.FastForward(l.TTL + time.Second)

	second, err := l.TryAcquire(ctx, "route-1")
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}

	// The stale holder's release must not free the new holder's lock.
	release()

	_, err = l.TryAcquire(ctx, "route-1")
	if !errors.Is(err, domain.ErrRouteBusy) {
		t.Fatalf("expected lock still held by second holder, got %v", err)
	}

	second()
}

func TestRedisRouteLockHeld(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLock(t)

	held, err := l.Held(ctx, "route-1")
	if err != nil {
		t.Fatalf("held: %v", err)
	}
	if held {
		t.Fatal("expected unheld route")
	}

	release, err := l.TryAcquire(ctx, "route-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	held, err = l.Held(ctx, "route-1")
	if err != nil {
		t.Fatalf("held: %v", err)
	}
	if !held {
		t.Fatal("expected held route while acquired")
	}

	release()

	held, err = l.Held(ctx, "route-1")
	if err != nil {
		t.Fatalf("held: %v", err)
	}
	if held {
		t.Fatal("expected unheld route after release")
	}

	// Expiry clears the held state too.
	if _, err := l.TryAcquire(ctx, "route-1"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(l.TTL + time.Second)
	held, err = l.Held(ctx, "route-1")
	if err != nil {
		t.Fatalf("held: %v", err)
	}
	if held {
		t.Fatal("expected unheld route after expiry")
	}
}

func TestRedisRouteLockExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLock(t)

	if _, err := l.TryAcquire(ctx, "route-1"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	mr.FastForward(l.TTL + time.Second)

	release, err := l.TryAcquire(ctx, "route-1")
	if err != nil {
		t.Fatalf("expected lock to expire, got %v", err)
	}
	release()
}
