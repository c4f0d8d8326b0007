package redisclient

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func setup(t *testing.T) *Pinger {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb, err := NewRedisClient(addr, "", os.Getenv("REDIS_TEST_PASSWORD"))
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return &Pinger{Client: rdb}
}

func TestSlotLockExcludesConcurrentHolder(t *testing.T) {
	p := setup(t)
	locker := NewRedisSlotLocker(p.Client, 5*time.Second)
	slot := "test-" + uuid.NewString()

	err := locker.WithSlotLock(context.Background(), slot, func(ctx context.Context) error {
		inner := locker.WithSlotLock(ctx, slot, func(context.Context) error { return nil })
		if !errors.Is(inner, ErrLockNotAcquired) {
			t.Errorf("expected ErrLockNotAcquired, got %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer lock: %v", err)
	}

	// released after fn returned
	if err := locker.WithSlotLock(context.Background(), slot, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("relock: %v", err)
	}
}

func TestOrderClaimLifecycle(t *testing.T) {
	p := setup(t)
	claims := NewRedisOrderClaims(p.Client, time.Minute)
	ctx := context.Background()
	order := "ORDER-" + uuid.NewString()
	t.Cleanup(func() { _ = claims.Release(ctx, order) })

	_, claimed, err := claims.Claim(ctx, order)
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}

	if _, _, err := claims.Claim(ctx, order); !errors.Is(err, ErrClaimInFlight) {
		t.Fatalf("expected in-flight, got %v", err)
	}

	if err := claims.Complete(ctx, order, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, claimed, err := claims.Claim(ctx, order)
	if err != nil || claimed || string(got) != `{"ok":true}` {
		t.Fatalf("replay: got=%s claimed=%v err=%v", got, claimed, err)
	}
}
