package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRedisClient(t *testing.T) *goredis.Client {
	t.Helper()

	srv := miniredis.RunT(t)
	return goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
}

func TestSendRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_000, 0)
	limiter, err := newSendRateLimiter(
		rdb,
		2,
		func() time.Time { return now },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newSendRateLimiter() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(context.Background(), "smtp.example.com")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(context.Background(), "smtp.example.com")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("third call in the same window should be rejected")
	}

	now = now.Add(time.Second)
	allowed, err = limiter.Allow(context.Background(), "smtp.example.com")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("new window should allow call")
	}
}

func TestSendRateLimiterAllowPerHost(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_100, 0)
	limiter, err := newSendRateLimiter(
		rdb,
		1,
		func() time.Time { return now },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newSendRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), "smtp.a.example")
	if err != nil || !allowed {
		t.Fatalf("first host should be allowed, allowed=%v err=%v", allowed, err)
	}

	allowed, err = limiter.Allow(context.Background(), "smtp.b.example")
	if err != nil || !allowed {
		t.Fatalf("second host has its own window, allowed=%v err=%v", allowed, err)
	}

	allowed, err = limiter.Allow(context.Background(), "smtp.a.example")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("first host should now be limited")
	}
}

func TestSendRateLimiterWaitRetriesUntilAllowed(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_200, 0)
	sleeps := 0
	limiter, err := newSendRateLimiter(
		rdb,
		1,
		func() time.Time { return now },
		func(ctx context.Context, d time.Duration) error {
			sleeps++
			// Advance the window instead of actually sleeping.
			now = now.Add(time.Second)
			return nil
		},
	)
	if err != nil {
		t.Fatalf("newSendRateLimiter() error = %v", err)
	}

	if err := limiter.Wait(context.Background(), "smtp.example.com"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if err := limiter.Wait(context.Background(), "smtp.example.com"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if sleeps == 0 {
		t.Fatal("second Wait should have slept at least once")
	}
}

func TestSendRateLimiterRequiresHost(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)
	limiter, err := NewSendRateLimiter(rdb, 5)
	if err != nil {
		t.Fatalf("NewSendRateLimiter() error = %v", err)
	}

	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty host")
	}
}
