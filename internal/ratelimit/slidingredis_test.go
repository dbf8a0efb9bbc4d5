package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestAllowSlidesWithTheWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := Limiter{Client: client, Prefix: "rl:"}
	ctx := context.Background()
	window := 2 * time.Second

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "checkout", window, 2)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("call %d should be allowed", i)
		}
		if d.Remaining != 1-i {
			t.Fatalf("call %d: remaining = %d", i, d.Remaining)
		}
	}

	d, err := l.Allow(ctx, "checkout", window, 2)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("expected rejection with 0 remaining, got %+v", d)
	}

	mr.FastForward(window)
	d, err = l.Allow(ctx, "checkout", window, 2)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !d.Allowed {
		t.Fatal("expected window to have slid past old entries")
	}
}

func TestAllowDisabledWithoutClient(t *testing.T) {
	d, err := Limiter{}.Allow(context.Background(), "any", time.Second, 5)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !d.Allowed || d.Remaining != 5 {
		t.Fatalf("expected pass-through decision, got %+v", d)
	}
}
