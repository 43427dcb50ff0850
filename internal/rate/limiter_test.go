package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter(time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "contact", 3)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}

	res, err := l.Allow(ctx, "contact", 3)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("fourth hit must be rejected")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("retry after = %v", res.RetryAfter)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(time.Hour)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a", 1)
	res, err := l.Allow(ctx, "b", 1)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !res.Allowed {
		t.Fatal("keys must not share the counter")
	}
}

func TestMemoryLimiter_ZeroMaxIsUnlimited(t *testing.T) {
	l := NewMemoryLimiter(time.Hour)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		res, err := l.Allow(ctx, "free", 0)
		if err != nil || !res.Allowed {
			t.Fatalf("hit %d: %v %v", i, res.Allowed, err)
		}
	}
}
