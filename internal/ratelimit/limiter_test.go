package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestLimiter() (*Limiter, *MemoryStore, *time.Time) {
	base := time.Now().UTC()
	now := &base
	store := NewMemoryStore()
	store.nowFn = func() time.Time { return *now }
	limiter := NewLimiter(store)
	limiter.nowFn = func() time.Time { return *now }
	return limiter, store, now
}

func TestCeilingAndWindowReset(t *testing.T) {
	t.Parallel()

	limiter, _, now := newTestLimiter()
	ctx := context.Background()
	policy := Policy{Scope: "auth", MaxRequests: 5, Window: 15 * time.Minute}

	for i := 1; i <= 5; i++ {
		res, err := limiter.Check(ctx, policy, "203.0.113.9")
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d within ceiling should be allowed", i)
		}
		if res.Remaining != 5-i {
			t.Fatalf("request %d: remaining = %d, want %d", i, res.Remaining, 5-i)
		}
	}

	res, err := limiter.Check(ctx, policy, "203.0.113.9")
	if err != nil {
		t.Fatalf("sixth check: %v", err)
	}
	if res.Allowed {
		t.Fatalf("sixth request should be rejected")
	}
	if res.Remaining != 0 {
		t.Fatalf("rejected request remaining = %d, want 0", res.Remaining)
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("rejected request must carry a retry hint")
	}

	*now = now.Add(16 * time.Minute)
	res, err = limiter.Check(ctx, policy, "203.0.113.9")
	if err != nil {
		t.Fatalf("post-window check: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("counter should reset after the window expires")
	}
	if res.Remaining != 4 {
		t.Fatalf("post-reset remaining = %d, want 4", res.Remaining)
	}
}

func TestScopesAndKeysAreIndependent(t *testing.T) {
	t.Parallel()

	limiter, _, _ := newTestLimiter()
	ctx := context.Background()
	login := Policy{Scope: "auth", MaxRequests: 1, Window: time.Minute}
	signup := Policy{Scope: "signup", MaxRequests: 1, Window: time.Minute}

	if res, _ := limiter.Check(ctx, login, "a"); !res.Allowed {
		t.Fatalf("first login check should pass")
	}
	if res, _ := limiter.Check(ctx, login, "a"); res.Allowed {
		t.Fatalf("second login check for same key should fail")
	}
	if res, _ := limiter.Check(ctx, login, "b"); !res.Allowed {
		t.Fatalf("different key must not share the counter")
	}
	if res, _ := limiter.Check(ctx, signup, "a"); !res.Allowed {
		t.Fatalf("different scope must not share the counter")
	}
}

func TestSweepDropsExpiredCounters(t *testing.T) {
	t.Parallel()

	limiter, store, now := newTestLimiter()
	ctx := context.Background()
	policy := Policy{Scope: "api", MaxRequests: 100, Window: time.Minute}

	for _, key := range []string{"a", "b", "c"} {
		if _, err := limiter.Check(ctx, policy, key); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}

	*now = now.Add(5 * time.Minute)
	if _, err := limiter.Check(ctx, policy, "d"); err != nil {
		t.Fatalf("post-expiry check: %v", err)
	}

	store.mu.Lock()
	n := len(store.counters)
	store.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected expired counters swept, have %d entries", n)
	}
}

func TestConcurrentIncrementsDoNotLoseCounts(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	limiter := NewLimiter(store)
	ctx := context.Background()
	policy := Policy{Scope: "api", MaxRequests: 1000, Window: time.Minute}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := limiter.Check(ctx, policy, "shared"); err != nil {
					t.Errorf("check: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	count, _, err := store.Incr(ctx, "api:shared", policy.Window)
	if err != nil {
		t.Fatalf("final incr: %v", err)
	}
	if count != 501 {
		t.Fatalf("count = %d, want 501 (500 concurrent + 1)", count)
	}
}
