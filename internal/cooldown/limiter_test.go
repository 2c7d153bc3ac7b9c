package cooldown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/saucebot/saucebot/internal/config"
)

// fakeClock is a manually advanced time source for MemoryStore.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClockedStore() (*MemoryStore, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clk.Now
	return s, clk
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestLimiter_LthSucceeds_NextFails(t *testing.T) {
	store, _ := newClockedStore()
	l := NewLimiter(ScopeUser, config.RateRule{Window: 300 * time.Second, Limit: 6}, store)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		if err := l.CheckAndConsume(ctx, "u1"); err != nil {
			t.Fatalf("consume #%d: %v", i, err)
		}
	}
	err := l.CheckAndConsume(ctx, "u1")
	var active *ActiveError
	if !errors.As(err, &active) {
		t.Fatalf("expected *ActiveError on 7th call, got %v", err)
	}
	if active.Scope != ScopeUser || active.RetryAfter != 300*time.Second {
		t.Fatalf("unexpected active error: %+v", active)
	}
	if active.RetryAfterSeconds() != 300 {
		t.Fatalf("RetryAfterSeconds = %d; want 300", active.RetryAfterSeconds())
	}

	// Other keys are independent.
	if err := l.CheckAndConsume(ctx, "u2"); err != nil {
		t.Fatalf("independent key blocked: %v", err)
	}
}

func TestLimiter_WindowResets(t *testing.T) {
	store, clk := newClockedStore()
	l := NewLimiter(ScopeDM, config.RateRule{Window: time.Minute, Limit: 1}, store)
	ctx := context.Background()

	if err := l.CheckAndConsume(ctx, "c1"); err != nil {
		t.Fatalf("first: %v", err)
	}
	clk.Advance(20 * time.Second)
	var active *ActiveError
	if err := l.CheckAndConsume(ctx, "c1"); !errors.As(err, &active) || active.RetryAfter != 40*time.Second {
		t.Fatalf("expected 40s retry, got %v", err)
	}
	clk.Advance(40 * time.Second)
	if err := l.CheckAndConsume(ctx, "c1"); err != nil {
		t.Fatalf("expected fresh window, got %v", err)
	}
}

func TestLimiter_NilStoreAndEmptyKey(t *testing.T) {
	l := NewLimiter(ScopeUser, config.RateRule{Window: time.Second, Limit: 0}, nil)
	if err := l.CheckAndConsume(context.Background(), "x"); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
	l = NewLimiter(ScopeUser, config.RateRule{Window: time.Second}, NewMemoryStore())
	if l.rule.Limit != 1 {
		t.Fatalf("limit should be coerced to 1, got %d", l.rule.Limit)
	}
	if err := l.CheckAndConsume(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestCeilSeconds(t *testing.T) {
	cases := map[time.Duration]int64{0: 1, 500 * time.Millisecond: 1, time.Second: 1, 1500 * time.Millisecond: 2}
	for in, want := range cases {
		if got := ceilSeconds(in); got != want {
			t.Fatalf("ceilSeconds(%v) = %d; want %d", in, got, want)
		}
	}
}

func testConcurrentLastSlot(t *testing.T, store WindowStore) {
	t.Helper()
	const limit = 5
	l := NewLimiter(ScopeGuild, config.RateRule{Window: time.Hour, Limit: limit}, store)
	ctx := context.Background()

	var ok, blocked int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.CheckAndConsume(ctx, "g1")
			var active *ActiveError
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.As(err, &active):
				atomic.AddInt64(&blocked, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != limit || blocked != 50-limit {
		t.Fatalf("ok=%d blocked=%d; want %d/%d", ok, blocked, limit, 50-limit)
	}
}

func TestMemoryStore_ConcurrentNeverExceedsLimit(t *testing.T) {
	testConcurrentLastSlot(t, NewMemoryStore())
}

func TestMemoryStore_GC(t *testing.T) {
	store, clk := newClockedStore()
	ctx := context.Background()
	if _, _, err := store.Consume(ctx, "old", time.Second, 1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	clk.Advance(time.Minute)

	store.mu.Lock()
	store.cleanupN = 4999
	store.mu.Unlock()

	if _, _, err := store.Consume(ctx, "new", time.Second, 1); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected stale bucket to be evicted, have %d", store.Len())
	}
}

func TestRedisStore_BlocksAndResets(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	l := NewLimiter(ScopeCommandUser, config.RateRule{Window: 300 * time.Second, Limit: 1}, NewRedisStore(client, "sb:"))
	ctx := context.Background()

	if err := l.CheckAndConsume(ctx, "u1"); err != nil {
		t.Fatalf("first: %v", err)
	}
	var active *ActiveError
	if err := l.CheckAndConsume(ctx, "u1"); !errors.As(err, &active) {
		t.Fatalf("expected *ActiveError, got %v", err)
	}
	if active.RetryAfter <= 0 || active.RetryAfter > 300*time.Second {
		t.Fatalf("unexpected retry after %v", active.RetryAfter)
	}

	// The rejected call must not have inflated the counter.
	if v, err := mr.Get("sb:cooldown:command_user:u1"); err != nil || v != "1" {
		t.Fatalf("counter = %q (%v); want 1", v, err)
	}

	mr.FastForward(301 * time.Second)
	if err := l.CheckAndConsume(ctx, "u1"); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestRedisStore_ConcurrentNeverExceedsLimit(t *testing.T) {
	_, client := newMiniRedisClient(t)
	testConcurrentLastSlot(t, NewRedisStore(client, ""))
}

func TestRedisStore_Errors(t *testing.T) {
	if _, _, err := NewRedisStore(nil, "").Consume(context.Background(), "k", time.Second, 1); err == nil {
		t.Fatalf("expected error for nil client")
	}
	mr, client := newMiniRedisClient(t)
	s := NewRedisStore(client, "")
	if _, _, err := s.Consume(context.Background(), "k", 0, 1); err == nil {
		t.Fatalf("expected error for zero window")
	}
	mr.Close()
	if _, _, err := s.Consume(context.Background(), "k", time.Second, 1); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}
