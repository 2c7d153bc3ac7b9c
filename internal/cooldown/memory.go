package cooldown

import (
	"context"
	"sync"
	"time"
)

// window is one fixed-window bucket.
type window struct {
	resetAt time.Time
	count   int
}

// MemoryStore is a process-local WindowStore. Buckets live in a map guarded
// by a mutex, so check-and-consume is linearizable per key. Expired buckets
// are evicted opportunistically every few thousand calls.
//
// This type is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	windows  map[string]*window
	now      func() time.Time
	cleanupN uint64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Consume implements WindowStore.
func (s *MemoryStore) Consume(_ context.Context, key string, win time.Duration, limit int) (bool, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// GC before touching key so a stale bucket for key is replaced, not reused.
	s.cleanupN++
	if s.cleanupN >= 5000 {
		for k, w := range s.windows {
			if !now.Before(w.resetAt) {
				delete(s.windows, k)
			}
		}
		s.cleanupN = 0
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(win)}
		s.windows[key] = w
	}

	resetIn := w.resetAt.Sub(now)
	if w.count >= limit {
		return false, resetIn, nil
	}
	w.count++
	return true, resetIn, nil
}

// Len reports the number of tracked buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
