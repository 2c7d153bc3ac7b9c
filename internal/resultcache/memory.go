package resultcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/saucebot/saucebot/internal/domain"
)

// Memory is a process-local cache bounded by entry count with a fixed TTL
// per entry. Reads refresh recency; the least recently used entry is evicted
// once capacity is reached. Safe for concurrent use.
type Memory struct {
	lru *expirable.LRU[string, domain.Outcome]
}

// NewMemory returns a cache holding at most size entries for ttl each.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size < 1 {
		size = 1
	}
	return &Memory{lru: expirable.NewLRU[string, domain.Outcome](size, nil, ttl)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, fingerprint string) (Result, error) {
	o, ok := m.lru.Get(fingerprint)
	if !ok {
		return Result{State: Miss}, nil
	}
	return resultOf(o), nil
}

// Put implements Cache. Storing the same fingerprint twice keeps the last
// value and restarts its TTL.
func (m *Memory) Put(_ context.Context, fingerprint string, o domain.Outcome) error {
	m.lru.Add(fingerprint, normalize(o))
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int { return m.lru.Len() }
