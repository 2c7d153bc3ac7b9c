// Package resultcache stores classified lookup outcomes keyed by a
// fingerprint of the resolved image URL, so identical lookups inside the TTL
// never reach the upstream API twice. "Nothing found" is cached like any
// other outcome.
//
// Two backends exist: Memory (bounded LRU with per-entry expiry, one process)
// and Redis (shared across shards, same LRU bound kept in a sorted set).
package resultcache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/saucebot/saucebot/internal/domain"
)

// State is the three-way result of a cache read.
type State int

const (
	// Miss means no live entry exists; the caller must look up upstream.
	Miss State = iota
	// Hit means a found outcome was cached.
	Hit
	// HitNotFound means a previous lookup legitimately found nothing.
	HitNotFound
)

func (s State) String() string {
	switch s {
	case Hit:
		return "hit"
	case HitNotFound:
		return "hit_not_found"
	default:
		return "miss"
	}
}

// Result is returned by Cache.Get. Outcome is nil on Miss.
type Result struct {
	State   State
	Outcome domain.Outcome
}

// Cache is implemented by Memory and Redis.
type Cache interface {
	Get(ctx context.Context, fingerprint string) (Result, error)
	Put(ctx context.Context, fingerprint string, o domain.Outcome) error
}

// Fingerprint hashes the exact resolved URL. No normalization is applied:
// case and query parameter order are significant.
func Fingerprint(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

func resultOf(o domain.Outcome) Result {
	if !domain.IsFound(o) {
		return Result{State: HitNotFound, Outcome: domain.NotFound{}}
	}
	return Result{State: Hit, Outcome: o}
}

func normalize(o domain.Outcome) domain.Outcome {
	if o == nil {
		return domain.NotFound{}
	}
	return o
}
