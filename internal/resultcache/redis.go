package resultcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/saucebot/saucebot/internal/domain"
)

// putScript writes the entry with its TTL, bumps it in the recency index, and
// evicts the least recently used fingerprints beyond capacity. Members whose
// entry already expired are pruned first so they never count against it.
// KEYS: entry, index, seq. ARGV: payload, ttl ms, capacity, entry prefix, fingerprint.
var putScript = goredis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], seq, ARGV[5])
local capacity = tonumber(ARGV[3])
local over = redis.call('ZCARD', KEYS[2]) - capacity
if over > 0 then
  for _, fp in ipairs(redis.call('ZRANGE', KEYS[2], 0, -1)) do
    if redis.call('EXISTS', ARGV[4] .. fp) == 0 then
      redis.call('ZREM', KEYS[2], fp)
    end
  end
  over = redis.call('ZCARD', KEYS[2]) - capacity
end
if over > 0 then
  local evicted = redis.call('ZRANGE', KEYS[2], 0, over - 1)
  for _, fp in ipairs(evicted) do
    redis.call('DEL', ARGV[4] .. fp)
  end
  redis.call('ZREMRANGEBYRANK', KEYS[2], 0, over - 1)
end
return over
`)

// getScript reads the entry and refreshes its recency; expired entries are
// dropped from the index.
// KEYS: entry, index, seq. ARGV: fingerprint.
var getScript = goredis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  redis.call('ZREM', KEYS[2], ARGV[1])
  return false
end
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
return v
`)

// Redis is a cache shared by every bot process using the same server.
// Entries are encoded with domain.EncodeOutcome.
type Redis struct {
	client   goredis.Scripter
	prefix   string
	capacity int
	ttl      time.Duration
}

// NewRedis returns a Redis-backed cache. prefix namespaces all keys.
func NewRedis(client goredis.Scripter, prefix string, capacity int, ttl time.Duration) *Redis {
	if capacity < 1 {
		capacity = 1
	}
	return &Redis{client: client, prefix: prefix, capacity: capacity, ttl: ttl}
}

func (r *Redis) keys(fingerprint string) []string {
	return []string{r.entryPrefix() + fingerprint, r.prefix + "resultcache:lru", r.prefix + "resultcache:seq"}
}

func (r *Redis) entryPrefix() string { return r.prefix + "resultcache:entry:" }

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, fingerprint string) (Result, error) {
	raw, err := getScript.Run(ctx, r.client, r.keys(fingerprint), fingerprint).Text()
	if errors.Is(err, goredis.Nil) {
		return Result{State: Miss}, nil
	}
	if err != nil {
		return Result{State: Miss}, fmt.Errorf("read cached outcome: %w", err)
	}
	o, err := domain.DecodeOutcome([]byte(raw))
	if err != nil {
		return Result{State: Miss}, err
	}
	return resultOf(o), nil
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, fingerprint string, o domain.Outcome) error {
	payload, err := domain.EncodeOutcome(normalize(o))
	if err != nil {
		return err
	}
	err = putScript.Run(ctx, r.client, r.keys(fingerprint),
		string(payload), r.ttl.Milliseconds(), r.capacity, r.entryPrefix(), fingerprint).Err()
	if err != nil {
		return fmt.Errorf("write cached outcome: %w", err)
	}
	return nil
}
