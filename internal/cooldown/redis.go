package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// consumeScript increments the bucket, starts its TTL on the first hit, and
// rolls the increment back when the limit is already reached, all inside one
// server-side call. Returns {allowed, pttl}.
var consumeScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
if count > tonumber(ARGV[2]) then
  redis.call('DECR', KEYS[1])
  return {0, ttl}
end
return {1, ttl}
`)

// RedisStore is a WindowStore shared across processes.
type RedisStore struct {
	client goredis.Scripter
	prefix string
}

// NewRedisStore wraps a Redis client. prefix namespaces keys (may be empty).
func NewRedisStore(client goredis.Scripter, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Consume implements WindowStore.
func (s *RedisStore) Consume(ctx context.Context, key string, win time.Duration, limit int) (bool, time.Duration, error) {
	if s.client == nil {
		return false, 0, errors.New("redis client is nil")
	}
	if key == "" || win <= 0 {
		return false, 0, errors.New("invalid cooldown window payload")
	}

	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key}, win.Milliseconds(), limit).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("consume cooldown window: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("consume cooldown window: unexpected reply %v", res)
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}
