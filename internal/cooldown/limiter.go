// Package cooldown implements fixed-window rate limiting for sauce lookups.
//
// A Limiter is parameterized by one (window, limit) rule and keyed by a scope
// identity (a user, a guild, or a DM channel). The check and the consumption
// happen in one atomic store operation, so two concurrent requests for the
// same key can never both take the last slot. Windows start on the first hit
// and reset once the window has elapsed.
//
// Storage is pluggable through WindowStore: MemoryStore serves a single
// process, RedisStore shares windows across shards and restarts.
package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saucebot/saucebot/internal/config"
)

// Scope names the dimension a limiter is keyed on.
type Scope string

const (
	ScopeCommandUser  Scope = "command_user"
	ScopeCommandGuild Scope = "command_guild"
	ScopeUser         Scope = "user"
	ScopeGuild        Scope = "guild"
	ScopeDM           Scope = "dm"
)

// ErrNoStore is returned when a limiter was built without a WindowStore.
var ErrNoStore = errors.New("cooldown store is nil")

// ActiveError reports that a scope is exhausted for its current window.
type ActiveError struct {
	Scope      Scope
	RetryAfter time.Duration
}

func (e *ActiveError) Error() string {
	return fmt.Sprintf("cooldown active for %s scope, retry after %s", e.Scope, e.RetryAfter)
}

// RetryAfterSeconds rounds the wait up to whole seconds (minimum 1).
func (e *ActiveError) RetryAfterSeconds() int64 {
	return ceilSeconds(e.RetryAfter)
}

// WindowStore records hits in fixed windows.
type WindowStore interface {
	// Consume atomically records one hit for key when fewer than limit hits
	// exist in the current window. It reports whether the hit was recorded
	// and how long until the window resets.
	Consume(ctx context.Context, key string, window time.Duration, limit int) (allowed bool, resetIn time.Duration, err error)
}

// Limiter enforces one rule for one scope.
type Limiter struct {
	scope Scope
	rule  config.RateRule
	store WindowStore
}

// NewLimiter builds a limiter. Limits below 1 are raised to 1.
func NewLimiter(scope Scope, rule config.RateRule, store WindowStore) *Limiter {
	if rule.Limit < 1 {
		rule.Limit = 1
	}
	return &Limiter{scope: scope, rule: rule, store: store}
}

// Scope returns the limiter's scope.
func (l *Limiter) Scope() Scope { return l.scope }

// CheckAndConsume takes one slot for key or returns *ActiveError with the
// time remaining until the window resets.
func (l *Limiter) CheckAndConsume(ctx context.Context, key string) error {
	if l.store == nil {
		return ErrNoStore
	}
	if key == "" {
		return fmt.Errorf("cooldown %s: empty scope key", l.scope)
	}

	allowed, resetIn, err := l.store.Consume(ctx, l.bucket(key), l.rule.Window, l.rule.Limit)
	if err != nil {
		return fmt.Errorf("cooldown %s: %w", l.scope, err)
	}
	if !allowed {
		return &ActiveError{Scope: l.scope, RetryAfter: resetIn}
	}
	return nil
}

func (l *Limiter) bucket(key string) string {
	return "cooldown:" + string(l.scope) + ":" + key
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}
