// Package services – SearchService
//
// SearchService runs one image lookup: count the query, consult the result
// cache, resolve the API key, call the search API, classify the best result
// and cache it. Upstream failures come back as one of the lookup sentinel
// errors in errors.go, wrapped around the original cause.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/saucebot/saucebot/internal/domain"
	"github.com/saucebot/saucebot/internal/observability"
	"github.com/saucebot/saucebot/internal/resultcache"
	"github.com/saucebot/saucebot/internal/saucenao"
)

// GuildStore is the slice of GuildService the pipeline uses.
type GuildStore interface {
	GetAPIKey(ctx context.Context, guildID int64) (*string, error)
	IncrementQueryCount(ctx context.Context, guildID int64) error
}

// Searcher queries the reverse image search API. *saucenao.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, imageURL, apiKey string) ([]saucenao.Result, error)
}

// SearchService is the lookup pipeline.
type SearchService struct {
	Guilds     GuildStore
	Cache      resultcache.Cache
	Upstream   Searcher
	DefaultKey string
}

// NewSearchService wires a SearchService.
func NewSearchService(guilds GuildStore, cache resultcache.Cache, upstream Searcher, defaultKey string) *SearchService {
	return &SearchService{Guilds: guilds, Cache: cache, Upstream: upstream, DefaultKey: defaultKey}
}

// Lookup finds the source of imageURL on behalf of guildID (domain.DMGuildID
// for direct messages). The query is counted even when the cache answers.
// NotFound is a normal outcome, not an error.
func (s *SearchService) Lookup(ctx context.Context, guildID int64, imageURL string) (domain.Outcome, error) {
	ctx, span := otel.Tracer("services/SearchService").Start(ctx, "Lookup",
		trace.WithAttributes(attribute.Int64("guild.id", guildID)),
	)
	defer span.End()

	// The counter is display-only; a failed write must not fail the lookup.
	if err := s.Guilds.IncrementQueryCount(ctx, guildID); err != nil {
		log.Warn().Err(err).Int64("guild_id", guildID).Msg("increment query count failed")
	}

	fp := resultcache.Fingerprint(imageURL)
	span.SetAttributes(attribute.String("lookup.fingerprint", fp))

	cached, err := s.Cache.Get(ctx, fp)
	switch {
	case err != nil:
		observability.CacheResults.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("fingerprint", fp).Msg("result cache read failed")
	case cached.State != resultcache.Miss:
		observability.CacheResults.WithLabelValues(cached.State.String()).Inc()
		span.SetAttributes(attribute.String("lookup.cache", cached.State.String()))
		observability.Lookups.WithLabelValues(resultLabel(cached.Outcome)).Inc()
		return cached.Outcome, nil
	default:
		observability.CacheResults.WithLabelValues(cached.State.String()).Inc()
	}

	key, err := s.resolveKey(ctx, guildID)
	if err != nil {
		span.RecordError(err)
		observability.Lookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve api key: %w", err)
	}

	start := time.Now()
	results, err := s.Upstream.Search(ctx, imageURL, key)
	if err != nil {
		observability.UpstreamLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		span.RecordError(err)
		mapped := lookupError(err)
		observability.Lookups.WithLabelValues(errorLabel(mapped)).Inc()
		return nil, mapped
	}
	observability.UpstreamLatency.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	var outcome domain.Outcome = domain.NotFound{}
	if len(results) > 0 {
		outcome = saucenao.Classify(&results[0])
	}
	span.SetAttributes(attribute.String("lookup.kind", string(outcome.Kind())))

	if err := s.Cache.Put(ctx, fp, outcome); err != nil {
		log.Warn().Err(err).Str("fingerprint", fp).Msg("result cache write failed")
	}

	observability.Lookups.WithLabelValues(resultLabel(outcome)).Inc()
	return outcome, nil
}

// resolveKey prefers the guild override and falls back to the default key.
func (s *SearchService) resolveKey(ctx context.Context, guildID int64) (string, error) {
	if guildID == domain.DMGuildID {
		return s.DefaultKey, nil
	}
	key, err := s.Guilds.GetAPIKey(ctx, guildID)
	if err != nil {
		return "", err
	}
	if key != nil && *key != "" {
		return *key, nil
	}
	return s.DefaultKey, nil
}

// lookupError maps a search API failure onto the lookup taxonomy.
func lookupError(err error) error {
	switch saucenao.KindOf(err) {
	case saucenao.KindShortLimit, saucenao.KindDailyLimit:
		return fmt.Errorf("%w: %w", ErrRateLimitedUpstream, err)
	case saucenao.KindInvalidKey:
		return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	case saucenao.KindInvalidImage:
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
}

func resultLabel(o domain.Outcome) string {
	if domain.IsFound(o) {
		return "found"
	}
	return "not_found"
}

func errorLabel(err error) string {
	switch {
	case errors.Is(err, ErrRateLimitedUpstream):
		return "rate_limited"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "unavailable"
	}
}
