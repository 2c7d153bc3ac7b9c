// Package services – GuildService
//
// GuildService owns per-guild settings: the optional search API key override
// and the usage counter. Direct messages are stored under domain.DMGuildID.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/saucebot/saucebot/internal/saucenao"
)

var apiKeyRe = regexp.MustCompile(`^[a-z\d]{32}$`)

// GuildRepo is the persistence contract GuildService needs.
type GuildRepo interface {
	GetAPIKey(ctx context.Context, db *gorm.DB, guildID int64) (*string, error)
	SetAPIKey(ctx context.Context, db *gorm.DB, guildID int64, key string) error
	IncrementQueryCount(ctx context.Context, db *gorm.DB, guildID int64) error
	TotalQueryCount(ctx context.Context, db *gorm.DB) (int64, error)
	CountGuilds(ctx context.Context, db *gorm.DB) (int64, error)
}

// KeyTester introspects a search API key. *saucenao.Client satisfies it.
type KeyTester interface {
	TestKey(ctx context.Context, apiKey string) (saucenao.AccountInfo, error)
}

// GuildService reads and writes guild settings.
type GuildService struct {
	DB   *gorm.DB
	Repo GuildRepo
	Keys KeyTester
}

// NewGuildService wires a GuildService.
func NewGuildService(db *gorm.DB, r GuildRepo, keys KeyTester) *GuildService {
	return &GuildService{DB: db, Repo: r, Keys: keys}
}

func guildTracer() trace.Tracer { return otel.Tracer("services/GuildService") }

// GetAPIKey returns the guild's override key, or nil.
func (s *GuildService) GetAPIKey(ctx context.Context, guildID int64) (*string, error) {
	ctx, span := guildTracer().Start(ctx, "GetAPIKey", trace.WithAttributes(attribute.Int64("guild.id", guildID)))
	defer span.End()

	key, err := s.Repo.GetAPIKey(ctx, s.DB, guildID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return key, nil
}

// IncrementQueryCount adds one to the guild's counter.
func (s *GuildService) IncrementQueryCount(ctx context.Context, guildID int64) error {
	ctx, span := guildTracer().Start(ctx, "IncrementQueryCount", trace.WithAttributes(attribute.Int64("guild.id", guildID)))
	defer span.End()

	if err := s.Repo.IncrementQueryCount(ctx, s.DB, guildID); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// TotalQueryCount sums every guild's counter.
func (s *GuildService) TotalQueryCount(ctx context.Context) (int64, error) {
	ctx, span := guildTracer().Start(ctx, "TotalQueryCount")
	defer span.End()
	return s.Repo.TotalQueryCount(ctx, s.DB)
}

// GuildCount reports how many guilds have used the bot.
func (s *GuildService) GuildCount(ctx context.Context) (int64, error) {
	ctx, span := guildTracer().Start(ctx, "GuildCount")
	defer span.End()
	return s.Repo.CountGuilds(ctx, s.DB)
}

// RegisterAPIKey validates key and stores it as the guild's override.
//
// The format is checked locally first; a malformed key never reaches the
// network. The key is then introspected upstream: an error reply yields
// ErrKeyRejected and a free account yields ErrKeyIneligible. In both cases
// any previously stored key is left untouched.
func (s *GuildService) RegisterAPIKey(ctx context.Context, guildID int64, key string) error {
	ctx, span := guildTracer().Start(ctx, "RegisterAPIKey", trace.WithAttributes(attribute.Int64("guild.id", guildID)))
	defer span.End()

	if !apiKeyRe.MatchString(key) {
		return ErrInvalidKeyFormat
	}

	info, err := s.Keys.TestKey(ctx, key)
	if err != nil {
		span.RecordError(err)
		return registrationError(err)
	}
	if info.Free() {
		return ErrKeyIneligible
	}

	if err := s.Repo.SetAPIKey(ctx, s.DB, guildID, key); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// registrationError maps a key introspection failure. Any error reported by
// the API itself means the key is unusable; transport failures are not the
// key's fault.
func registrationError(err error) error {
	var apiErr *saucenao.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	switch apiErr.Kind {
	case saucenao.KindShortLimit, saucenao.KindDailyLimit, saucenao.KindInvalidKey:
		// A candidate that is already out of quota cannot serve the guild either.
		return fmt.Errorf("%w: %w", ErrKeyRejected, err)
	}
	if apiErr.Status != 0 {
		return fmt.Errorf("%w: %w", ErrKeyRejected, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}
