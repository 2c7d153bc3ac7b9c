// Package app assembles the bot: storage, shared state, upstream clients, the
// Discord session and the ops HTTP server.
package app

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/saucebot/saucebot/internal/anilist"
	"github.com/saucebot/saucebot/internal/bot"
	"github.com/saucebot/saucebot/internal/config"
	"github.com/saucebot/saucebot/internal/cooldown"
	httpapi "github.com/saucebot/saucebot/internal/http"
	"github.com/saucebot/saucebot/internal/http/handlers"
	"github.com/saucebot/saucebot/internal/lang"
	"github.com/saucebot/saucebot/internal/observability"
	"github.com/saucebot/saucebot/internal/render"
	"github.com/saucebot/saucebot/internal/repo"
	"github.com/saucebot/saucebot/internal/resultcache"
	"github.com/saucebot/saucebot/internal/saucenao"
	"github.com/saucebot/saucebot/internal/services"
)

// redisPrefix namespaces every key the bot writes to a shared Redis.
const redisPrefix = "saucebot:"

const shutdownTimeout = 10 * time.Second

// guildRepoShim adapts the repository free functions to services.GuildRepo.
type guildRepoShim struct{}

// GetAPIKey proxies repo.GetAPIKey.
func (guildRepoShim) GetAPIKey(ctx context.Context, db *gorm.DB, guildID int64) (*string, error) {
	return repo.GetAPIKey(ctx, db, guildID)
}

// SetAPIKey proxies repo.SetAPIKey.
func (guildRepoShim) SetAPIKey(ctx context.Context, db *gorm.DB, guildID int64, key string) error {
	return repo.SetAPIKey(ctx, db, guildID, key)
}

// IncrementQueryCount proxies repo.IncrementQueryCount.
func (guildRepoShim) IncrementQueryCount(ctx context.Context, db *gorm.DB, guildID int64) error {
	return repo.IncrementQueryCount(ctx, db, guildID)
}

// TotalQueryCount proxies repo.TotalQueryCount.
func (guildRepoShim) TotalQueryCount(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.TotalQueryCount(ctx, db)
}

// CountGuilds proxies repo.CountGuilds.
func (guildRepoShim) CountGuilds(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountGuilds(ctx, db)
}

// App owns every long-lived resource of the process.
type App struct {
	cfg config.Config

	db       *gorm.DB
	redis    *goredis.Client // nil without REDIS_URL
	session  *discordgo.Session
	reporter *observability.SentryReporter // nil when error tracking is off

	tr     *lang.Translator
	guilds *services.GuildService
	bot    *bot.Bot

	engine *gin.Engine
	server *http.Server
}

// New builds the application. It connects to the database and Redis but does
// not open the Discord gateway; Run does that.
func New(ctx context.Context, cfg config.Config, reporter *observability.SentryReporter) (*App, error) {
	if cfg.Discord.Token == "" {
		return nil, errors.New("DISCORD_TOKEN is required")
	}
	a := &App{cfg: cfg, reporter: reporter}

	db, err := repo.Open(cfg.DBDriver, dbDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	if err := repo.AutoMigrate(db); err != nil {
		a.close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var (
		store cooldown.WindowStore
		cache resultcache.Cache
	)
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = rdb
		store = cooldown.NewRedisStore(rdb, redisPrefix)
		cache = resultcache.NewRedis(rdb, redisPrefix, cfg.CacheSize, cfg.CacheTTL)
		log.Info().Msg("cooldowns and result cache shared through redis")
	} else {
		store = cooldown.NewMemoryStore()
		cache = resultcache.NewMemory(cfg.CacheSize, cfg.CacheTTL)
	}

	tr, err := lang.Load(cfg.Language)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load language: %w", err)
	}
	a.tr = tr

	sauce := saucenao.New(cfg.SauceNao.BaseURL, cfg.UpstreamTimeout, cfg.SauceNao.MinSimilarity, cfg.SauceNao.Priority)
	media := anilist.New(cfg.AniListURL, cfg.UpstreamTimeout)

	a.guilds = services.NewGuildService(db, guildRepoShim{}, sauce)
	search := services.NewSearchService(a.guilds, cache, sauce, cfg.SauceNao.APIKey)

	a.bot = bot.New(search, a.guilds, cooldown.NewGate(store, cfg.Cooldowns), render.New(tr, media), tr, cfg.SelectTimeout)
	if reporter != nil {
		a.bot.Reporter = reporter
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	a.session = session

	interactions, err := a.interactions()
	if err != nil {
		a.close()
		return nil, err
	}

	gin.SetMode(cfg.GinMode)
	a.engine = gin.New()
	httpapi.RegisterRoutes(a.engine, httpapi.Deps{
		Stats:        a.guilds,
		Interactions: interactions,
		OnPanic:      a.reportPanic,
	}, cfg)
	a.server = httpapi.NewServer(cfg, a.engine)

	return a, nil
}

// Handler exposes the ops router.
func (a *App) Handler() http.Handler { return a.engine }

// Run opens the gateway, publishes the commands, starts the presence loop
// and serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	a.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		go a.bot.Route(ctx, s, ic.Interaction)
	})
	a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("gateway ready")
	})
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	if err := bot.RegisterCommands(a.session, a.appID(), a.commandGuild()); err != nil {
		return err
	}

	go bot.RunPresence(ctx, a.session, a.guilds, a.tr, a.cfg.PresenceInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.server.Addr).Msg("ops server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("ops server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// interactions configures the HTTP interactions endpoint, or returns nil when
// no public key is set.
func (a *App) interactions() (*handlers.Interactions, error) {
	if a.cfg.Discord.PublicKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(a.cfg.Discord.PublicKey)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, errors.New("DISCORD_PUBLIC_KEY is not a valid ed25519 key")
	}
	return &handlers.Interactions{
		PublicKey: ed25519.PublicKey(key),
		Router:    a.bot,
		REST:      a.session,
	}, nil
}

func (a *App) reportPanic(c *gin.Context, rec any) {
	if a.reporter == nil {
		return
	}
	a.reporter.Capture(c.Request.Context(), fmt.Errorf("panic: %v", rec), map[string]string{
		"route":  c.FullPath(),
		"method": c.Request.Method,
	})
}

// appID prefers the configured id; the bot user id is the same value for
// every application created after 2017.
func (a *App) appID() string {
	if a.cfg.Discord.AppID != "" {
		return a.cfg.Discord.AppID
	}
	if a.session.State != nil && a.session.State.User != nil {
		return a.session.State.User.ID
	}
	return ""
}

// commandGuild scopes command registration to the dev guild in development.
func (a *App) commandGuild() string {
	if a.cfg.InDev {
		return a.cfg.Discord.DevGuildID
	}
	return ""
}

func (a *App) close() {
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			log.Error().Err(err).Msg("close discord session")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Error().Err(err).Msg("close redis")
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Error().Err(err).Msg("close database")
			}
		}
	}
}

func dbDSN(cfg config.Config) string {
	if cfg.DBDriver == "postgres" {
		return cfg.DatabaseURL
	}
	return cfg.DBPath
}

func openRedis(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
