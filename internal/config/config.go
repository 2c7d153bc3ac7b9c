// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes bot settings such as
// Discord credentials, upstream search parameters, cooldown windows, storage
// backends, the ops HTTP server, logging, and observability.
package config

import (
	"encoding/hex"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DiscordConfig holds chat-platform credentials and command registration
// settings.
type DiscordConfig struct {
	Token      string // DISCORD_TOKEN (bot token, without the "Bot " prefix)
	AppID      string // DISCORD_APP_ID
	PublicKey  string // DISCORD_PUBLIC_KEY (hex, used by POST /interactions)
	DevGuildID string // DISCORD_DEV_GUILD_ID (register commands to one guild in dev)
}

// SauceNaoConfig configures the upstream reverse-image-search API.
type SauceNaoConfig struct {
	BaseURL       string  // SAUCENAO_BASE_URL
	APIKey        string  // SAUCENAO_API_KEY (system default credential)
	MinSimilarity float64 // SAUCENAO_MIN_SIMILARITY
	Priority      []int   // SAUCENAO_PRIORITY (comma-separated index ids)
}

// RateRule is a (window, limit) pair for one cooldown scope.
type RateRule struct {
	Window time.Duration
	Limit  int
}

// CooldownConfig lists the cooldown rules. The command layer is enforced on
// the slash command group; the pipeline layer on every lookup.
type CooldownConfig struct {
	CommandUser  RateRule // 300s / 1
	CommandGuild RateRule // 86400s / 100
	User         RateRule // 300s / 6
	Guild        RateRule // 86400s / 100
	DM           RateRule // 86400s / 20
}

// SentryConfig configures external error reporting.
type SentryConfig struct {
	DSN      string // SENTRY_DSN (empty disables reporting)
	LogInDev bool   // SENTRY_LOG_IN_DEV
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "saucebot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Bot
	InDev    bool   // BOT_IN_DEV
	Language string // BOT_LANGUAGE, e.g. "en"

	Discord  DiscordConfig
	SauceNao SauceNaoConfig

	AniListURL      string        // ANILIST_BASE_URL
	UpstreamTimeout time.Duration // UPSTREAM_TIMEOUT, 0 keeps the transport default

	// Storage
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // postgres DSN
	RedisURL    string // optional; enables shared cooldown and cache state

	// Result cache
	CacheSize int
	CacheTTL  time.Duration

	Cooldowns CooldownConfig

	SelectTimeout    time.Duration // image selection prompt
	PresenceInterval time.Duration // query counter presence refresh

	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	APIBasePath       string        // base path for API routes

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Rate limiting of the public API
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	Sentry SentryConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		InDev:    getbool("BOT_IN_DEV", false),
		Language: strings.ToLower(getenv("BOT_LANGUAGE", "en")),

		Discord: DiscordConfig{
			Token:      strings.TrimPrefix(getenv("DISCORD_TOKEN", ""), "Bot "),
			AppID:      getenv("DISCORD_APP_ID", ""),
			PublicKey:  getenv("DISCORD_PUBLIC_KEY", ""),
			DevGuildID: getenv("DISCORD_DEV_GUILD_ID", ""),
		},
		SauceNao: SauceNaoConfig{
			BaseURL:       getenv("SAUCENAO_BASE_URL", "https://saucenao.com"),
			APIKey:        getenv("SAUCENAO_API_KEY", ""),
			MinSimilarity: getfloat("SAUCENAO_MIN_SIMILARITY", 50.0),
			Priority:      getints("SAUCENAO_PRIORITY", []int{21, 22, 5, 37, 25}),
		},

		AniListURL:      getenv("ANILIST_BASE_URL", "https://graphql.anilist.co"),
		UpstreamTimeout: getdur("UPSTREAM_TIMEOUT", 0),

		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "saucebot.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		RedisURL:    getenv("REDIS_URL", ""),

		CacheSize: getint("CACHE_SIZE", 1024),
		CacheTTL:  getdur("CACHE_TTL", time.Hour),

		Cooldowns: CooldownConfig{
			CommandUser:  RateRule{Window: getdur("COOLDOWN_COMMAND_USER_WINDOW", 300*time.Second), Limit: getint("COOLDOWN_COMMAND_USER_LIMIT", 1)},
			CommandGuild: RateRule{Window: getdur("COOLDOWN_COMMAND_GUILD_WINDOW", 24*time.Hour), Limit: getint("COOLDOWN_COMMAND_GUILD_LIMIT", 100)},
			User:         RateRule{Window: getdur("COOLDOWN_USER_WINDOW", 300*time.Second), Limit: getint("COOLDOWN_USER_LIMIT", 6)},
			Guild:        RateRule{Window: getdur("COOLDOWN_GUILD_WINDOW", 24*time.Hour), Limit: getint("COOLDOWN_GUILD_LIMIT", 100)},
			DM:           RateRule{Window: getdur("COOLDOWN_DM_WINDOW", 24*time.Hour), Limit: getint("COOLDOWN_DM_LIMIT", 20)},
		},

		SelectTimeout:    getdur("SELECT_TIMEOUT", 60*time.Second),
		PresenceInterval: getdur("PRESENCE_INTERVAL", time.Hour),

		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		APIBasePath:       normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		Sentry: SentryConfig{
			DSN:      getenv("SENTRY_DSN", ""),
			LogInDev: getbool("SENTRY_LOG_IN_DEV", false),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "saucebot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.SauceNao.MinSimilarity < 0 || cfg.SauceNao.MinSimilarity > 100 {
		return cfg, errors.New("SAUCENAO_MIN_SIMILARITY must be between 0 and 100")
	}
	if cfg.UpstreamTimeout < 0 {
		return cfg, errors.New("UPSTREAM_TIMEOUT must be >= 0")
	}
	if cfg.CacheSize < 1 {
		return cfg, errors.New("CACHE_SIZE must be >= 1")
	}
	if cfg.CacheTTL <= 0 {
		return cfg, errors.New("CACHE_TTL must be > 0")
	}
	for _, r := range []RateRule{cfg.Cooldowns.CommandUser, cfg.Cooldowns.CommandGuild, cfg.Cooldowns.User, cfg.Cooldowns.Guild, cfg.Cooldowns.DM} {
		if r.Window <= 0 || r.Limit < 1 {
			return cfg, errors.New("cooldown windows must be > 0 and limits >= 1")
		}
	}
	if cfg.SelectTimeout <= 0 || cfg.PresenceInterval <= 0 {
		return cfg, errors.New("SELECT_TIMEOUT and PRESENCE_INTERVAL must be > 0")
	}
	if cfg.Discord.PublicKey != "" {
		if b, err := hex.DecodeString(cfg.Discord.PublicKey); err != nil || len(b) != 32 {
			return cfg, errors.New("DISCORD_PUBLIC_KEY must be a 64 character hex ed25519 key")
		}
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// Environment returns the deployment label used by error reporting.
func (c Config) Environment() string {
	if c.InDev {
		return "development"
	}
	return "production"
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// getints parses a comma-separated list of integers. Any malformed element
// discards the whole value in favour of def.
func getints(k string, def []int) []int {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	parts := splitCSV(v)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(p)
		if err != nil {
			return def
		}
		out = append(out, i)
	}
	return out
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
