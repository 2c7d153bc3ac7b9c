// Command saucebot runs the Discord reverse image search bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/saucebot/saucebot/internal/app"
	"github.com/saucebot/saucebot/internal/config"
	"github.com/saucebot/saucebot/internal/observability"
	"github.com/saucebot/saucebot/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("saucebot stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("saucebot stopped")
}

func run() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty || cfg.InDev, cfg.OTEL.ServiceName, version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter, err := observability.SetupSentry(cfg, version)
	if err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	defer reporter.Flush(2 * time.Second)

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version, cfg.Environment())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error().Err(err).Msg("tracer shutdown")
		}
	}()

	application, err := app.New(ctx, cfg, reporter)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	log.Info().Bool("dev", cfg.InDev).Msg("saucebot starting")
	return application.Run(ctx)
}
