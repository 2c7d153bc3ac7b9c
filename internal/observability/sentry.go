package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/saucebot/saucebot/internal/config"
)

// SentryReporter forwards unexpected failures to Sentry. A nil reporter
// drops everything, which is what a bot without a DSN gets.
type SentryReporter struct {
	hub *sentry.Hub
}

// sentryEnabled reports whether errors should leave the process. Development
// builds stay quiet unless explicitly asked to report.
func sentryEnabled(cfg config.Config) bool {
	return cfg.Sentry.DSN != "" && (!cfg.InDev || cfg.Sentry.LogInDev)
}

func sentryOptions(cfg config.Config, release string) sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Environment(),
		Release:          release,
		AttachStacktrace: true,
	}
}

// SetupSentry builds the reporter. It returns (nil, nil) when reporting is off.
func SetupSentry(cfg config.Config, release string) (*SentryReporter, error) {
	if !sentryEnabled(cfg) {
		return nil, nil
	}
	client, err := sentry.NewClient(sentryOptions(cfg, release))
	if err != nil {
		return nil, err
	}
	hub := sentry.NewHub(client, sentry.NewScope())
	return &SentryReporter{hub: hub}, nil
}

// Capture reports err tagged with the interaction context.
func (r *SentryReporter) Capture(ctx context.Context, err error, tags map[string]string) {
	if r == nil || r.hub == nil || err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = r.hub.Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			if v != "" {
				scope.SetTag(k, v)
			}
		}
		hub.CaptureException(err)
	})
}

// Flush waits up to timeout for buffered events to be sent.
func (r *SentryReporter) Flush(timeout time.Duration) {
	if r == nil || r.hub == nil {
		return
	}
	r.hub.Flush(timeout)
}
