// Package httpapi wires the ops HTTP server: health, Prometheus metrics,
// public usage stats and the Discord interactions webhook, behind tracing,
// correlation ids, redacted access logs, recovery, rate limiting, CORS and
// security headers.
package httpapi

import (
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/saucebot/saucebot/internal/config"
	"github.com/saucebot/saucebot/internal/http/handlers"
	"github.com/saucebot/saucebot/internal/http/middleware"
)

// maxBodyBytes caps request bodies. Interaction payloads are a few KiB.
const maxBodyBytes = 1 << 20

// Deps are the services behind the routes.
type Deps struct {
	Stats handlers.StatsService
	// Interactions enables POST {base}/interactions; nil leaves it unmounted.
	Interactions *handlers.Interactions
	// OnPanic forwards recovered panics, e.g. to error tracking. Optional.
	OnPanic middleware.PanicReporter
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry, so everything below is traced
//  2. RequestID, then the redacting access log, then Recovery
//  3. Body size limit and Prometheus instrumentation
//  4. Rate limiter (the interactions route is exempt)
//  5. gzip (not for interactions), CORS and security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(middleware.LogOptions{}))
	r.Use(middleware.Recovery(deps.OnPanic))
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	interactionsPath := joinPath(cfg.APIBasePath, "/interactions")
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP(), interactionsPath)
	r.Use(rl.Handler())

	// Discord expects plain interaction responses.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{interactionsPath})))

	r.Use(corsPolicy(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(deps.Stats, deps.Interactions)
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.GET("/stats", h.Stats)
	if deps.Interactions != nil {
		api.POST("/interactions", h.Interact)
	}
}

// NewServer builds the ops server with the configured timeouts.
func NewServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// corsPolicy allows any origin when no allowlist is configured, since every
// public endpoint is read-only or signature-protected.
func corsPolicy(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}

func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "" {
		base = "/"
	}
	return path.Join(base, p)
}
