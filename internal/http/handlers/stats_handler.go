package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatsService reports usage totals. *services.GuildService satisfies it.
type StatsService interface {
	TotalQueryCount(ctx context.Context) (int64, error)
	GuildCount(ctx context.Context) (int64, error)
}

// Handlers groups the ops server endpoints.
type Handlers struct {
	stats        StatsService
	interactions *Interactions
}

// New binds handlers to their services. interactions may be nil when the
// bot only uses the gateway.
func New(stats StatsService, interactions *Interactions) *Handlers {
	return &Handlers{stats: stats, interactions: interactions}
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Queries int64 `json:"queries"`
	Guilds  int64 `json:"guilds"`
}

// Stats handles GET /stats.
func (h *Handlers) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	queries, err := h.stats.TotalQueryCount(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "failed to load stats")
		return
	}
	guilds, err := h.stats.GuildCount(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "failed to load stats")
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	ok(c, http.StatusOK, StatsResponse{Queries: queries, Guilds: guilds})
}
