package cooldown

import (
	"context"

	"github.com/saucebot/saucebot/internal/config"
)

// Subject identifies who is invoking a lookup. GuildID is empty for direct
// messages, in which case the channel stands in for the guild.
type Subject struct {
	UserID    string
	GuildID   string
	ChannelID string
}

// InGuild reports whether the invocation came from a guild.
func (s Subject) InGuild() bool { return s.GuildID != "" }

// guildOrChannel keys guild-scoped buckets, falling back to the DM channel.
func (s Subject) guildOrChannel() string {
	if s.GuildID != "" {
		return s.GuildID
	}
	return s.ChannelID
}

// Gate composes the cooldown limiters. The command layer guards the slash
// command group (url and file subcommands); the pipeline layer guards every
// lookup including message commands. Checks run in order and the first
// exhausted scope short-circuits; slots already taken by earlier scopes in
// the same call are not returned.
type Gate struct {
	commandUser  *Limiter
	commandGuild *Limiter
	user         *Limiter
	guild        *Limiter
	dm           *Limiter
}

// NewGate builds all five limiters over one store.
func NewGate(store WindowStore, cfg config.CooldownConfig) *Gate {
	return &Gate{
		commandUser:  NewLimiter(ScopeCommandUser, cfg.CommandUser, store),
		commandGuild: NewLimiter(ScopeCommandGuild, cfg.CommandGuild, store),
		user:         NewLimiter(ScopeUser, cfg.User, store),
		guild:        NewLimiter(ScopeGuild, cfg.Guild, store),
		dm:           NewLimiter(ScopeDM, cfg.DM, store),
	}
}

// AdmitCommand applies the command-group layer.
func (g *Gate) AdmitCommand(ctx context.Context, s Subject) error {
	if err := g.commandUser.CheckAndConsume(ctx, s.UserID); err != nil {
		return err
	}
	return g.commandGuild.CheckAndConsume(ctx, s.guildOrChannel())
}

// AdmitLookup applies the pipeline layer: user, then guild or DM channel.
func (g *Gate) AdmitLookup(ctx context.Context, s Subject) error {
	if err := g.user.CheckAndConsume(ctx, s.UserID); err != nil {
		return err
	}
	if s.InGuild() {
		return g.guild.CheckAndConsume(ctx, s.GuildID)
	}
	return g.dm.CheckAndConsume(ctx, s.ChannelID)
}

// Admit applies the command layer when command is true, then the pipeline
// layer. Any *ActiveError means the lookup must not proceed.
func (g *Gate) Admit(ctx context.Context, s Subject, command bool) error {
	if command {
		if err := g.AdmitCommand(ctx, s); err != nil {
			return err
		}
	}
	return g.AdmitLookup(ctx, s)
}
