package cooldown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saucebot/saucebot/internal/config"
)

func defaultCooldowns() config.CooldownConfig {
	return config.CooldownConfig{
		CommandUser:  config.RateRule{Window: 300 * time.Second, Limit: 1},
		CommandGuild: config.RateRule{Window: 24 * time.Hour, Limit: 100},
		User:         config.RateRule{Window: 300 * time.Second, Limit: 6},
		Guild:        config.RateRule{Window: 24 * time.Hour, Limit: 100},
		DM:           config.RateRule{Window: 24 * time.Hour, Limit: 20},
	}
}

func scopeOf(t *testing.T, err error) Scope {
	t.Helper()
	var active *ActiveError
	if !errors.As(err, &active) {
		t.Fatalf("expected *ActiveError, got %v", err)
	}
	return active.Scope
}

func TestGate_CommandLayerIsStricter(t *testing.T) {
	g := NewGate(NewMemoryStore(), defaultCooldowns())
	ctx := context.Background()
	s := Subject{UserID: "u", GuildID: "g", ChannelID: "c"}

	if err := g.Admit(ctx, s, true); err != nil {
		t.Fatalf("first slash lookup: %v", err)
	}
	if got := scopeOf(t, g.Admit(ctx, s, true)); got != ScopeCommandUser {
		t.Fatalf("second slash lookup blocked by %s; want %s", got, ScopeCommandUser)
	}

	// Message commands only pass the pipeline layer; 6/5min with one slot used.
	for i := 0; i < 5; i++ {
		if err := g.Admit(ctx, s, false); err != nil {
			t.Fatalf("message lookup #%d: %v", i+1, err)
		}
	}
	if got := scopeOf(t, g.Admit(ctx, s, false)); got != ScopeUser {
		t.Fatalf("blocked by %s; want %s", got, ScopeUser)
	}
}

func TestGate_GuildScopeSharedAcrossUsers(t *testing.T) {
	cfg := defaultCooldowns()
	cfg.Guild.Limit = 2
	g := NewGate(NewMemoryStore(), cfg)
	ctx := context.Background()

	for _, u := range []string{"a", "b"} {
		if err := g.AdmitLookup(ctx, Subject{UserID: u, GuildID: "g"}); err != nil {
			t.Fatalf("user %s: %v", u, err)
		}
	}
	if got := scopeOf(t, g.AdmitLookup(ctx, Subject{UserID: "c", GuildID: "g"})); got != ScopeGuild {
		t.Fatalf("blocked by %s; want %s", got, ScopeGuild)
	}
	// A different guild is unaffected.
	if err := g.AdmitLookup(ctx, Subject{UserID: "c", GuildID: "h"}); err != nil {
		t.Fatalf("other guild: %v", err)
	}
}

func TestGate_DMKeyedByChannel(t *testing.T) {
	cfg := defaultCooldowns()
	cfg.DM.Limit = 1
	g := NewGate(NewMemoryStore(), cfg)
	ctx := context.Background()

	if err := g.AdmitLookup(ctx, Subject{UserID: "a", ChannelID: "dm1"}); err != nil {
		t.Fatalf("first dm: %v", err)
	}
	if got := scopeOf(t, g.AdmitLookup(ctx, Subject{UserID: "b", ChannelID: "dm1"})); got != ScopeDM {
		t.Fatalf("blocked by %s; want %s", got, ScopeDM)
	}
	if err := g.AdmitLookup(ctx, Subject{UserID: "b", ChannelID: "dm2"}); err != nil {
		t.Fatalf("other dm channel: %v", err)
	}
}

func TestGate_CommandGuildFallsBackToChannel(t *testing.T) {
	cfg := defaultCooldowns()
	cfg.CommandUser.Limit = 10
	cfg.CommandGuild.Limit = 1
	g := NewGate(NewMemoryStore(), cfg)
	ctx := context.Background()

	if err := g.AdmitCommand(ctx, Subject{UserID: "a", ChannelID: "dm"}); err != nil {
		t.Fatalf("first: %v", err)
	}
	if got := scopeOf(t, g.AdmitCommand(ctx, Subject{UserID: "b", ChannelID: "dm"})); got != ScopeCommandGuild {
		t.Fatalf("blocked by %s; want %s", got, ScopeCommandGuild)
	}
}
