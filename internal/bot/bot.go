// Package bot is the Discord command surface. Route dispatches one
// interaction, whether it arrived over the gateway or the HTTP interactions
// endpoint, and guarantees the caller gets exactly one reply for it.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/saucebot/saucebot/internal/cooldown"
	"github.com/saucebot/saucebot/internal/domain"
	"github.com/saucebot/saucebot/internal/lang"
	"github.com/saucebot/saucebot/internal/render"
)

// interactionLifetime bounds work on one interaction; Discord invalidates the
// token after 15 minutes.
const interactionLifetime = 14 * time.Minute

// Responder sends interaction replies. *discordgo.Session satisfies it.
type Responder interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Lookuper runs the search pipeline. *services.SearchService satisfies it.
type Lookuper interface {
	Lookup(ctx context.Context, guildID int64, imageURL string) (domain.Outcome, error)
}

// Settings manages guild settings. *services.GuildService satisfies it.
type Settings interface {
	RegisterAPIKey(ctx context.Context, guildID int64, key string) error
	TotalQueryCount(ctx context.Context) (int64, error)
}

// Admitter applies cooldowns. *cooldown.Gate satisfies it.
type Admitter interface {
	Admit(ctx context.Context, s cooldown.Subject, command bool) error
}

// Reporter forwards unexpected failures to error tracking.
type Reporter interface {
	Capture(ctx context.Context, err error, tags map[string]string)
}

// Bot holds the collaborators every command needs.
type Bot struct {
	Search   Lookuper
	Settings Settings
	Gate     Admitter
	Render   *render.Renderer
	Lang     *lang.Translator
	Reporter Reporter // optional

	// SelectTimeout bounds the multiple-image prompt.
	SelectTimeout time.Duration

	prompts *prompts
	now     func() time.Time
}

// New wires a Bot.
func New(search Lookuper, settings Settings, gate Admitter, r *render.Renderer, tr *lang.Translator, selectTimeout time.Duration) *Bot {
	return &Bot{
		Search:        search,
		Settings:      settings,
		Gate:          gate,
		Render:        r,
		Lang:          tr,
		SelectTimeout: selectTimeout,
		prompts:       newPrompts(),
		now:           time.Now,
	}
}

// Route handles one interaction to completion. It blocks while a lookup or
// selection prompt is in flight, so transports call it on its own goroutine.
func (b *Bot) Route(ctx context.Context, r Responder, i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(ctx, interactionLifetime)
	defer cancel()

	rt := &replyTracker{Responder: r}
	r = rt
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("interaction_id", i.ID).Msg("interaction handler panicked")
			b.report(ctx, fmt.Errorf("panic: %v", rec), i)
			b.replyUnexpected(rt, i)
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.routeCommand(ctx, r, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(r, i)
	default:
		log.Debug().Int("type", int(i.Type)).Msg("ignoring interaction")
	}
}

// replyTracker remembers whether the initial interaction response went out,
// so a recovered panic knows whether to reply or to edit.
type replyTracker struct {
	Responder
	mu       sync.Mutex
	answered bool
}

func (t *replyTracker) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error {
	err := t.Responder.InteractionRespond(i, resp, opts...)
	if err == nil {
		t.mu.Lock()
		t.answered = true
		t.mu.Unlock()
	}
	return err
}

func (t *replyTracker) wasAnswered() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.answered
}

// replyUnexpected closes an interaction whose handler failed unexpectedly
// with the generic apology.
func (b *Bot) replyUnexpected(rt *replyTracker, i *discordgo.Interaction) {
	e := render.Error(b.t("Sauce", "api_offline", nil))
	if rt.wasAnswered() {
		b.editEmbed(rt.Responder, i, e)
		return
	}
	b.respond(rt.Responder, i, e, true)
}

func (b *Bot) routeCommand(ctx context.Context, r Responder, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	switch {
	case data.CommandType == discordgo.MessageApplicationCommand && data.Name == CommandSauceMessage:
		b.handleMessageSauce(ctx, r, i)
	case data.Name == CommandSauce:
		b.handleSauceSlash(ctx, r, i)
	case data.Name == CommandConfig:
		b.handleConfig(ctx, r, i)
	case data.Name == CommandHelp:
		b.handleHelp(ctx, r, i)
	default:
		log.Warn().Str("command", data.Name).Msg("unknown command")
	}
}

func (b *Bot) t(category, key string, params lang.Params) string {
	return b.Lang.T(category, key, params)
}

// subject extracts the cooldown identity of the invoker.
func subject(i *discordgo.Interaction) cooldown.Subject {
	return cooldown.Subject{UserID: userID(i), GuildID: i.GuildID, ChannelID: i.ChannelID}
}

func userID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// guildKey maps an interaction onto the store's guild id.
func guildKey(i *discordgo.Interaction) int64 {
	if i.GuildID == "" {
		return domain.DMGuildID
	}
	id, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		return domain.DMGuildID
	}
	return id
}

// respond sends an immediate reply carrying a single embed.
func (b *Bot) respond(r Responder, i *discordgo.Interaction, e render.Embed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{e.ToDiscord()}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Warn().Err(err).Str("interaction_id", i.ID).Msg("interaction reply failed")
	}
}

// deferReply acknowledges an interaction so the reply can follow later.
func (b *Bot) deferReply(r Responder, i *discordgo.Interaction, ephemeral bool) bool {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := r.InteractionRespond(i, resp); err != nil {
		log.Warn().Err(err).Str("interaction_id", i.ID).Msg("interaction defer failed")
		return false
	}
	return true
}

// editEmbed replaces the deferred reply with e and clears any components.
func (b *Bot) editEmbed(r Responder, i *discordgo.Interaction, e render.Embed) {
	embeds := []*discordgo.MessageEmbed{e.ToDiscord()}
	rows := []discordgo.MessageComponent{}
	b.edit(r, i, &discordgo.WebhookEdit{Embeds: &embeds, Components: &rows})
}

func (b *Bot) edit(r Responder, i *discordgo.Interaction, e *discordgo.WebhookEdit) {
	if _, err := r.InteractionResponseEdit(i, e); err != nil {
		log.Warn().Err(err).Str("interaction_id", i.ID).Msg("interaction edit failed")
	}
}

func (b *Bot) report(ctx context.Context, err error, i *discordgo.Interaction) {
	if b.Reporter == nil {
		return
	}
	b.Reporter.Capture(ctx, err, map[string]string{
		"guild_id":   i.GuildID,
		"channel_id": i.ChannelID,
		"user_id":    userID(i),
	})
}
