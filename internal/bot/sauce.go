package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/saucebot/saucebot/internal/cooldown"
	"github.com/saucebot/saucebot/internal/lang"
	"github.com/saucebot/saucebot/internal/observability"
	"github.com/saucebot/saucebot/internal/render"
	"github.com/saucebot/saucebot/internal/services"
)

// begin defers the reply and applies cooldowns. command selects the stricter
// command-group layer used by the slash subcommands. It reports whether the
// lookup may proceed; when it may not, the reply has already been sent.
func (b *Bot) begin(ctx context.Context, r Responder, i *discordgo.Interaction, command bool) bool {
	if !b.deferReply(r, i, i.GuildID != "") {
		return false
	}

	err := b.Gate.Admit(ctx, subject(i), command)
	if err == nil {
		return true
	}

	var active *cooldown.ActiveError
	if errors.As(err, &active) {
		observability.Cooldowns.WithLabelValues(string(active.Scope)).Inc()
		b.editEmbed(r, i, render.Error(b.t("Errors", "cooldown", lang.Params{"retry": b.naturalDelta(active.RetryAfter)})))
		return false
	}

	// Cooldown storage is down; serve the request rather than lock everyone out.
	log.Error().Err(err).Str("guild_id", i.GuildID).Msg("cooldown check failed")
	return true
}

// naturalDelta renders a wait such as "4 minutes".
func (b *Bot) naturalDelta(d time.Duration) string {
	now := b.now()
	return strings.TrimSpace(humanize.RelTime(now, now.Add(d), "", ""))
}

func (b *Bot) handleSauceSlash(ctx context.Context, r Responder, i *discordgo.Interaction) {
	if !b.begin(ctx, r, i, true) {
		return
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		b.editEmbed(r, i, render.Error(b.t("Sauce", "no_images", nil)))
		return
	}
	sub := data.Options[0]

	var imageURL string
	switch sub.Name {
	case subURL:
		imageURL = strings.TrimSpace(stringOption(sub.Options, optImageURL))
	case subFile:
		id := stringOption(sub.Options, optImage)
		if data.Resolved != nil {
			if c, ok := attachmentImage(data.Resolved.Attachments[id]); ok {
				imageURL = c.URL
			}
		}
	}
	if imageURL == "" {
		b.editEmbed(r, i, render.Error(b.t("Sauce", "no_images", nil)))
		return
	}

	b.runLookup(ctx, r, i, imageURL)
}

func (b *Bot) handleMessageSauce(ctx context.Context, r Responder, i *discordgo.Interaction) {
	if !b.begin(ctx, r, i, false) {
		return
	}

	data := i.ApplicationCommandData()
	var target *discordgo.Message
	if data.Resolved != nil {
		target = data.Resolved.Messages[data.TargetID]
	}
	cands := imageCandidates(target)
	log.Debug().Int("images", len(cands)).Str("message_id", data.TargetID).Str("guild_id", i.GuildID).Msg("found images in message")

	switch len(cands) {
	case 0:
		b.editEmbed(r, i, render.Error(b.t("Sauce", "no_images", nil)))
	case 1:
		b.runLookup(ctx, r, i, cands[0].URL)
	default:
		imageURL, ok := b.promptForImage(ctx, r, i, cands)
		if !ok {
			log.Debug().Str("guild_id", i.GuildID).Msg("no image selected, canceling")
			return
		}
		log.Debug().Str("url", imageURL).Str("guild_id", i.GuildID).Msg("attachment selected")
		b.runLookup(ctx, r, i, imageURL)
	}
}

// promptForImage shows a select menu and waits for the invoker's choice.
// The menu is disabled afterwards either way.
func (b *Bot) promptForImage(ctx context.Context, r Responder, i *discordgo.Interaction, cands []candidate) (string, bool) {
	customID, choice, cancel := b.prompts.open(userID(i))
	defer cancel()

	menu := selectMenu(customID, b.t("Sauce", "multiple_placeholder", nil), cands)
	embeds := []*discordgo.MessageEmbed{render.Message(b.t("Sauce", "multiple_images", nil), render.ColorDefault).ToDiscord()}
	rows := []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}}}
	b.edit(r, i, &discordgo.WebhookEdit{Embeds: &embeds, Components: &rows})

	timer := time.NewTimer(b.SelectTimeout)
	defer timer.Stop()

	var (
		value    string
		selected bool
	)
	select {
	case value = <-choice:
		selected = true
	case <-timer.C:
	case <-ctx.Done():
	}

	menu.Disabled = true
	disabled := []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}}}
	b.edit(r, i, &discordgo.WebhookEdit{Components: &disabled})

	if !selected {
		return "", false
	}
	idx, err := strconv.Atoi(value)
	if err != nil || idx < 0 || idx >= len(cands) {
		log.Warn().Str("value", value).Msg("invalid image selection")
		return "", false
	}
	return cands[idx].URL, true
}

// handleComponent delivers a select menu choice to its waiting prompt.
func (b *Bot) handleComponent(r Responder, i *discordgo.Interaction) {
	data := i.MessageComponentData()
	if !isSelectID(data.CustomID) {
		return
	}
	var value string
	if len(data.Values) > 0 {
		value = data.Values[0]
	}

	switch err := b.prompts.resolve(data.CustomID, userID(i), value); {
	case err == nil, errors.Is(err, errPromptOwner):
		if err := r.InteractionRespond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}); err != nil {
			log.Warn().Err(err).Str("interaction_id", i.ID).Msg("component ack failed")
		}
	default:
		b.respond(r, i, render.Error(b.t("Errors", "interaction_timeout", nil)), true)
	}
}

// runLookup performs the search and edits the deferred reply with the result.
func (b *Bot) runLookup(ctx context.Context, r Responder, i *discordgo.Interaction, imageURL string) {
	log.Info().Str("guild_id", i.GuildID).Str("url", imageURL).Msg("looking up image source")

	outcome, err := b.Search.Lookup(ctx, guildKey(i), imageURL)
	if err != nil {
		b.editEmbed(r, i, render.Error(b.lookupFailure(ctx, i, err)))
		return
	}

	embeds, rows := b.Render.Format(ctx, outcome, imageURL).ToDiscord()
	if rows == nil {
		rows = []discordgo.MessageComponent{}
	}
	b.edit(r, i, &discordgo.WebhookEdit{Embeds: &embeds, Components: &rows})
}

// lookupFailure maps a pipeline error onto its reply text.
func (b *Bot) lookupFailure(ctx context.Context, i *discordgo.Interaction, err error) string {
	switch {
	case errors.Is(err, services.ErrRateLimitedUpstream):
		return b.t("Sauce", "api_limit_exceeded", nil)
	case errors.Is(err, services.ErrInvalidCredential):
		log.Warn().Err(err).Str("guild_id", i.GuildID).Msg("api key was rejected by upstream")
		return b.t("Sauce", "rejected_api_key", nil)
	case errors.Is(err, services.ErrInvalidInput):
		log.Debug().Err(err).Str("guild_id", i.GuildID).Msg("an invalid image or image link was provided")
		return b.t("Sauce", "no_images", nil)
	default:
		log.Error().Err(err).Str("guild_id", i.GuildID).Msg("unexpected error while looking up image")
		b.report(ctx, err, i)
		return b.t("Sauce", "api_offline", nil)
	}
}
