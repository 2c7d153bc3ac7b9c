package bot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/saucebot/saucebot/internal/render"
	"github.com/saucebot/saucebot/internal/services"
)

// PatreonURL links the help embed title.
const PatreonURL = "https://www.patreon.com/saucebot"

// handleConfig serves "config api_key". It is restricted to guild
// administrators; those checks reply immediately without a network call.
func (b *Bot) handleConfig(ctx context.Context, r Responder, i *discordgo.Interaction) {
	if i.GuildID == "" || i.Member == nil {
		b.respond(r, i, render.Error(b.t("Errors", "guild_only", nil)), true)
		return
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		b.respond(r, i, render.Error(b.t("Errors", "missing_permissions", nil)), true)
		return
	}

	var key string
	if data := i.ApplicationCommandData(); len(data.Options) > 0 && data.Options[0].Name == subAPIKey {
		key = stringOption(data.Options[0].Options, optAPIKey)
	}

	if !b.deferReply(r, i, true) {
		return
	}

	err := b.Settings.RegisterAPIKey(ctx, guildKey(i), key)
	switch {
	case err == nil:
		log.Info().Str("guild_id", i.GuildID).Msg("registered guild api key")
		b.editEmbed(r, i, render.Success(b.t("Sauce", "registered_api_key", nil)))
	case errors.Is(err, services.ErrInvalidKeyFormat):
		b.editEmbed(r, i, render.Error(b.t("Sauce", "bad_api_key", nil)))
	case errors.Is(err, services.ErrKeyRejected):
		b.editEmbed(r, i, render.Error(b.t("Sauce", "rejected_api_key", nil)))
	case errors.Is(err, services.ErrKeyIneligible):
		b.editEmbed(r, i, render.Error(b.t("Sauce", "api_free", nil)))
	default:
		log.Error().Err(err).Str("guild_id", i.GuildID).Msg("api key registration failed")
		b.report(ctx, err, i)
		b.editEmbed(r, i, render.Error(b.t("Sauce", "api_offline", nil)))
	}
}

// handleHelp replies with bot info and the global query counter.
func (b *Bot) handleHelp(ctx context.Context, r Responder, i *discordgo.Interaction) {
	e := render.Embed{
		Title:       b.t("Misc", "info_title", nil),
		URL:         PatreonURL,
		Description: b.t("Misc", "info_desc", nil),
		Color:       render.ColorDefault,
	}
	count, err := b.Settings.TotalQueryCount(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("total query count unavailable")
	} else {
		e.Fields = append(e.Fields, render.Field{
			Name:  b.t("Misc", "queries_processed", nil),
			Value: render.Codewrap(humanize.Comma(count)),
		})
	}
	b.respond(r, i, e, false)
}
