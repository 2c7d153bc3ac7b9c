package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Command and option names.
const (
	CommandSauce        = "sauce"
	CommandSauceMessage = "sauce"
	CommandConfig       = "config"
	CommandHelp         = "help"

	subURL    = "url"
	subFile   = "file"
	subAPIKey = "api_key"

	optImageURL = "image_url"
	optImage    = "image"
	optAPIKey   = "api_key"
)

// Commands returns the application command set.
func Commands() []*discordgo.ApplicationCommand {
	admin := int64(discordgo.PermissionAdministrator)
	noDM := false

	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandSauce,
			Description: "Look up the source of an image using a specified URL or file upload",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subURL,
					Description: "Look up the source of an image using a specified URL",
					Options: []*discordgo.ApplicationCommandOption{{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        optImageURL,
						Description: "The URL of the image you wish to find the source of",
						Required:    true,
					}},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subFile,
					Description: "Look up the source of an uploaded image",
					Options: []*discordgo.ApplicationCommandOption{{
						Type:        discordgo.ApplicationCommandOptionAttachment,
						Name:        optImage,
						Description: "The image you wish to find the source of",
						Required:    true,
					}},
				},
			},
		},
		{
			Type: discordgo.MessageApplicationCommand,
			Name: CommandSauceMessage,
		},
		{
			Name:                     CommandConfig,
			Description:              "Configure guild specific settings",
			DefaultMemberPermissions: &admin,
			DMPermission:             &noDM,
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        subAPIKey,
				Description: "Provide a SauceNAO API key for this guild to increase search limits",
				Options: []*discordgo.ApplicationCommandOption{{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optAPIKey,
					Description: "Your SauceNAO API key",
					Required:    true,
				}},
			}},
		},
		{
			Name:        CommandHelp,
			Description: "Information about SauceBot",
		},
	}
}

// CommandRegistrar is the session subset used to publish commands.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// RegisterCommands replaces the published command set. An empty guildID
// publishes globally; a guild id publishes to that guild only, which is
// what development mode uses since guild commands update instantly.
func RegisterCommands(s CommandRegistrar, appID, guildID string) error {
	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, Commands()); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

// option finds a named option.
func option(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range opts {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func stringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	o := option(opts, name)
	if o == nil {
		return ""
	}
	s, _ := o.Value.(string)
	return s
}
