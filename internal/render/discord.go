package render

import "github.com/bwmarrin/discordgo"

// maxButtonsPerRow is Discord's action row limit.
const maxButtonsPerRow = 5

// ToDiscord converts an embed into discordgo's representation.
func (e Embed) ToDiscord() *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		URL:         e.URL,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.AuthorName != "" {
		out.Author = &discordgo.MessageEmbedAuthor{Name: e.AuthorName, URL: e.AuthorURL}
	}
	if e.ImageURL != "" {
		out.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
	}
	if e.FooterText != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.FooterText, IconURL: e.FooterIcon}
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return out
}

// LinkRows lays links out as link-button action rows.
func LinkRows(links []Link) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var row discordgo.ActionsRow
	for _, l := range links {
		row.Components = append(row.Components, discordgo.Button{
			Label: l.Label,
			Style: discordgo.LinkButton,
			URL:   l.URL,
		})
		if len(row.Components) == maxButtonsPerRow {
			rows = append(rows, row)
			row = discordgo.ActionsRow{}
		}
	}
	if len(row.Components) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// ToDiscord returns the embed and button rows for a response.
func (r Response) ToDiscord() ([]*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	return []*discordgo.MessageEmbed{r.Embed.ToDiscord()}, LinkRows(r.Links)
}
