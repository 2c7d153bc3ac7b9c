package bot

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/saucebot/saucebot/internal/render"
)

// maxSelectOptions is Discord's select menu option limit.
const maxSelectOptions = 25

var videoExts = []string{".mp4", ".webm", ".mov"}

// candidate is one lookup-able image found on a message.
type candidate struct {
	URL   string // resolved lookup URL
	Name  string // display file name
	Video bool
}

// attachmentImage resolves the lookup URL for an uploaded file. Videos are
// looked up through a still frame, which only the media proxy can produce.
func attachmentImage(a *discordgo.MessageAttachment) (candidate, bool) {
	if a == nil || a.URL == "" {
		return candidate{}, false
	}
	c := candidate{URL: a.URL, Name: fileName(a.URL)}
	if isVideo(a.URL) {
		c.Video = true
		c.URL = a.ProxyURL + "?format=jpeg"
	}
	return c, true
}

// embedImage resolves the image for a link embed. Embeds without a URL are
// not considered images.
func embedImage(e *discordgo.MessageEmbed) (candidate, bool) {
	if e == nil || e.URL == "" {
		return candidate{}, false
	}
	var u string
	switch {
	case e.Image != nil && e.Image.URL != "":
		u = e.Image.URL
	case e.Thumbnail != nil && e.Thumbnail.URL != "":
		u = e.Thumbnail.URL
	default:
		return candidate{}, false
	}
	return candidate{URL: u, Name: fileName(u), Video: isVideo(u)}, true
}

// imageCandidates lists every image on a message, attachments first.
func imageCandidates(m *discordgo.Message) []candidate {
	if m == nil {
		return nil
	}
	var out []candidate
	for _, a := range m.Attachments {
		if c, ok := attachmentImage(a); ok {
			out = append(out, c)
		}
	}
	for _, e := range m.Embeds {
		if c, ok := embedImage(e); ok {
			out = append(out, c)
		}
	}
	return out
}

func isVideo(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	p = strings.ToLower(p)
	for _, ext := range videoExts {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// fileName returns the unescaped last path element of a URL, without query.
func fileName(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	} else if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	name := path.Base(p)
	if dec, err := url.PathUnescape(name); err == nil {
		name = dec
	}
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// selectMenu builds the image picker. Option values are candidate indexes.
func selectMenu(customID, placeholder string, cands []candidate) discordgo.SelectMenu {
	menu := discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    customID,
		Placeholder: placeholder,
	}
	for n, c := range cands {
		if n == maxSelectOptions {
			break
		}
		kind := "Image"
		if c.Video {
			kind = "Video"
		}
		menu.Options = append(menu.Options, discordgo.SelectMenuOption{
			Label:       kind + " #" + strconv.Itoa(n+1),
			Value:       strconv.Itoa(n),
			Description: render.Truncate(c.Name, 50),
		})
	}
	return menu
}
