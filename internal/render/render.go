// Package render turns search outcomes into reply payloads: one embed plus a
// row of link buttons. The payload types are transport-neutral; ToDiscord
// converts them for discordgo.
package render

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/saucebot/saucebot/internal/anilist"
	"github.com/saucebot/saucebot/internal/domain"
	"github.com/saucebot/saucebot/internal/lang"
)

// Embed colors.
const (
	ColorDefault = 0x3F497F
	ColorSuccess = 0xBFDB38
	ColorError   = 0xD61355
	ColorDanger  = 0xF94A29
	ColorWarning = 0xFCE22A
)

// FooterIcon is shown next to the match footer.
const FooterIcon = "https://raw.githubusercontent.com/rainyDayDevs/discord-saucebot/master/assets/footer_icon.png"

// Field is one embed field.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Link is a labelled URL button.
type Link struct {
	Label string
	URL   string
}

// Embed is a transport-neutral rich message.
type Embed struct {
	Title       string
	URL         string
	Description string
	Color       int
	AuthorName  string
	AuthorURL   string
	ImageURL    string
	FooterText  string
	FooterIcon  string
	Fields      []Field
}

// Response is what the bot sends back for one lookup.
type Response struct {
	Embed Embed
	Links []Link
}

// MediaFetcher loads anime metadata. *anilist.Client satisfies it.
type MediaFetcher interface {
	FetchByID(ctx context.Context, id int) (*anilist.Media, error)
	FetchByMalID(ctx context.Context, malID int) (*anilist.Media, error)
}

// Renderer formats outcomes using one language table.
type Renderer struct {
	Lang  *lang.Translator
	Media MediaFetcher // optional; nil skips anime enrichment
	title cases.Caser
}

// New returns a Renderer. media may be nil.
func New(tr *lang.Translator, media MediaFetcher) *Renderer {
	return &Renderer{Lang: tr, Media: media, title: cases.Title(language.English)}
}

func (r *Renderer) t(category, key string, params lang.Params) string {
	return r.Lang.T(category, key, params)
}

// Message returns a plain description-only embed.
func Message(text string, color int) Embed {
	return Embed{Description: text, Color: color}
}

// Error returns an error-colored message embed.
func Error(text string) Embed { return Message(text, ColorError) }

// Success returns a success-colored message embed.
func Success(text string) Embed { return Message(text, ColorSuccess) }

// Format builds the reply for o. A nil or NotFound outcome produces the
// "not found" embed with fallback search links for originalURL.
func (r *Renderer) Format(ctx context.Context, o domain.Outcome, originalURL string) Response {
	if !domain.IsFound(o) {
		e := Error(r.t("Sauce", "not_found_advice", nil))
		e.Title = r.t("Sauce", "not_found", nil)
		return Response{Embed: e, Links: r.FallbackLinks(originalURL)}
	}

	m := o.(interface{ Base() domain.Match }).Base()
	e := Embed{
		Title:      firstNonEmpty(m.Title, m.AuthorName, "Untitled"),
		URL:        m.SourceURL,
		Color:      ColorDefault,
		ImageURL:   m.ThumbnailURL,
		FooterText: r.t("Sauce", "match_title", lang.Params{"index": m.IndexName, "similarity": strconv.FormatFloat(m.Similarity, 'f', -1, 64)}),
		FooterIcon: FooterIcon,
	}
	if m.AuthorName != "" && m.Title != "" {
		e.AuthorName, e.AuthorURL = m.AuthorName, m.AuthorURL
	}

	switch v := o.(type) {
	case domain.VideoMatch:
		r.episodeFields(&e, v.Episode, v.Timestamp)
	case domain.AnimeMatch:
		r.episodeFields(&e, v.Episode, v.Timestamp)
		r.enrichAnime(ctx, &e, v)
	case domain.MangaMatch:
		if v.Chapter != "" {
			e.Fields = append(e.Fields, Field{Name: r.t("Sauce", "chapter", nil), Value: Codewrap(v.Chapter)})
		}
	case domain.BooruMatch:
		if len(v.Characters) > 0 {
			e.Fields = append(e.Fields, Field{Name: r.t("Sauce", "characters", nil), Value: Codewrap(r.tagList(v.Characters))})
		}
		if len(v.Material) > 0 {
			e.Fields = append(e.Fields, Field{Name: r.t("Sauce", "material", nil), Value: Codewrap(r.tagList(v.Material))})
		}
	case domain.GenericMatch:
		// title, footer and source link only
	}

	return Response{Embed: e, Links: r.Links(o)}
}

func (r *Renderer) episodeFields(e *Embed, episode, timestamp string) {
	if episode != "" {
		e.Fields = append(e.Fields, Field{Name: r.t("Sauce", "episode", nil), Value: Codewrap(episode)})
	}
	if timestamp != "" {
		e.Fields = append(e.Fields, Field{Name: r.t("Sauce", "timestamp", nil), Value: Codewrap(timestamp)})
	}
}

func (r *Renderer) tagList(tags []string) string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = r.title.String(t)
	}
	return strings.Join(out, ", ")
}

// enrichAnime adds AniList details. Lookup failures leave the embed as-is.
func (r *Renderer) enrichAnime(ctx context.Context, e *Embed, a domain.AnimeMatch) {
	if u := a.AniListURL(); u != "" {
		e.URL = u
	}
	if r.Media == nil || (a.AniListID == 0 && a.MalID == 0) {
		return
	}

	ctx, span := otel.Tracer("render").Start(ctx, "Renderer.enrichAnime")
	defer span.End()
	span.SetAttributes(attribute.Int("anilist.id", a.AniListID), attribute.Int("mal.id", a.MalID))

	var (
		media *anilist.Media
		err   error
	)
	if a.AniListID != 0 {
		media, err = r.Media.FetchByID(ctx, a.AniListID)
	} else {
		media, err = r.Media.FetchByMalID(ctx, a.MalID)
	}
	if err != nil {
		if !errors.Is(err, anilist.ErrNotFound) {
			span.RecordError(err)
			log.Warn().Err(err).Int("anilist_id", a.AniListID).Int("mal_id", a.MalID).Msg("anime metadata lookup failed")
		}
		return
	}

	if a.AniListID == 0 && media.SiteURL != "" {
		e.URL = media.SiteURL
	}
	if media.CoverImage.ExtraLarge != "" {
		e.ImageURL = media.CoverImage.ExtraLarge
	}
	e.Description = CleanDescription(media.Description)

	if len(media.Genres) > 0 {
		e.Fields = append(e.Fields, Field{Name: r.t("Sauce", "genres", nil), Value: Codewrap(strings.Join(media.Genres, ", "))})
	}
	if start, ok := media.StartDate.Time(); ok {
		season := r.t("Sauce", "season_"+Season(start), nil)
		e.Fields = append(e.Fields, Field{Name: r.t("Sauce", "aired", nil), Value: Codewrap(season + " " + strconv.Itoa(start.Year()))})
	}
	if len(media.Rankings) > 0 {
		e.Fields = append(e.Fields, Field{Name: r.t("Sauce", "rankings", nil), Value: Codewrap(strconv.Itoa(media.Rankings[0].Rank)), Inline: true})
	}
	if media.AverageScore > 0 {
		e.Fields = append(e.Fields, Field{Name: r.t("Sauce", "rating", nil), Value: Codewrap(strconv.Itoa(media.AverageScore) + "%"), Inline: true})
	}
}

// FallbackLinks returns the three reverse-image-search shortcuts for a URL.
func (r *Renderer) FallbackLinks(originalURL string) []Link {
	q := url.QueryEscape(originalURL)
	return []Link{
		{Label: r.t("Sauce", "google", nil), URL: "https://lens.google.com/uploadbyurl?url=" + q + "&safe=off"},
		{Label: r.t("Sauce", "ascii2d", nil), URL: "https://ascii2d.net/search/url/" + q},
		{Label: r.t("Sauce", "yandex", nil), URL: "https://yandex.com/images/search?url=" + q + "&rpt=imageview"},
	}
}

// Links returns the buttons for a found outcome: catalog links for anime,
// a single source link otherwise.
func (r *Renderer) Links(o domain.Outcome) []Link {
	switch v := o.(type) {
	case domain.AnimeMatch:
		var out []Link
		for _, l := range []Link{
			{Label: r.t("Sauce", "anilist", nil), URL: v.AniListURL()},
			{Label: r.t("Sauce", "mal", nil), URL: v.MalURL()},
			{Label: r.t("Sauce", "anidb", nil), URL: v.AniDBURL()},
		} {
			if l.URL != "" {
				out = append(out, l)
			}
		}
		return out
	case nil, domain.NotFound:
		return nil
	default:
		b, ok := o.(interface{ Base() domain.Match })
		if !ok || b.Base().SourceURL == "" {
			return nil
		}
		m := b.Base()
		return []Link{{Label: firstNonEmpty(m.IndexName, "Unknown Source"), URL: m.SourceURL}}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
