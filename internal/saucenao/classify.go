package saucenao

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/saucebot/saucebot/internal/domain"
)

// Index ids that drive classification.
const (
	IndexPixiv           = 5
	IndexPixivHistorical = 6
	IndexDanbooru        = 9
	IndexYandere         = 12
	IndexAnime           = 21
	IndexHAnime          = 22
	IndexMovies          = 23
	IndexShows           = 24
	IndexGelbooru        = 25
	IndexKonachan        = 26
	IndexSankaku         = 27
	IndexAnimePictures   = 28
	IndexE621            = 29
	IndexIdolComplex     = 30
	IndexDeviantArt      = 34
	IndexMadokami        = 36
	IndexMangaDex        = 37
	IndexTwitter         = 41
	IndexMangaDexV2      = 371
)

var indexNames = map[int]string{
	IndexPixiv:           "Pixiv",
	IndexPixivHistorical: "Pixiv",
	IndexDanbooru:        "Danbooru",
	IndexYandere:         "Yande.re",
	IndexAnime:           "AniDB",
	IndexHAnime:          "H-Anime",
	IndexMovies:          "IMDb",
	IndexShows:           "IMDb",
	IndexGelbooru:        "Gelbooru",
	IndexKonachan:        "Konachan",
	IndexSankaku:         "Sankaku Channel",
	IndexAnimePictures:   "Anime-Pictures",
	IndexE621:            "e621",
	IndexIdolComplex:     "Idol Complex",
	IndexDeviantArt:      "DeviantArt",
	IndexMadokami:        "Madokami",
	IndexMangaDex:        "MangaDex",
	IndexTwitter:         "Twitter",
	IndexMangaDexV2:      "MangaDex",
}

// indexNameRe pulls the display name out of "Index #5: Pixiv Images - 123.jpg".
var indexNameRe = regexp.MustCompile(`^Index #\d+:\s*(.+?)(?:\s+-\s+.*)?$`)

// IndexName returns a human-readable name for a result's index.
func IndexName(id int, raw string) string {
	if n, ok := indexNames[id]; ok {
		return n
	}
	if m := indexNameRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

// Classify maps a raw result onto a domain.Outcome variant. A nil result
// classifies as NotFound.
func Classify(r *Result) domain.Outcome {
	if r == nil {
		return domain.NotFound{}
	}
	d := r.Data
	m := domain.Match{
		Title:        firstNonEmpty(d.Title, d.Source, d.EngName, d.JpName),
		AuthorName:   firstNonEmpty(d.MemberName, d.AuthorName, d.Author, strings.Join(d.Creator, ", "), d.TwitterUserHandle),
		AuthorURL:    authorURL(r),
		SourceURL:    sourceURL(d),
		ThumbnailURL: r.Header.Thumbnail,
		Similarity:   r.Similarity(),
		IndexID:      r.Header.IndexID,
		IndexName:    IndexName(r.Header.IndexID, r.Header.IndexName),
	}

	switch r.Header.IndexID {
	case IndexAnime, IndexHAnime:
		m.Title = firstNonEmpty(d.Source, d.Title, d.EngName, d.JpName)
		return domain.AnimeMatch{
			Match:     m,
			Episode:   string(d.Part),
			Timestamp: d.EstTime,
			AniDBID:   int(d.AniDBAid),
			MalID:     int(d.MalID),
			AniListID: int(d.AniListID),
		}
	case IndexMovies, IndexShows:
		m.Title = firstNonEmpty(d.Source, d.Title)
		return domain.VideoMatch{Match: m, Episode: string(d.Part), Timestamp: d.EstTime}
	case IndexMadokami, IndexMangaDex, IndexMangaDexV2:
		m.Title = firstNonEmpty(d.Source, d.Title)
		return domain.MangaMatch{Match: m, Chapter: chapter(string(d.Part))}
	case IndexDanbooru, IndexYandere, IndexGelbooru, IndexKonachan, IndexSankaku,
		IndexAnimePictures, IndexE621, IndexIdolComplex:
		// Booru "source" is usually the original post URL, not a title.
		if isURL(m.Title) {
			m.Title = d.Title
		}
		return domain.BooruMatch{
			Match:      m,
			Characters: splitTags(d.Characters),
			Material:   splitTags(d.Material),
		}
	default:
		return domain.GenericMatch{Match: m}
	}
}

func authorURL(r *Result) string {
	d := r.Data
	if d.AuthorURL != "" {
		return d.AuthorURL
	}
	switch r.Header.IndexID {
	case IndexPixiv, IndexPixivHistorical:
		if d.MemberID > 0 {
			return "https://www.pixiv.net/users/" + strconv.FormatInt(int64(d.MemberID), 10)
		}
	case IndexTwitter:
		if d.TwitterUserHandle != "" {
			return "https://twitter.com/" + d.TwitterUserHandle
		}
	}
	return ""
}

func sourceURL(d ResultData) string {
	if len(d.ExtURLs) > 0 {
		return d.ExtURLs[0]
	}
	if isURL(d.Source) {
		return d.Source
	}
	return ""
}

// chapter trims the " - Chapter 12" style prefix upstream uses for manga parts.
func chapter(part string) string {
	part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "-"))
	return strings.TrimSpace(strings.TrimPrefix(part, "Chapter"))
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
