package domain

import "strconv"

// Kind tags the concrete variant of an Outcome. It is also the discriminator
// written by the cache codec.
type Kind string

const (
	KindNotFound Kind = "not_found"
	KindGeneric  Kind = "generic"
	KindVideo    Kind = "video"
	KindManga    Kind = "manga"
	KindBooru    Kind = "booru"
	KindAnime    Kind = "anime"
)

// Outcome is the classified result of one source lookup. The set of
// implementations is closed: NotFound, GenericMatch, VideoMatch, MangaMatch,
// BooruMatch and AnimeMatch. Outcomes are immutable once produced.
type Outcome interface {
	Kind() Kind
	outcome()
}

// Match carries the fields every found result has.
type Match struct {
	Title        string  `json:"title,omitempty"`
	AuthorName   string  `json:"author_name,omitempty"`
	AuthorURL    string  `json:"author_url,omitempty"`
	SourceURL    string  `json:"source_url,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Similarity   float64 `json:"similarity"`
	IndexID      int     `json:"index_id"`
	IndexName    string  `json:"index_name,omitempty"`
}

// Base returns the shared match fields.
func (m Match) Base() Match { return m }

// NotFound is the explicit "nothing matched" outcome. It is cacheable.
type NotFound struct{}

// GenericMatch is a found result with no category-specific metadata.
type GenericMatch struct {
	Match
}

// VideoMatch is a result from a movie or show index.
type VideoMatch struct {
	Match
	Episode   string `json:"episode,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// MangaMatch is a result from a manga index.
type MangaMatch struct {
	Match
	Chapter string `json:"chapter,omitempty"`
}

// BooruMatch is a result from an image board with tag metadata.
type BooruMatch struct {
	Match
	Characters []string `json:"characters,omitempty"`
	Material   []string `json:"material,omitempty"`
}

// AnimeMatch is a result from an anime index. It carries the video fields plus
// the cross-reference ids used for enrichment and link shortcuts. Zero ids are
// absent.
type AnimeMatch struct {
	Match
	Episode   string `json:"episode,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	AniListID int    `json:"anilist_id,omitempty"`
	MalID     int    `json:"mal_id,omitempty"`
	AniDBID   int    `json:"anidb_id,omitempty"`
}

func (NotFound) Kind() Kind     { return KindNotFound }
func (GenericMatch) Kind() Kind { return KindGeneric }
func (VideoMatch) Kind() Kind   { return KindVideo }
func (MangaMatch) Kind() Kind   { return KindManga }
func (BooruMatch) Kind() Kind   { return KindBooru }
func (AnimeMatch) Kind() Kind   { return KindAnime }

func (NotFound) outcome()     {}
func (GenericMatch) outcome() {}
func (VideoMatch) outcome()   {}
func (MangaMatch) outcome()   {}
func (BooruMatch) outcome()   {}
func (AnimeMatch) outcome()   {}

// AniListURL is the canonical AniList page, or "" when the id is unknown.
func (a AnimeMatch) AniListURL() string {
	if a.AniListID == 0 {
		return ""
	}
	return "https://anilist.co/anime/" + strconv.Itoa(a.AniListID)
}

// MalURL is the MyAnimeList page, or "".
func (a AnimeMatch) MalURL() string {
	if a.MalID == 0 {
		return ""
	}
	return "https://myanimelist.net/anime/" + strconv.Itoa(a.MalID)
}

// AniDBURL is the AniDB page, or "".
func (a AnimeMatch) AniDBURL() string {
	if a.AniDBID == 0 {
		return ""
	}
	return "https://anidb.net/anime/" + strconv.Itoa(a.AniDBID)
}

// IsFound reports whether o is a match rather than nil or NotFound.
func IsFound(o Outcome) bool {
	if o == nil {
		return false
	}
	_, nf := o.(NotFound)
	return !nf
}
