package saucenao

import (
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// AccountFree is the account_type reported for free, IP-bound keys.
const AccountFree = 1

// flexInt decodes a JSON number or a numeric string. Upstream is
// inconsistent about which one it sends.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(i)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}

// flexFloat decodes a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexString decodes a JSON string or number as text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := sonic.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// flexStrings decodes either a single string or an array of strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = nil
		return nil
	}
	if len(b) > 0 && b[0] == '[' {
		var out []string
		if err := sonic.Unmarshal(b, &out); err != nil {
			return err
		}
		*f = out
		return nil
	}
	var s string
	if err := sonic.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*f = nil
		return nil
	}
	*f = flexStrings{s}
	return nil
}

type responseHeader struct {
	UserID         flexString `json:"user_id"`
	AccountType    flexInt    `json:"account_type"`
	ShortLimit     flexInt    `json:"short_limit"`
	LongLimit      flexInt    `json:"long_limit"`
	ShortRemaining flexInt    `json:"short_remaining"`
	LongRemaining  flexInt    `json:"long_remaining"`
	Status         flexInt    `json:"status"`
	Message        string     `json:"message"`
}

type response struct {
	Header  responseHeader `json:"header"`
	Results []Result       `json:"results"`
}

// ResultHeader is the per-result header returned upstream.
type ResultHeader struct {
	Similarity flexFloat `json:"similarity"`
	Thumbnail  string    `json:"thumbnail"`
	IndexID    int       `json:"index_id"`
	IndexName  string    `json:"index_name"`
}

// ResultData is the union of per-index data fields used by classification.
type ResultData struct {
	ExtURLs           []string    `json:"ext_urls"`
	Title             string      `json:"title"`
	Source            string      `json:"source"`
	EngName           string      `json:"eng_name"`
	JpName            string      `json:"jp_name"`
	Author            string      `json:"author"`
	AuthorName        string      `json:"author_name"`
	AuthorURL         string      `json:"author_url"`
	MemberName        string      `json:"member_name"`
	MemberID          flexInt     `json:"member_id"`
	Creator           flexStrings `json:"creator"`
	Characters        string      `json:"characters"`
	Material          string      `json:"material"`
	Part              flexString  `json:"part"`
	EstTime           string      `json:"est_time"`
	Year              flexString  `json:"year"`
	AniDBAid          flexInt     `json:"anidb_aid"`
	MalID             flexInt     `json:"mal_id"`
	AniListID         flexInt     `json:"anilist_id"`
	TwitterUserHandle string      `json:"twitter_user_handle"`
}

// Result is one raw upstream match.
type Result struct {
	Header ResultHeader `json:"header"`
	Data   ResultData   `json:"data"`
}

// Similarity returns the match similarity percentage.
func (r Result) Similarity() float64 { return float64(r.Header.Similarity) }

// AccountInfo describes an API key as reported upstream.
type AccountInfo struct {
	UserID      string
	AccountType int
	ShortLimit  int
	LongLimit   int
}

// Free reports whether the key is a free, IP-bound account.
func (a AccountInfo) Free() bool { return a.AccountType == AccountFree }
