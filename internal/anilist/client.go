// Package anilist fetches anime metadata from the AniList GraphQL API. It is
// only used to enrich anime matches with a description, genres, air date,
// score, ranking and cover art.
package anilist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// ErrNotFound is returned when no media exists for the requested id.
var ErrNotFound = errors.New("anilist: media not found")

const mediaQuery = `query ($id: Int, $idMal: Int) {
  Media(id: $id, idMal: $idMal, type: ANIME) {
    id
    idMal
    siteUrl
    description
    genres
    averageScore
    startDate { year month day }
    rankings { rank type allTime context }
    coverImage { extraLarge large }
  }
}`

// FuzzyDate is a possibly partial date; zero fields are unknown.
type FuzzyDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Time returns the date, or false when year, month or day is unknown.
func (d *FuzzyDate) Time() (time.Time, bool) {
	if d == nil || d.Year == 0 || d.Month == 0 || d.Day == 0 {
		return time.Time{}, false
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC), true
}

// Ranking is one AniList ranking entry.
type Ranking struct {
	Rank    int    `json:"rank"`
	Type    string `json:"type"`
	AllTime bool   `json:"allTime"`
	Context string `json:"context"`
}

// CoverImage holds cover art URLs.
type CoverImage struct {
	ExtraLarge string `json:"extraLarge"`
	Large      string `json:"large"`
}

// Media is the subset of AniList media fields the bot renders.
type Media struct {
	ID           int        `json:"id"`
	IDMal        int        `json:"idMal"`
	SiteURL      string     `json:"siteUrl"`
	Description  string     `json:"description"`
	Genres       []string   `json:"genres"`
	AverageScore int        `json:"averageScore"`
	StartDate    *FuzzyDate `json:"startDate"`
	Rankings     []Ranking  `json:"rankings"`
	CoverImage   CoverImage `json:"coverImage"`
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]int `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type gqlResponse struct {
	Data struct {
		Media *Media `json:"Media"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

// Client talks to the GraphQL endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New returns a client for endpoint. A zero timeout keeps the transport default.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{endpoint: strings.TrimRight(endpoint, "/"), http: &http.Client{Timeout: timeout}}
}

// FetchByID loads media by AniList id.
func (c *Client) FetchByID(ctx context.Context, id int) (*Media, error) {
	return c.fetch(ctx, map[string]int{"id": id})
}

// FetchByMalID loads media by MyAnimeList id.
func (c *Client) FetchByMalID(ctx context.Context, malID int) (*Media, error) {
	return c.fetch(ctx, map[string]int{"idMal": malID})
}

func (c *Client) fetch(ctx context.Context, vars map[string]int) (*Media, error) {
	payload, err := sonic.Marshal(gqlRequest{Query: mediaQuery, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("anilist: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("anilist: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anilist: execute http request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("anilist: read body: %w", err)
	}

	var out gqlResponse
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("anilist: decode body (http %d): %w", res.StatusCode, err)
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	for _, e := range out.Errors {
		if e.Status == http.StatusNotFound {
			return nil, ErrNotFound
		}
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("anilist: http %d: %s", res.StatusCode, out.Errors[0].Message)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anilist: unexpected http status %d", res.StatusCode)
	}
	if out.Data.Media == nil {
		return nil, ErrNotFound
	}
	return out.Data.Media, nil
}
