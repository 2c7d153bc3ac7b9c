// Package saucenao is a client for the SauceNAO reverse image search API.
//
// Search returns the ranked raw matches for an image URL; Classify maps a raw
// match onto one of the closed domain.Outcome variants. Every failure is an
// *APIError whose Kind distinguishes quota exhaustion, rejected keys, unusable
// images, and everything else.
package saucenao

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// DefaultPriorityTolerance is how far (in similarity points) a preferred
// index may trail the best match and still be ranked first.
const DefaultPriorityTolerance = 10.0

// testImageURL is searched in test mode to introspect an API key.
const testImageURL = "https://saucenao.com/images/static/banner.gif"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

var jsonAPI = sonic.ConfigDefault

// Client calls the upstream search API. The zero value is not usable; build
// one with New.
type Client struct {
	baseURL           string
	http              *http.Client
	minSimilarity     float64
	priority          []int
	priorityTolerance float64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPriorityTolerance overrides DefaultPriorityTolerance.
func WithPriorityTolerance(t float64) Option {
	return func(c *Client) { c.priorityTolerance = t }
}

// New returns a client. A zero timeout keeps the transport default.
func New(baseURL string, timeout time.Duration, minSimilarity float64, priority []int, opts ...Option) *Client {
	c := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		http:              &http.Client{Timeout: timeout},
		minSimilarity:     minSimilarity,
		priority:          append([]int(nil), priority...),
		priorityTolerance: DefaultPriorityTolerance,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search looks up imageURL with apiKey and returns matches at or above the
// similarity floor, best first, with the priority ordering applied.
func (c *Client) Search(ctx context.Context, imageURL, apiKey string) ([]Result, error) {
	q := url.Values{}
	q.Set("output_type", "2")
	q.Set("api_key", apiKey)
	q.Set("url", imageURL)
	q.Set("minsim", strconv.FormatFloat(c.minSimilarity, 'f', -1, 64))

	resp, err := c.do(ctx, q)
	if err != nil {
		return nil, err
	}
	return rank(resp.Results, c.minSimilarity, c.priority, c.priorityTolerance), nil
}

// TestKey introspects apiKey with a test-mode search.
func (c *Client) TestKey(ctx context.Context, apiKey string) (AccountInfo, error) {
	q := url.Values{}
	q.Set("output_type", "2")
	q.Set("api_key", apiKey)
	q.Set("testmode", "1")
	q.Set("url", testImageURL)

	resp, err := c.do(ctx, q)
	if err != nil {
		return AccountInfo{}, err
	}
	h := resp.Header
	return AccountInfo{
		UserID:      string(h.UserID),
		AccountType: int(h.AccountType),
		ShortLimit:  int(h.ShortLimit),
		LongLimit:   int(h.LongLimit),
	}, nil
}

func (c *Client) do(ctx context.Context, q url.Values) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.php?"+q.Encode(), nil)
	if err != nil {
		return nil, &APIError{Kind: KindOther, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindOther, Err: fmt.Errorf("execute http request: %w", err)}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, &APIError{Kind: KindOther, StatusCode: res.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	var parsed response
	decodeErr := jsonAPI.Unmarshal(body, &parsed)

	if res.StatusCode != http.StatusOK {
		return nil, statusError(res.StatusCode, parsed.Header)
	}
	if decodeErr != nil {
		return nil, &APIError{Kind: KindOther, StatusCode: res.StatusCode, Err: fmt.Errorf("decode body: %w", decodeErr)}
	}
	if st := int(parsed.Header.Status); st != 0 {
		return nil, bodyStatusError(st, parsed.Header.Message)
	}
	return &parsed, nil
}

func statusError(code int, h responseHeader) error {
	e := &APIError{Kind: KindOther, StatusCode: code, Status: int(h.Status), Message: h.Message}
	switch code {
	case http.StatusTooManyRequests:
		if strings.Contains(strings.ToLower(h.Message), "daily") {
			e.Kind = KindDailyLimit
		} else {
			e.Kind = KindShortLimit
		}
	case http.StatusForbidden:
		e.Kind = KindInvalidKey
	case http.StatusRequestEntityTooLarge:
		e.Kind = KindInvalidImage
	}
	return e
}

// imageProblems are fragments of client-side status messages that mean the
// submitted URL is not a usable image.
var imageProblems = []string{
	"not usable",
	"problem downloading",
	"does not seem to be an image",
	"image dimensions",
	"too small",
	"file too large",
}

func bodyStatusError(status int, message string) error {
	e := &APIError{Kind: KindOther, StatusCode: http.StatusOK, Status: status, Message: message}
	if status < 0 {
		lower := strings.ToLower(message)
		for _, p := range imageProblems {
			if strings.Contains(lower, p) {
				e.Kind = KindInvalidImage
				break
			}
		}
	}
	return e
}

// IsTimeout reports whether err came from a deadline or client timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
