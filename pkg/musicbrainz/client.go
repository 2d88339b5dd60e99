// Package musicbrainz resolves ISRCs from artist, title and duration using
// the MusicBrainz recording search.
package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the MusicBrainz web service root.
	DefaultBaseURL = "https://musicbrainz.org/ws/2"

	// DefaultUserAgent identifies the application as MusicBrainz requires.
	DefaultUserAgent = "crate/1.0 (https://github.com/jfmyers9/crate)"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultDurationTolerance is how far a recording's length may be from
	// the requested duration and still match.
	DefaultDurationTolerance = 10 * time.Second

	// MinScore is the lowest search score accepted as a match.
	MinScore = 80

	searchLimit = 10
)

var (
	// ErrNotFound is returned when no recording matches with an ISRC.
	ErrNotFound = errors.New("musicbrainz: no matching recording")

	// ErrRateLimited is returned on 503, which MusicBrainz uses for throttling.
	ErrRateLimited = errors.New("musicbrainz: rate limited")
)

// Recording is one search hit.
type Recording struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Score  int      `json:"score"`
	Length int      `json:"length"` // milliseconds, 0 when unknown
	ISRCs  []string `json:"isrcs"`
}

type searchResponse struct {
	Count      int         `json:"count"`
	Recordings []Recording `json:"recordings"`
}

// Client queries MusicBrainz.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	tolerance  time.Duration
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithDurationTolerance sets the allowed length difference.
func WithDurationTolerance(d time.Duration) Option {
	return func(c *Client) {
		c.tolerance = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a MusicBrainz client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		tolerance: DefaultDurationTolerance,
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With().Str("component", "musicbrainz").Logger()
	return c
}

// SearchRecordings runs a recording search for artist and title.
func (c *Client) SearchRecordings(ctx context.Context, artist, title string) ([]Recording, error) {
	v := url.Values{}
	v.Set("query", buildQuery(artist, title))
	v.Set("fmt", "json")
	v.Set("limit", fmt.Sprintf("%d", searchLimit))

	reqURL := c.baseURL + "/recording?" + v.Encode()

	c.logger.Debug().
		Str("artist", artist).
		Str("title", title).
		Msg("Searching MusicBrainz recordings")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return sr.Recordings, nil
}

// ResolveISRC finds an ISRC for the recording best matching artist, title
// and durationMs. A durationMs <= 0 disables the length check.
//
// Returns ErrNotFound when nothing scores at least MinScore with an ISRC
// inside the duration tolerance.
func (c *Client) ResolveISRC(ctx context.Context, artist, title string, durationMs int) (string, error) {
	recs, err := c.SearchRecordings(ctx, artist, title)
	if err != nil {
		return "", err
	}

	best, ok := PickRecording(recs, durationMs, c.tolerance)
	if !ok {
		c.logger.Debug().
			Str("artist", artist).
			Str("title", title).
			Int("candidates", len(recs)).
			Msg("No MusicBrainz recording with ISRC matched")
		return "", ErrNotFound
	}

	isrc := strings.ToUpper(strings.TrimSpace(best.ISRCs[0]))

	c.logger.Debug().
		Str("artist", artist).
		Str("title", title).
		Str("mbid", best.ID).
		Int("score", best.Score).
		Str("isrc", isrc).
		Msg("Resolved ISRC via MusicBrainz")

	return isrc, nil
}

// PickRecording chooses the candidate to take an ISRC from. Candidates
// need a score of at least MinScore and at least one ISRC. With a known
// duration the closest length within tolerance wins, ties going to the
// higher score; recordings without a length only match when durationMs
// is unknown.
func PickRecording(recs []Recording, durationMs int, tolerance time.Duration) (Recording, bool) {
	var (
		best     Recording
		bestDiff int64 = -1
		found    bool
	)

	tol := tolerance.Milliseconds()
	for _, r := range recs {
		if r.Score < MinScore || len(r.ISRCs) == 0 {
			continue
		}

		if durationMs <= 0 {
			if !found || r.Score > best.Score {
				best, found = r, true
			}
			continue
		}

		if r.Length <= 0 {
			continue
		}
		diff := int64(r.Length - durationMs)
		if diff < 0 {
			diff = -diff
		}
		if diff > tol {
			continue
		}
		if !found || diff < bestDiff || (diff == bestDiff && r.Score > best.Score) {
			best, bestDiff, found = r, diff, true
		}
	}

	return best, found
}

// buildQuery builds a Lucene query for the recording search.
func buildQuery(artist, title string) string {
	if artist == "" {
		return fmt.Sprintf(`recording:"%s"`, escapePhrase(title))
	}
	return fmt.Sprintf(`artist:"%s" AND recording:"%s"`, escapePhrase(artist), escapePhrase(title))
}

// escapePhrase escapes the characters that end a quoted Lucene phrase.
func escapePhrase(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return r.Replace(s)
}
