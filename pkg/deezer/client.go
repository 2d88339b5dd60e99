// Package deezer is a minimal client for the public Deezer catalog API.
//
// Only the ISRC lookup is implemented. The public endpoints need no API key.
package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the Deezer API base URL.
	DefaultBaseURL = "https://api.deezer.com"

	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "crate/1.0"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second
)

// Deezer reports errors inside a 200 response. These are the codes we
// act on.
const (
	errCodeQuota        = 4
	errCodeDataNotFound = 800
)

var (
	// ErrNotFound is returned when Deezer has no track for an ISRC.
	ErrNotFound = errors.New("deezer: track not found")

	// ErrRateLimited is returned when Deezer rejects a request for quota.
	ErrRateLimited = errors.New("deezer: rate limit exceeded")

	// ErrTemporary is returned for 5xx responses.
	ErrTemporary = errors.New("deezer: temporary failure")
)

// Track is the subset of a Deezer track used for enrichment.
// Zero values mean Deezer did not report the field. Gain is nil when the
// field is absent, since 0 dB is a real gain.
type Track struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	ISRC        string   `json:"isrc"`
	BPM         float64  `json:"bpm"`
	Rank        int      `json:"rank"`
	Gain        *float64 `json:"gain"`
	ReleaseDate string   `json:"release_date"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type trackResponse struct {
	Track
	Error *apiError `json:"error"`
}

// Client looks up tracks in the Deezer catalog.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
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

// WithUserAgent sets a custom User-Agent header.
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

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Deezer client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With().Str("component", "deezer").Logger()
	return c
}

// GetTrackByISRC fetches the track carrying the given ISRC.
//
// Returns ErrNotFound when Deezer has no such track. The request is made
// exactly once.
func (c *Client) GetTrackByISRC(ctx context.Context, isrc string) (*Track, error) {
	reqURL := fmt.Sprintf("%s/track/isrc:%s", c.baseURL, url.PathEscape(isrc))

	c.logger.Debug().
		Str("isrc", isrc).
		Msg("Looking up track by ISRC")

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

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrTemporary, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var tr trackResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if tr.Error != nil {
		switch tr.Error.Code {
		case errCodeDataNotFound:
			return nil, ErrNotFound
		case errCodeQuota:
			return nil, ErrRateLimited
		default:
			return nil, fmt.Errorf("deezer: %s (code %d): %s", tr.Error.Type, tr.Error.Code, tr.Error.Message)
		}
	}

	if tr.ID == 0 {
		return nil, ErrNotFound
	}

	c.logger.Debug().
		Str("isrc", isrc).
		Int64("id", tr.ID).
		Float64("bpm", tr.BPM).
		Msg("Found track on Deezer")

	track := tr.Track
	return &track, nil
}
