package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/coverfetch/internal/config"
	"github.com/edumarques81/coverfetch/internal/failure"
	"github.com/edumarques81/coverfetch/internal/version"
)

const (
	// DefaultAPIBaseURL is the Spotify Web API base URL
	DefaultAPIBaseURL = "https://api.spotify.com/v1"

	// AlbumURIPrefix prefixes album identifiers in Spotify URIs
	AlbumURIPrefix = "spotify:album:"

	// SearchTypeTrack restricts a search to tracks
	SearchTypeTrack = "track"

	albumPathTemplate = "/albums/{id}"
	searchPath        = "/search"

	// maxResponseSize caps JSON bodies (4MB)
	maxResponseSize = 4 * 1024 * 1024
)

// Client calls the Spotify Web API with a bearer token.
type Client struct {
	baseURL        string
	userAgent      string
	accessToken    string
	httpClient     *http.Client
	retryTransient bool
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
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

// WithRetryTransient repeats a request once after a transient failure.
func WithRetryTransient(retry bool) Option {
	return func(c *Client) {
		c.retryTransient = retry
	}
}

// NewClient creates a Web API client. accessToken may be empty, in which
// case every call fails with an auth error.
func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultAPIBaseURL,
		userAgent:   version.UserAgent(),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: config.DefaultHTTPTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithAccessToken returns a copy of the client using token.
func (c *Client) WithAccessToken(token string) *Client {
	clone := *c
	clone.accessToken = token
	return &clone
}

// Search runs a catalog search of the given type.
func (c *Client) Search(ctx context.Context, query, searchType string) (*SearchResults, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", searchType)

	var results SearchResults
	if err := c.getJSON(ctx, searchPath, params, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// SearchTrack searches for tracks matching query and returns them in
// catalog order.
func (c *Client) SearchTrack(ctx context.Context, query string) ([]Track, error) {
	log.Debug().Str("query", query).Msg("Searching Spotify for track")

	results, err := c.Search(ctx, query, SearchTypeTrack)
	if err != nil {
		return nil, err
	}

	if results.Tracks == nil {
		return nil, fmt.Errorf("%w: search unavailable", failure.ErrCatalogAPI)
	}
	if results.Tracks.Items == nil {
		return nil, fmt.Errorf("%w: search response missing tracks.items", failure.ErrCatalogAPI)
	}
	if len(results.Tracks.Items) == 0 {
		return nil, fmt.Errorf("%w: no tracks found for %q", failure.ErrNotFound, query)
	}

	return results.Tracks.Items, nil
}

// GetAlbum looks up an album by catalog id.
func (c *Client) GetAlbum(ctx context.Context, id string) (*Album, error) {
	log.Debug().Str("albumID", id).Msg("Looking up Spotify album")

	path := strings.Replace(albumPathTemplate, "{id}", url.PathEscape(id), 1)

	var album Album
	if err := c.getJSON(ctx, path, nil, &album); err != nil {
		return nil, err
	}
	if album.Images == nil {
		return nil, fmt.Errorf("%w: album response missing images", failure.ErrCatalogAPI)
	}

	return &album, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c.accessToken == "" {
		return fmt.Errorf("%w: access token is not configured", failure.ErrAuth)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	err := c.doJSON(ctx, reqURL, out)
	if err != nil && c.retryTransient && failure.IsTemporary(err) {
		log.Warn().Err(err).Str("url", reqURL).Msg("Spotify request failed, retrying once")
		err = c.doJSON(ctx, reqURL, out)
	}
	return err
}

func (c *Client) doJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", failure.ErrCatalogAPI, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: http request: %v", failure.ErrCatalogAPI, err)
		}
		return failure.Temporary(fmt.Errorf("%w: http request: %v", failure.ErrCatalogAPI, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return failure.Temporary(fmt.Errorf("%w: read response: %v", failure.ErrCatalogAPI, err))
	}

	// Handle response status codes
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Success
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w: %s", failure.ErrCatalogAPI, ErrUnauthorized, errorMessage(body))
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout,
		resp.StatusCode == http.StatusInternalServerError:
		log.Warn().Int("status", resp.StatusCode).Str("url", reqURL).Msg("Spotify temporary error")
		return failure.Temporary(fmt.Errorf("%w: %s (status %d)", failure.ErrCatalogAPI, errorMessage(body), resp.StatusCode))
	default:
		return fmt.Errorf("%w: %s (status %d)", failure.ErrCatalogAPI, errorMessage(body), resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: parse response: %v", failure.ErrCatalogAPI, err)
	}

	return nil
}
