// Package config holds the configuration snapshot for a single run and the
// TOML file store it is loaded from and saved to.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/edumarques81/coverfetch/internal/failure"
)

const (
	// DefaultPath is the configuration file looked up in the working directory.
	DefaultPath = "config.toml"

	// DefaultMPDPort is the standard MPD port
	DefaultMPDPort = 6600

	// DefaultMPDTimeout bounds the daemon TCP connect
	DefaultMPDTimeout = 30 * time.Second

	// DefaultHTTPTimeout bounds every catalog, token and image request
	DefaultHTTPTimeout = 30 * time.Second
)

// Snapshot is the immutable configuration of one run. Methods that change
// it return a new Snapshot.
type Snapshot struct {
	Spotify SpotifyConfig `toml:"spotify"`
	MPD     MPDConfig     `toml:"mpd"`
	Cover   CoverConfig   `toml:"cover"`
	HTTP    HTTPConfig    `toml:"http,omitempty"`
}

// SpotifyConfig holds the app credentials and the optional token set.
type SpotifyConfig struct {
	ClientID     string  `toml:"client_id"`
	ClientSecret string  `toml:"client_secret"`
	AccessToken  *string `toml:"access_token,omitempty"`
	RefreshToken *string `toml:"refresh_token,omitempty"`
	ExpiresAt    *int64  `toml:"expires_at,omitempty"` // epoch seconds
}

// MPDConfig locates the music daemon.
type MPDConfig struct {
	Address        string `toml:"address"`
	Port           uint16 `toml:"port"`
	Password       string `toml:"password,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`
}

// CoverConfig selects the artwork size and where it is written.
type CoverConfig struct {
	PreferredSize string `toml:"preferred_size"` // "WxH"
	OutputPath    string `toml:"output_path"`
}

// HTTPConfig tunes the outgoing HTTP requests.
type HTTPConfig struct {
	TimeoutSeconds int  `toml:"timeout_seconds,omitempty"`
	RetryTransient bool `toml:"retry_transient,omitempty"`
}

// TokenSet is the OAuth state obtained from the catalog.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // epoch seconds
}

// Authenticated reports whether all three token fields are present.
func (s Snapshot) Authenticated() bool {
	sp := s.Spotify
	return sp.AccessToken != nil && sp.RefreshToken != nil && sp.ExpiresAt != nil
}

// Token returns the configured token set, if the snapshot is authenticated.
func (s Snapshot) Token() (TokenSet, bool) {
	if !s.Authenticated() {
		return TokenSet{}, false
	}
	return TokenSet{
		AccessToken:  *s.Spotify.AccessToken,
		RefreshToken: *s.Spotify.RefreshToken,
		ExpiresAt:    *s.Spotify.ExpiresAt,
	}, true
}

// WithToken returns a copy of the snapshot carrying tok.
func (s Snapshot) WithToken(tok TokenSet) Snapshot {
	access, refresh, expires := tok.AccessToken, tok.RefreshToken, tok.ExpiresAt
	s.Spotify.AccessToken = &access
	s.Spotify.RefreshToken = &refresh
	s.Spotify.ExpiresAt = &expires
	return s
}

// Validate checks that every field the run depends on is set.
func (s Snapshot) Validate() error {
	var missing []string
	if s.Spotify.ClientID == "" {
		missing = append(missing, "spotify.client_id")
	}
	if s.Spotify.ClientSecret == "" {
		missing = append(missing, "spotify.client_secret")
	}
	if s.MPD.Address == "" {
		missing = append(missing, "mpd.address")
	}
	if s.Cover.PreferredSize == "" {
		missing = append(missing, "cover.preferred_size")
	}
	if s.Cover.OutputPath == "" {
		missing = append(missing, "cover.output_path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing config fields: %s", failure.ErrParse, strings.Join(missing, ", "))
	}
	return nil
}

// Addr returns the daemon address in host:port form.
func (m MPDConfig) Addr() string {
	port := m.Port
	if port == 0 {
		port = DefaultMPDPort
	}
	return net.JoinHostPort(m.Address, strconv.Itoa(int(port)))
}

// Timeout returns the daemon connect timeout.
func (m MPDConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return DefaultMPDTimeout
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Timeout returns the per-request HTTP timeout.
func (h HTTPConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return DefaultHTTPTimeout
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// ParseSize splits a "WxH" size string into width and height.
// Parts after the second are ignored.
func ParseSize(size string) (width, height uint32, err error) {
	parts := strings.Split(size, "x")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: size %q is not in WxH form", failure.ErrParse, size)
	}

	dims := make([]uint32, 2)
	for i, part := range parts[:2] {
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: size part %q of %q is not a number", failure.ErrParse, part, size)
		}
		dims[i] = uint32(v)
	}

	return dims[0], dims[1], nil
}
