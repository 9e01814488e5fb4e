// Package cover resolves the playing track to catalog artwork and downloads
// the rendition matching the configured size.
package cover

import (
	"context"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/edumarques81/coverfetch/internal/config"
	"github.com/edumarques81/coverfetch/internal/infra/spotify"
)

// Property names read from the daemon's currentsong response.
const (
	PropertyArtist   = "Artist"
	PropertyTitle    = "Title"
	PropertyAlbumURI = "X-AlbumUri" // set by Mopidy-Spotify
)

// Strategy names how the album was found.
type Strategy string

const (
	StrategyAlbumID Strategy = "album_id"
	StrategySearch  Strategy = "search"
)

// DaemonClient reads the current song from the music daemon.
type DaemonClient interface {
	CurrentSong(ctx context.Context) (mpd.Attrs, error)
}

// Catalog looks up albums and tracks.
type Catalog interface {
	SearchTrack(ctx context.Context, query string) ([]spotify.Track, error)
	GetAlbum(ctx context.Context, id string) (*spotify.Album, error)
}

// CatalogFactory builds a Catalog bound to an access token.
type CatalogFactory func(accessToken string) Catalog

// TokenRefresher trades a refresh token for a new token set.
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (config.TokenSet, error)
}

// ConfigSaver persists an updated snapshot.
type ConfigSaver interface {
	Save(snap config.Snapshot) error
}

// ImageDownloader fetches an image URL into a file.
type ImageDownloader interface {
	Download(ctx context.Context, url, path string) (*DownloadResult, error)
}

// DownloadResult describes a written artwork file.
type DownloadResult struct {
	Path        string
	Size        int    // bytes written
	ContentType string // as reported by the image host
	Format      string // decoded image format, empty if undecodable
	Width       int    // decoded width, 0 if undecodable
	Height      int    // decoded height, 0 if undecodable
}

// Result is the outcome of a successful run.
type Result struct {
	Snapshot  config.Snapshot // configuration after any token refresh
	Refreshed bool
	Strategy  Strategy
	AlbumName string
	Image     spotify.Image
	Download  *DownloadResult
}
