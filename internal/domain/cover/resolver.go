package cover

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/coverfetch/internal/config"
	"github.com/edumarques81/coverfetch/internal/failure"
	"github.com/edumarques81/coverfetch/internal/infra/spotify"
)

// Resolver runs the cover pipeline for one track:
// 1. Read the current song from the daemon
// 2. Refresh the access token if it has expired, and persist it
// 3. Find the album, by album URI or by track search
// 4. Pick the image matching the preferred size
// 5. Download it to the output path
//
// Any failure ends the run. The only repeat is a single token refresh when
// the catalog rejects a token that had not expired locally.
type Resolver struct {
	daemon     DaemonClient
	catalog    CatalogFactory
	auth       TokenRefresher
	store      ConfigSaver
	downloader ImageDownloader
	now        func() time.Time
}

// ResolverOption is a functional option for configuring the Resolver.
type ResolverOption func(*Resolver)

// WithNow sets the clock used for token expiry checks.
func WithNow(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a resolver from its collaborators.
func NewResolver(daemon DaemonClient, catalog CatalogFactory, auth TokenRefresher, store ConfigSaver, downloader ImageDownloader, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		daemon:     daemon,
		catalog:    catalog,
		auth:       auth,
		store:      store,
		downloader: downloader,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// run carries the mutable state of one pipeline execution.
type run struct {
	snap      config.Snapshot
	token     config.TokenSet
	refreshed bool
}

// Run resolves and downloads the artwork for the current song.
func (r *Resolver) Run(ctx context.Context, snap config.Snapshot) (*Result, error) {
	tok, ok := snap.Token()
	if !ok {
		return nil, fmt.Errorf("%w: not authenticated", failure.ErrAuth)
	}
	st := &run{snap: snap, token: tok}

	props, err := r.daemon.CurrentSong(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch currently playing song's properties: %w", err)
	}

	if spotify.IsExpired(st.token, r.now()) {
		log.Debug().Int64("expiresAt", st.token.ExpiresAt).Msg("Access token has expired, requesting a new one")
		if err := r.refresh(ctx, st); err != nil {
			return nil, err
		}
	}

	album, strategy, err := r.lookupAlbum(ctx, st, props)
	if err != nil {
		return nil, err
	}

	width, height, err := config.ParseSize(st.snap.Cover.PreferredSize)
	if err != nil {
		return nil, err
	}

	image, ok := SelectImage(album.Images, width, height)
	if !ok {
		available := AvailableSizes(album.Images)
		log.Error().
			Str("size", st.snap.Cover.PreferredSize).
			Str("album", album.Name).
			Str("available", available).
			Msg("Preferred size is not available for album")
		return nil, fmt.Errorf("%w: size %s is not available for album %q; available sizes: %s",
			failure.ErrNotFound, st.snap.Cover.PreferredSize, album.Name, available)
	}

	log.Info().Str("url", image.URL).Str("album", album.Name).Msg("Downloading image")

	dl, err := r.downloader.Download(ctx, image.URL, st.snap.Cover.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("unable to download image: %w", err)
	}

	if dl.Width != 0 && (uint32(dl.Width) != image.Width || uint32(dl.Height) != image.Height) {
		log.Warn().
			Int("width", dl.Width).
			Int("height", dl.Height).
			Str("expected", fmt.Sprintf("%dx%d", image.Width, image.Height)).
			Msg("Downloaded image dimensions differ from catalog")
	}

	log.Info().Str("path", dl.Path).Int("size", dl.Size).Msg("Image downloaded")

	return &Result{
		Snapshot:  st.snap,
		Refreshed: st.refreshed,
		Strategy:  strategy,
		AlbumName: album.Name,
		Image:     image,
		Download:  dl,
	}, nil
}

// refresh replaces the token and persists the new snapshot before
// returning.
func (r *Resolver) refresh(ctx context.Context, st *run) error {
	tok, err := r.auth.RefreshAccessToken(ctx, st.token.RefreshToken)
	if err != nil {
		return err
	}

	st.token = tok
	st.snap = st.snap.WithToken(tok)
	st.refreshed = true

	if err := r.store.Save(st.snap); err != nil {
		return fmt.Errorf("unable to save config: %w", err)
	}

	log.Debug().Int64("expiresAt", tok.ExpiresAt).Msg("Configuration updated and written to disk")
	return nil
}

// lookupAlbum selects the strategy and resolves the album. A token the
// catalog rejects is refreshed at most once per run.
func (r *Resolver) lookupAlbum(ctx context.Context, st *run, props mpd.Attrs) (*spotify.Album, Strategy, error) {
	album, strategy, err := r.findAlbum(ctx, r.catalog(st.token.AccessToken), props)
	if err == nil || !errors.Is(err, spotify.ErrUnauthorized) || st.refreshed {
		return album, strategy, err
	}

	log.Warn().Err(err).Msg("Access token rejected, refreshing once")
	if err := r.refresh(ctx, st); err != nil {
		return nil, "", err
	}

	return r.findAlbum(ctx, r.catalog(st.token.AccessToken), props)
}

func (r *Resolver) findAlbum(ctx context.Context, catalog Catalog, props mpd.Attrs) (*spotify.Album, Strategy, error) {
	if uri, ok := props[PropertyAlbumURI]; ok {
		if id, ok := strings.CutPrefix(uri, spotify.AlbumURIPrefix); ok && id != "" {
			log.Debug().Str("albumID", id).Msg("Looking up album by album ID")

			album, err := catalog.GetAlbum(ctx, id)
			if err != nil {
				return nil, "", fmt.Errorf("unable to look up album %s: %w", id, err)
			}
			return album, StrategyAlbumID, nil
		}
		log.Warn().Str("uri", uri).Msg("Album URI is not a Spotify album, searching by name")
	}

	artist, ok := props[PropertyArtist]
	if !ok {
		return nil, "", fmt.Errorf("%w: no `%s` in properties", failure.ErrParse, PropertyArtist)
	}
	title, ok := props[PropertyTitle]
	if !ok {
		return nil, "", fmt.Errorf("%w: no `%s` in properties", failure.ErrParse, PropertyTitle)
	}

	log.Debug().Str("artist", artist).Str("title", title).Msg("Looking up song by name")

	tracks, err := catalog.SearchTrack(ctx, SearchQuery(artist, title))
	if err != nil {
		return nil, "", fmt.Errorf("unable to search for track: %w", err)
	}

	track, err := MatchTrack(tracks, artist, title)
	if err != nil {
		return nil, "", err
	}

	log.Debug().Str("trackID", track.ID).Str("album", track.Album.Name).Msg("Matched track")
	return &track.Album, StrategySearch, nil
}
