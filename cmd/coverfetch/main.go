// Package main is the entry point for coverfetch, which saves the album
// artwork of the song MPD is playing.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/edumarques81/coverfetch/internal/config"
	"github.com/edumarques81/coverfetch/internal/domain/cover"
	"github.com/edumarques81/coverfetch/internal/failure"
	"github.com/edumarques81/coverfetch/internal/infra/mpd"
	"github.com/edumarques81/coverfetch/internal/infra/spotify"
	"github.com/edumarques81/coverfetch/internal/version"
)

func main() {
	// Command line flags
	configPath := flag.String("config", config.DefaultPath, "Path to the TOML configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Str("run", uuid.NewString()).Logger()

	log.Debug().Msg(version.GetInfo().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath)
	stop()

	if err != nil {
		log.Error().Str("kind", failure.Kind(err)).Msgf("%s: %v", failure.Kind(err), err)
		os.Exit(failure.ExitCode(err))
	}
}

func run(ctx context.Context, configPath string) error {
	store := config.NewStore(configPath)

	snap, err := store.Load()
	if err != nil {
		return err
	}

	log.Debug().
		Str("config", store.Path()).
		Str("mpd", snap.MPD.Addr()).
		Str("size", snap.Cover.PreferredSize).
		Bool("password_set", snap.MPD.Password != "").
		Bool("authenticated", snap.Authenticated()).
		Msg("Configuration")

	httpClient := &http.Client{Timeout: snap.HTTP.Timeout()}
	retry := snap.HTTP.RetryTransient

	auth := spotify.NewAuthenticator(snap.Spotify.ClientID, snap.Spotify.ClientSecret,
		spotify.WithAuthHTTPClient(httpClient),
		spotify.WithAuthRetryTransient(retry))

	if !snap.Authenticated() {
		return authorize(ctx, auth, store, snap, os.Stdin, os.Stdout)
	}

	api := spotify.NewClient("",
		spotify.WithHTTPClient(httpClient),
		spotify.WithUserAgent(version.UserAgent()),
		spotify.WithRetryTransient(retry))

	resolver := cover.NewResolver(
		mpd.NewClient(snap.MPD.Addr(), snap.MPD.Password, snap.MPD.Timeout()),
		func(token string) cover.Catalog { return api.WithAccessToken(token) },
		auth,
		store,
		cover.NewHTTPDownloader(
			cover.WithDownloadHTTPClient(httpClient),
			cover.WithDownloadRetryTransient(retry)),
	)

	result, err := resolver.Run(ctx, snap)
	if err != nil {
		return err
	}

	log.Info().
		Str("album", result.AlbumName).
		Str("strategy", string(result.Strategy)).
		Str("url", result.Image.URL).
		Str("path", result.Download.Path).
		Bool("refreshed", result.Refreshed).
		Msg("Cover saved")
	return nil
}
