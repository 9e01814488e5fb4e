package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/edumarques81/coverfetch/internal/config"
	"github.com/edumarques81/coverfetch/internal/domain/cover"
	"github.com/edumarques81/coverfetch/internal/failure"
	"github.com/edumarques81/coverfetch/internal/infra/spotify"
)

// codeMarker separates the redirect URI from the authorization code.
const codeMarker = "?code="

// codeExchanger trades an authorization code for tokens.
type codeExchanger interface {
	AuthorizationURL(redirectURI string) string
	ExchangeAuthorizationCode(ctx context.Context, redirectURI, code string) (config.TokenSet, error)
}

// authorize runs the one-time interactive authorization and persists the
// resulting tokens.
func authorize(ctx context.Context, auth codeExchanger, store cover.ConfigSaver, snap config.Snapshot, in io.Reader, out io.Writer) error {
	log.Info().Msg("Not authenticated, starting authorization")

	fmt.Fprintf(out, "Please go to this URL and authorize the app:\n%s\n", auth.AuthorizationURL(spotify.PlaceholderRedirectURI))
	fmt.Fprintf(out, "Replace '%s' with the redirect URI configured for your app.\n", spotify.PlaceholderRedirectURI)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Paste the URL you were redirected to: ")
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return fmt.Errorf("%w: failed to read redirect URL: %v", failure.ErrIO, err)
	}

	redirectURI, code, err := parseRedirect(line)
	if err != nil {
		return err
	}

	tok, err := auth.ExchangeAuthorizationCode(ctx, redirectURI, code)
	if err != nil {
		return err
	}

	if err := store.Save(snap.WithToken(tok)); err != nil {
		return fmt.Errorf("unable to save config: %w", err)
	}

	log.Info().Msg("Authorization complete, tokens saved")
	return nil
}

// parseRedirect splits a pasted redirect URL into the redirect URI and the
// authorization code. Query parameters after the code are dropped.
func parseRedirect(line string) (redirectURI, code string, err error) {
	line = strings.TrimSpace(line)

	redirectURI, code, ok := strings.Cut(line, codeMarker)
	if !ok {
		return "", "", fmt.Errorf("%w: redirect URL has no %q: %q", failure.ErrParse, codeMarker, line)
	}

	code, _, _ = strings.Cut(code, "&")
	code = strings.TrimSpace(code)
	if code == "" {
		return "", "", fmt.Errorf("%w: redirect URL has an empty code", failure.ErrParse)
	}

	return redirectURI, code, nil
}
