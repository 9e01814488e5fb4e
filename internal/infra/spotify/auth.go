package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/edumarques81/coverfetch/internal/config"
	"github.com/edumarques81/coverfetch/internal/failure"
)

const (
	// DefaultAuthURL is the Spotify authorization page
	DefaultAuthURL = "https://accounts.spotify.com/authorize"

	// DefaultTokenURL is the Spotify token endpoint
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	// PlaceholderRedirectURI is printed in the authorization URL for the
	// user to replace with the redirect URI registered for the app.
	PlaceholderRedirectURI = "your-app-redirect-uri"
)

// Authenticator performs the authorization-code and refresh-token
// exchanges. It never persists anything; callers save the returned tokens.
type Authenticator struct {
	clientID       string
	clientSecret   string
	authURL        string
	tokenURL       string
	httpClient     *http.Client
	retryTransient bool
	now            func() time.Time
}

// AuthOption is a functional option for configuring the Authenticator.
type AuthOption func(*Authenticator)

// WithAuthURL sets a custom authorization page URL.
func WithAuthURL(url string) AuthOption {
	return func(a *Authenticator) {
		a.authURL = url
	}
}

// WithTokenURL sets a custom token endpoint (useful for testing).
func WithTokenURL(url string) AuthOption {
	return func(a *Authenticator) {
		a.tokenURL = url
	}
}

// WithAuthHTTPClient sets the HTTP client used for token requests.
func WithAuthHTTPClient(client *http.Client) AuthOption {
	return func(a *Authenticator) {
		a.httpClient = client
	}
}

// WithAuthRetryTransient repeats a token request once after a transient failure.
func WithAuthRetryTransient(retry bool) AuthOption {
	return func(a *Authenticator) {
		a.retryTransient = retry
	}
}

// WithClock sets the clock used to turn expires_in into an instant.
func WithClock(now func() time.Time) AuthOption {
	return func(a *Authenticator) {
		a.now = now
	}
}

// NewAuthenticator creates an Authenticator for the given app credentials.
func NewAuthenticator(clientID, clientSecret string, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      DefaultAuthURL,
		tokenURL:     DefaultTokenURL,
		httpClient: &http.Client{
			Timeout: config.DefaultHTTPTimeout,
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Authenticator) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.authURL,
			TokenURL:  a.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthorizationURL returns the page the user visits to approve the app.
func (a *Authenticator) AuthorizationURL(redirectURI string) string {
	return a.oauthConfig(redirectURI).AuthCodeURL("")
}

// ExchangeAuthorizationCode trades a user-approved code for a new token set.
func (a *Authenticator) ExchangeAuthorizationCode(ctx context.Context, redirectURI, code string) (config.TokenSet, error) {
	log.Debug().Str("tokenURL", a.tokenURL).Msg("Exchanging authorization code")

	cfg := a.oauthConfig(redirectURI)
	tok, err := a.retrieve(ctx, func(ctx context.Context) (*oauth2.Token, error) {
		return cfg.Exchange(ctx, code)
	})
	if err != nil {
		return config.TokenSet{}, fmt.Errorf("unable to exchange authorization code: %w", err)
	}

	if tok.RefreshToken == "" {
		return config.TokenSet{}, fmt.Errorf("%w: token response missing refresh_token", failure.ErrAuth)
	}

	return a.tokenSet(tok)
}

// RefreshAccessToken obtains a new access token. The returned set keeps
// refreshToken unless the server issued a new one.
func (a *Authenticator) RefreshAccessToken(ctx context.Context, refreshToken string) (config.TokenSet, error) {
	if refreshToken == "" {
		return config.TokenSet{}, fmt.Errorf("%w: refresh token is not configured", failure.ErrAuth)
	}

	log.Debug().Str("tokenURL", a.tokenURL).Msg("Refreshing access token")

	cfg := a.oauthConfig("")
	tok, err := a.retrieve(ctx, func(ctx context.Context) (*oauth2.Token, error) {
		// A token without an access token is never valid, so the source
		// always performs the refresh grant.
		return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	})
	if err != nil {
		return config.TokenSet{}, fmt.Errorf("unable to refresh token: %w", err)
	}

	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}

	return a.tokenSet(tok)
}

// IsExpired reports whether tok is expired at now.
func IsExpired(tok config.TokenSet, now time.Time) bool {
	return now.Unix() >= tok.ExpiresAt
}

func (a *Authenticator) retrieve(ctx context.Context, fn func(context.Context) (*oauth2.Token, error)) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := fn(ctx)
	if err != nil {
		err = mapTokenError(err)
		if a.retryTransient && failure.IsTemporary(err) {
			log.Warn().Err(err).Msg("Token request failed, retrying once")
			tok, err = fn(ctx)
			if err != nil {
				err = mapTokenError(err)
			}
		}
	}
	return tok, err
}

func (a *Authenticator) tokenSet(tok *oauth2.Token) (config.TokenSet, error) {
	expiresIn, ok := expiresIn(tok)
	if !ok {
		return config.TokenSet{}, fmt.Errorf("%w: token response missing expires_in", failure.ErrAuth)
	}

	return config.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    a.now().Unix() + expiresIn,
	}, nil
}

// expiresIn reads the raw expires_in field of the token response.
func expiresIn(tok *oauth2.Token) (int64, bool) {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(math.Floor(v)), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

func mapTokenError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		msg := rerr.ErrorDescription
		if msg == "" {
			msg = errorMessage(rerr.Body)
		}
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		mapped := fmt.Errorf("%w: %s (status %d)", failure.ErrAuth, msg, status)
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			return failure.Temporary(mapped)
		}
		return mapped
	}

	mapped := fmt.Errorf("%w: %v", failure.ErrAuth, err)
	if errors.Is(err, context.Canceled) {
		return mapped
	}

	// Network failures are transient; a malformed 2xx body is not
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return failure.Temporary(mapped)
	}
	return mapped
}
