package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/edumarques81/coverfetch/internal/config"
	"github.com/edumarques81/coverfetch/internal/failure"
)

func TestParseRedirect(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantURI  string
		wantCode string
		wantErr  bool
	}{
		{"plain", "https://example.com/cb?code=abc123\n", "https://example.com/cb", "abc123", false},
		{"trailing params", "https://example.com/cb?code=abc&state=xyz", "https://example.com/cb", "abc", false},
		{"placeholder uri", "your-app-redirect-uri?code=C0DE", "your-app-redirect-uri", "C0DE", false},
		{"surrounding whitespace", "  https://example.com/cb?code=abc  \r\n", "https://example.com/cb", "abc", false},
		{"no code", "https://example.com/cb?error=access_denied", "", "", true},
		{"empty code", "https://example.com/cb?code=&state=1", "", "", true},
		{"empty line", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, code, err := parseRedirect(tt.line)
			if tt.wantErr {
				if !errors.Is(err, failure.ErrParse) {
					t.Errorf("parseRedirect(%q) error = %v, want ErrParse", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRedirect(%q) error = %v", tt.line, err)
			}
			if uri != tt.wantURI || code != tt.wantCode {
				t.Errorf("parseRedirect(%q) = (%q, %q), want (%q, %q)", tt.line, uri, code, tt.wantURI, tt.wantCode)
			}
		})
	}
}

// MockExchanger is a mock implementation of codeExchanger.
type MockExchanger struct {
	GotURI  string
	GotCode string
	Token   config.TokenSet
	Err     error
}

func (m *MockExchanger) AuthorizationURL(redirectURI string) string {
	return "https://accounts.example.com/authorize?redirect_uri=" + redirectURI
}

func (m *MockExchanger) ExchangeAuthorizationCode(ctx context.Context, redirectURI, code string) (config.TokenSet, error) {
	m.GotURI = redirectURI
	m.GotCode = code
	return m.Token, m.Err
}

// MockStore is a mock implementation of cover.ConfigSaver.
type MockStore struct {
	Saved []config.Snapshot
}

func (m *MockStore) Save(snap config.Snapshot) error {
	m.Saved = append(m.Saved, snap)
	return nil
}

func TestAuthorize(t *testing.T) {
	exchanger := &MockExchanger{Token: config.TokenSet{AccessToken: "a", RefreshToken: "r", ExpiresAt: 42}}
	store := &MockStore{}
	var out bytes.Buffer

	snap := config.Snapshot{Spotify: config.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}}
	in := strings.NewReader("your-app-redirect-uri?code=xyz&state=1\n")

	if err := authorize(context.Background(), exchanger, store, snap, in, &out); err != nil {
		t.Fatalf("authorize() error = %v", err)
	}

	if !strings.Contains(out.String(), "redirect_uri=your-app-redirect-uri") {
		t.Errorf("output should contain the authorization URL: %q", out.String())
	}
	if !strings.Contains(out.String(), "Replace 'your-app-redirect-uri' with the redirect URI") {
		t.Errorf("output should explain the placeholder redirect URI: %q", out.String())
	}
	if exchanger.GotURI != "your-app-redirect-uri" || exchanger.GotCode != "xyz" {
		t.Errorf("exchange got (%q, %q)", exchanger.GotURI, exchanger.GotCode)
	}
	if len(store.Saved) != 1 {
		t.Fatalf("saves = %d, want 1", len(store.Saved))
	}
	if tok, ok := store.Saved[0].Token(); !ok || tok != exchanger.Token {
		t.Errorf("saved token = %+v, %v", tok, ok)
	}
}

func TestAuthorize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		exchErr error
		wantErr error
	}{
		{"malformed", "https://example.com/cb\n", nil, failure.ErrParse},
		{"no input", "", nil, failure.ErrIO},
		{"exchange rejected", "cb?code=x\n", failure.ErrAuth, failure.ErrAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exchanger := &MockExchanger{Err: tt.exchErr}
			store := &MockStore{}

			err := authorize(context.Background(), exchanger, store, config.Snapshot{}, strings.NewReader(tt.input), &bytes.Buffer{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("authorize() error = %v, want %v", err, tt.wantErr)
			}
			if len(store.Saved) != 0 {
				t.Error("nothing should be saved on failure")
			}
		})
	}
}
