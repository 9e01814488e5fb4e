package cover_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edumarques81/coverfetch/internal/config"
	"github.com/edumarques81/coverfetch/internal/domain/cover"
	"github.com/edumarques81/coverfetch/internal/infra/mpd"
	"github.com/edumarques81/coverfetch/internal/infra/spotify"
)

// serveSong answers a single currentsong command with the given body.
func serveSong(t *testing.T, body string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		conn.Write([]byte("OK MPD 0.23.5\n"))
		if _, err := bufio.NewReader(conn).ReadString('\n'); err != nil {
			return
		}
		conn.Write([]byte(body))
	}()

	return ln.Addr().String()
}

func TestPipeline_ExpiredTokenEndToEnd(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	artwork := pngBytes(t, 2, 2)

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "r1" {
			http.Error(w, `{"error":"invalid_grant","error_description":"bad"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"tracks": map[string]any{
				"href":  "",
				"total": 1,
				"items": []any{map[string]any{
					"id":      "t1",
					"name":    "B",
					"artists": []any{map[string]any{"name": "A"}},
					"album": map[string]any{
						"name": "Album",
						"images": []any{
							map[string]any{"width": 64, "height": 64, "url": server.URL + "/img/small"},
							map[string]any{"width": 2, "height": 2, "url": server.URL + "/img/big"},
						},
					},
				}},
			},
		})
	})
	mux.HandleFunc("/img/big", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(artwork)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	store := config.NewStore(filepath.Join(dir, "config.toml"))
	output := filepath.Join(dir, "cover.png")

	snap := config.Snapshot{
		Spotify: config.SpotifyConfig{ClientID: "id", ClientSecret: "secret"},
		MPD:     config.MPDConfig{Address: "127.0.0.1"},
		Cover:   config.CoverConfig{PreferredSize: "2x2", OutputPath: output},
	}.WithToken(config.TokenSet{AccessToken: "stale", RefreshToken: "r1", ExpiresAt: now.Add(-time.Minute).Unix()})
	if err := store.Save(snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	daemon := mpd.NewClient(serveSong(t, "Artist: A\nTitle: B\nOK\n"), "", time.Second)
	auth := spotify.NewAuthenticator("id", "secret",
		spotify.WithTokenURL(server.URL+"/api/token"),
		spotify.WithClock(func() time.Time { return now }))
	api := spotify.NewClient("", spotify.WithBaseURL(server.URL+"/v1"))
	factory := func(token string) cover.Catalog { return api.WithAccessToken(token) }

	resolver := cover.NewResolver(daemon, factory, auth, store, cover.NewHTTPDownloader(),
		cover.WithNow(func() time.Time { return now }))

	result, err := resolver.Run(context.Background(), loaded)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	written, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(written, artwork) {
		t.Error("output file should hold the artwork bytes")
	}
	if result.Download.Width != 2 || result.Download.Height != 2 {
		t.Errorf("decoded size = %dx%d, want 2x2", result.Download.Width, result.Download.Height)
	}

	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tok, ok := persisted.Token()
	if !ok {
		t.Fatal("persisted config should be authenticated")
	}
	if tok.AccessToken != "fresh" || tok.RefreshToken != "r1" {
		t.Errorf("persisted token = %+v", tok)
	}
	if tok.ExpiresAt != now.Unix()+3600 {
		t.Errorf("ExpiresAt = %d, want %d", tok.ExpiresAt, now.Unix()+3600)
	}
}
