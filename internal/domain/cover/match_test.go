package cover_test

import (
	"errors"
	"testing"

	"github.com/edumarques81/coverfetch/internal/domain/cover"
	"github.com/edumarques81/coverfetch/internal/failure"
	"github.com/edumarques81/coverfetch/internal/infra/spotify"
)

func TestEitherContains(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Hello", "Hello", true},
		{"Hello (Remastered)", "Hello", true},
		{"Hello", "Hello (Remastered)", true},
		{"Hello", "hello", false},
		{"", "anything", true},
		{"", "", true},
		{"abc", "xyz", false},
	}

	for _, tt := range tests {
		if got := cover.EitherContains(tt.a, tt.b); got != tt.want {
			t.Errorf("EitherContains(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if cover.EitherContains(tt.a, tt.b) != cover.EitherContains(tt.b, tt.a) {
			t.Errorf("EitherContains(%q, %q) is not symmetric", tt.a, tt.b)
		}
		if !cover.EitherContains(tt.a, tt.a) {
			t.Errorf("EitherContains(%q, %q) should be reflexive", tt.a, tt.a)
		}
	}
}

func TestMatchTrack(t *testing.T) {
	tracks := []spotify.Track{
		{ID: "1", Name: "Other Song", Artists: []spotify.Artist{{Name: "A"}}},
		{ID: "2", Name: "B", Artists: []spotify.Artist{{Name: "Someone Else"}}},
		{ID: "3", Name: "B - Live", Artists: []spotify.Artist{{Name: "X"}, {Name: "A feat. Y"}}},
		{ID: "4", Name: "B", Artists: []spotify.Artist{{Name: "A"}}},
	}

	track, err := cover.MatchTrack(tracks, "A", "B")
	if err != nil {
		t.Fatalf("MatchTrack() error = %v", err)
	}
	if track.ID != "3" {
		t.Errorf("MatchTrack() picked %q, want first match 3", track.ID)
	}

	if _, err := cover.MatchTrack(tracks, "Z", "Q"); !errors.Is(err, failure.ErrNotFound) {
		t.Errorf("MatchTrack() error = %v, want ErrNotFound", err)
	}
	if _, err := cover.MatchTrack(nil, "A", "B"); !errors.Is(err, failure.ErrNotFound) {
		t.Errorf("MatchTrack(nil) error = %v, want ErrNotFound", err)
	}
}

func TestSelectImage(t *testing.T) {
	images := []spotify.Image{
		{Width: 640, Height: 640, URL: "first-640"},
		{Width: 300, Height: 300, URL: "300"},
		{Width: 640, Height: 640, URL: "second-640"},
		{Width: 64, Height: 64, URL: "64"},
	}

	img, ok := cover.SelectImage(images, 640, 640)
	if !ok || img.URL != "first-640" {
		t.Errorf("SelectImage(640x640) = %+v, %v; want first-640", img, ok)
	}

	if _, ok := cover.SelectImage(images, 640, 300); ok {
		t.Error("SelectImage should require both dimensions to match")
	}

	if got := cover.AvailableSizes(images); got != "640x640, 300x300, 640x640, 64x64" {
		t.Errorf("AvailableSizes() = %q", got)
	}
	if got := cover.AvailableSizes(nil); got != "" {
		t.Errorf("AvailableSizes(nil) = %q, want empty", got)
	}
}

func TestSearchQuery(t *testing.T) {
	if got := cover.SearchQuery("A", "B"); got != "A - B" {
		t.Errorf("SearchQuery() = %q, want %q", got, "A - B")
	}
}
