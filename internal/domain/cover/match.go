package cover

import (
	"fmt"
	"strings"

	"github.com/edumarques81/coverfetch/internal/failure"
	"github.com/edumarques81/coverfetch/internal/infra/spotify"
)

// EitherContains reports whether a contains b or b contains a. The
// comparison is case-sensitive.
func EitherContains(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// SearchQuery builds the track search query for an artist and title.
func SearchQuery(artist, title string) string {
	return artist + " - " + title
}

// MatchTrack returns the first track, in catalog order, whose name matches
// title and which has at least one artist matching artist.
func MatchTrack(tracks []spotify.Track, artist, title string) (*spotify.Track, error) {
	for i := range tracks {
		t := &tracks[i]
		if !EitherContains(t.Name, title) {
			continue
		}
		for _, a := range t.Artists {
			if EitherContains(a.Name, artist) {
				return t, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no matching tracks found for %q", failure.ErrNotFound, SearchQuery(artist, title))
}

// SelectImage returns the first image with exactly the given dimensions.
func SelectImage(images []spotify.Image, width, height uint32) (spotify.Image, bool) {
	for _, img := range images {
		if img.Width == width && img.Height == height {
			return img, true
		}
	}
	return spotify.Image{}, false
}

// AvailableSizes lists the image sizes as "WxH" joined by ", ".
func AvailableSizes(images []spotify.Image) string {
	sizes := make([]string, 0, len(images))
	for _, img := range images {
		sizes = append(sizes, fmt.Sprintf("%dx%d", img.Width, img.Height))
	}
	return strings.Join(sizes, ", ")
}
