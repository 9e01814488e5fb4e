// Package spotify provides the Spotify accounts (OAuth) and Web API clients
// used to look up album artwork.
package spotify

import (
	"encoding/json"
	"errors"
)

// ErrUnauthorized indicates the API rejected the access token (HTTP 401).
var ErrUnauthorized = errors.New("access token rejected")

// Album is an album with its artwork in every size the catalog offers.
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Image is one artwork rendition. Width and height are 0 when the catalog
// reports them as null.
type Image struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	URL    string `json:"url"`
}

// Artist is a track artist.
type Artist struct {
	Name string `json:"name"`
}

// Track is a search hit.
type Track struct {
	Album   Album    `json:"album"`
	Artists []Artist `json:"artists"`
	ID      string   `json:"id"`
	Name    string   `json:"name"`
}

// Paging is one page of search results.
type Paging[T any] struct {
	Href  string `json:"href"`
	Items []T    `json:"items"`
	Total int    `json:"total"`
}

// SearchResults is the search envelope. Tracks is nil when the response
// carries no "tracks" field.
type SearchResults struct {
	Tracks *Paging[Track] `json:"tracks"`
}

// errorResponse covers both error shapes: the accounts service sends
// error_description, the Web API sends {"error": {"message": ...}}.
type errorResponse struct {
	ErrorDescription string          `json:"error_description"`
	Error            json.RawMessage `json:"error"`
}

type apiError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

const unknownErrorMessage = "Server returned an unknown error"

// errorMessage extracts a human readable message from an error body.
func errorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return unknownErrorMessage
	}
	if resp.ErrorDescription != "" {
		return resp.ErrorDescription
	}

	var nested apiError
	if len(resp.Error) > 0 && json.Unmarshal(resp.Error, &nested) == nil && nested.Message != "" {
		return nested.Message
	}

	return unknownErrorMessage
}
