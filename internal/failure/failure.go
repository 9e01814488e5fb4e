// Package failure defines the error kinds shared by the daemon client, the
// catalog client and the cover resolver.
package failure

import (
	"errors"
)

// Error kinds. Components wrap one of these with fmt.Errorf("%w: ...").
var (
	// ErrConnection indicates the daemon could not be reached in time
	ErrConnection = errors.New("connection error")

	// ErrProtocol indicates an unexpected greeting or an ACK response
	ErrProtocol = errors.New("protocol error")

	// ErrParse indicates malformed input (daemon line, size string, redirect URL)
	ErrParse = errors.New("parse error")

	// ErrAuth indicates a missing or rejected token or a failed exchange
	ErrAuth = errors.New("auth error")

	// ErrCatalogAPI indicates a non-success or malformed catalog response
	ErrCatalogAPI = errors.New("catalog api error")

	// ErrNotFound indicates no matching track, album or image size
	ErrNotFound = errors.New("not found")

	// ErrIO indicates a configuration or output file failure
	ErrIO = errors.New("io error")

	// ErrTemporary marks a failure worth one more attempt (network, 429, 5xx)
	ErrTemporary = errors.New("temporary failure")
)

var kinds = []struct {
	err  error
	name string
	code int
}{
	{ErrConnection, "ConnectionError", 2},
	{ErrProtocol, "ProtocolError", 3},
	{ErrParse, "ParseError", 4},
	{ErrAuth, "AuthError", 5},
	{ErrCatalogAPI, "CatalogApiError", 6},
	{ErrNotFound, "NotFoundError", 7},
	{ErrIO, "IoError", 8},
}

// Kind returns the name of the first error kind err wraps, or "Error".
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Error"
}

// ExitCode maps err to a process exit status. nil maps to 0, unknown errors to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return 1
}

// IsTemporary returns true if the error is worth retrying once
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTemporary)
}

// Temporary marks err as transient while keeping its kind and message.
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return &temporaryError{err: err}
}

type temporaryError struct {
	err error
}

func (e *temporaryError) Error() string {
	return e.err.Error()
}

func (e *temporaryError) Unwrap() []error {
	return []error{e.err, ErrTemporary}
}
