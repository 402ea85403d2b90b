// Package fetch retrieves fragment files by URL.
//
// The runtime asks for relative URLs such as "page/home.html?v=3" and, for
// remote widgets, absolute ones. A Fetcher resolves them against a source:
// a directory, an HTTP origin, an S3 prefix or a GCS prefix. Mux routes
// absolute URLs by scheme and everything else to a default source.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Fetcher loads the text behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// ErrNotFound is returned (possibly wrapped) when the resource does not exist.
var ErrNotFound = errors.New("fetch: not found")

// StatusError is returned for HTTP responses with status >= 400.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Code)
}

// Is reports 404 and 410 responses as ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && (e.Code == 404 || e.Code == 410)
}

// objectPath strips the query and fragment from a relative URL and joins it
// under prefix as a clean slash path without a leading slash.
func objectPath(prefix, url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	p := path.Join("/", prefix, path.Clean("/"+url))
	return strings.TrimPrefix(p, "/")
}
