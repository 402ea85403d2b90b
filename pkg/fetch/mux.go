package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Mux sends absolute URLs to the fetcher registered for their scheme and
// relative URLs to Default.
type Mux struct {
	Default Fetcher
	schemes map[string]Fetcher
}

// NewMux creates a mux with a default fetcher.
func NewMux(def Fetcher) *Mux {
	return &Mux{Default: def, schemes: make(map[string]Fetcher)}
}

// Handle registers f for scheme (e.g. "https", "s3").
func (m *Mux) Handle(scheme string, f Fetcher) *Mux {
	m.schemes[strings.ToLower(scheme)] = f
	return m
}

func (m *Mux) Fetch(ctx context.Context, rawURL string) (string, error) {
	if scheme, ok := schemeOf(rawURL); ok {
		f, found := m.schemes[scheme]
		if !found {
			return "", fmt.Errorf("fetch: no fetcher for scheme %q", scheme)
		}
		return f.Fetch(ctx, rawURL)
	}
	if m.Default == nil {
		return "", fmt.Errorf("fetch: no default fetcher for %q", rawURL)
	}
	return m.Default.Fetch(ctx, rawURL)
}

func schemeOf(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme), true
}

// Open builds a fetcher for a source description:
//
//	./site              directory on disk
//	file:///srv/site    directory on disk
//	https://cdn.example HTTP origin
//	s3://bucket/prefix  S3 objects (default AWS configuration)
//	gs://bucket/prefix  Cloud Storage objects (default credentials)
//
// The result is a Mux with the source as default and HTTP(S) registered for
// absolute URLs, so remote widget hosts work with every source.
func Open(ctx context.Context, source string, httpOpts ...HTTPOption) (*Mux, error) {
	web, err := NewHTTP("", httpOpts...)
	if err != nil {
		return nil, err
	}

	var def Fetcher
	u, err := url.Parse(source)
	switch {
	case err != nil || u.Scheme == "" || len(u.Scheme) == 1:
		// No scheme, or a Windows drive letter.
		def = NewDir(source)
	case u.Scheme == "file":
		def = NewDir(u.Path)
	case u.Scheme == "http" || u.Scheme == "https":
		def, err = NewHTTP(source, httpOpts...)
		if err != nil {
			return nil, err
		}
	case u.Scheme == "s3":
		def, err = NewS3FromEnv(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return nil, err
		}
	case u.Scheme == "gs":
		client, err := NewGCSClient(ctx, "")
		if err != nil {
			return nil, err
		}
		def = NewGCS(client, u.Host, strings.TrimPrefix(u.Path, "/"))
	default:
		return nil, fmt.Errorf("fetch: unsupported source %q", source)
	}

	return NewMux(def).Handle("http", web).Handle("https", web), nil
}
