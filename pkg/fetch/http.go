package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxBody bounds the size of a fetched fragment.
const DefaultMaxBody = 4 << 20

// HTTPFetcher fetches over HTTP, resolving relative URLs against Base.
type HTTPFetcher struct {
	client  *http.Client
	base    *url.URL
	limiter *rate.Limiter
	maxBody int64
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithClient sets the HTTP client. Passing a client with a cookie jar makes
// the fetcher carry session cookies.
func WithClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithRateLimit caps requests per second with the given burst.
func WithRateLimit(perSecond float64, burst int) HTTPOption {
	return func(f *HTTPFetcher) {
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMaxBody overrides DefaultMaxBody.
func WithMaxBody(n int64) HTTPOption {
	return func(f *HTTPFetcher) { f.maxBody = n }
}

// NewHTTP creates a fetcher rooted at base. An empty base accepts only
// absolute URLs.
func NewHTTP(base string, opts ...HTTPOption) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		maxBody: DefaultMaxBody,
	}
	if base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("fetch: parse base url: %w", err)
		}
		if u.Path != "" && u.Path[len(u.Path)-1] != '/' {
			u.Path += "/"
		}
		f.base = u
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	target, err := f.resolve(rawURL)
	if err != nil {
		return "", err
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &StatusError{URL: target, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("fetch %s: read body: %w", target, err)
	}
	if int64(len(body)) > f.maxBody {
		return "", fmt.Errorf("fetch %s: body exceeds %d bytes", target, f.maxBody)
	}
	return string(body), nil
}

func (f *HTTPFetcher) resolve(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("fetch: parse url %q: %w", rawURL, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if f.base == nil {
		return "", fmt.Errorf("fetch: relative url %q without base", rawURL)
	}
	return f.base.ResolveReference(u).String(), nil
}
