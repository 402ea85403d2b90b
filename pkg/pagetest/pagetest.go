package pagetest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/vango-dev/hashpage"
	"github.com/vango-dev/hashpage/pkg/dom"
	"github.com/vango-dev/hashpage/pkg/fetch"
)

// DefaultTimeout bounds every flush.
const DefaultTimeout = 5 * time.Second

// Site is an in-memory set of fragment files.
type Site struct {
	t       testing.TB
	fs      afero.Fs
	pages   string
	widgets string

	mu      sync.Mutex
	fetched []string
}

// NewSite creates an empty site with the default page directory.
func NewSite(t testing.TB) *Site {
	return &Site{t: t, fs: afero.NewMemMapFs(), pages: "page", widgets: "page/widget"}
}

// WithPageDir changes where pages and local widgets are written.
func (s *Site) WithPageDir(dir string) *Site {
	s.pages = strings.Trim(dir, "/")
	s.widgets = s.pages + "/widget"
	return s
}

// WithFile writes a file at a path relative to the site root.
func (s *Site) WithFile(name, body string) *Site {
	s.t.Helper()
	if err := afero.WriteFile(s.fs, strings.TrimPrefix(name, "/"), []byte(body), 0o644); err != nil {
		s.t.Fatalf("pagetest: write %s: %v", name, err)
	}
	return s
}

// WithPage writes the fragment for view, e.g. "home" or "/docs/index".
func (s *Site) WithPage(view, body string) *Site {
	return s.WithFile(s.pages+"/"+strings.Trim(view, "/")+".html", body)
}

// WithWidget writes the fragment for a dotted local widget origin.
func (s *Site) WithWidget(origin, body string) *Site {
	return s.WithFile(s.widgets+"/"+strings.ReplaceAll(origin, ".", "/")+".html", body)
}

// Fetched returns the URLs requested so far.
func (s *Site) Fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

// Fetch implements fetch.Fetcher.
func (s *Site) Fetch(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, url)
	s.mu.Unlock()
	return fetch.NewFS(s.fs).Fetch(ctx, url)
}

// Open starts a runtime over the site. Pages defaults to the site's page
// directory.
func (s *Site) Open(opts hashpage.Options, extra ...hashpage.Option) *Runtime {
	s.t.Helper()
	if opts.Pages == "" {
		opts.Pages = s.pages
	}
	rt, err := hashpage.New(opts, append([]hashpage.Option{hashpage.WithFetcher(s)}, extra...)...)
	if err != nil {
		s.t.Fatalf("pagetest: new runtime: %v", err)
	}
	s.t.Cleanup(func() {
		if err := rt.Shutdown(); err != nil {
			s.t.Errorf("pagetest: shutdown: %v", err)
		}
	})
	h := &Runtime{Runtime: rt, t: s.t}
	return h
}

// Runtime wraps a hashpage.Runtime with settled navigation and assertions.
type Runtime struct {
	*hashpage.Runtime
	t       testing.TB
	started bool
}

// Flush runs the runtime until it is idle, failing the test on timeout.
func (r *Runtime) Flush() {
	r.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	if err := r.Runtime.Flush(ctx); err != nil {
		r.t.Fatalf("pagetest: flush: %v", err)
	}
}

// Do runs fn on the loop and flushes.
func (r *Runtime) Do(fn func(rt *hashpage.Runtime)) {
	r.t.Helper()
	r.Post(func() { fn(r.Runtime) })
	r.Flush()
}

// Navigate moves to hash as if the user typed it and waits for the page.
// The first call starts the runtime.
func (r *Runtime) Navigate(hash string) {
	r.t.Helper()
	if !r.started {
		r.started = true
		r.Start()
	}
	r.SetHash(hash)
	r.Flush()
}

// HTML returns the application root's markup.
func (r *Runtime) HTML() string {
	return r.Root().InnerHTML()
}

// Query finds an element in the document.
func (r *Runtime) Query(selector string) *dom.Element {
	return r.Document().Query(selector)
}

// ExpectContains asserts that the root markup contains expected.
func (r *Runtime) ExpectContains(expected string) {
	r.t.Helper()
	if html := r.HTML(); !strings.Contains(html, expected) {
		r.t.Errorf("expected page to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that the root markup does not contain unexpected.
func (r *Runtime) ExpectNotContains(unexpected string) {
	r.t.Helper()
	if html := r.HTML(); strings.Contains(html, unexpected) {
		r.t.Errorf("expected page to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectTitle asserts the document title.
func (r *Runtime) ExpectTitle(expected string) {
	r.t.Helper()
	if got := r.Document().Title(); got != expected {
		r.t.Errorf("expected title %q, got %q", expected, got)
	}
}

// ExpectElement asserts that selector matches an element.
func (r *Runtime) ExpectElement(selector string) *dom.Element {
	r.t.Helper()
	el := r.Query(selector)
	if el == nil {
		r.t.Errorf("expected an element matching %q, got:\n%s", selector, truncate(r.Document().String(), 500))
	}
	return el
}

// ExpectMounted asserts how many live widgets there are.
func (r *Runtime) ExpectMounted(n int) {
	r.t.Helper()
	if got := r.Widgets().Mounted(); got != n {
		r.t.Errorf("expected %d mounted widgets, got %d", n, got)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
