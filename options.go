package hashpage

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/hashpage/pkg/dom"
	"github.com/vango-dev/hashpage/pkg/fetch"
	"github.com/vango-dev/hashpage/pkg/kvstore"
	"github.com/vango-dev/hashpage/pkg/metrics"
	"github.com/vango-dev/hashpage/pkg/storage"
)

// =============================================================================
// Options
// =============================================================================

// Options configures a Runtime.
type Options struct {
	// Pages is the URL prefix of page fragments.
	// Default: "page".
	Pages string

	// Widgets is the URL prefix of local widget fragments.
	// Default: Pages + "/widget".
	Widgets string

	// Scope namespaces Storage and Session keys.
	// Default: "/".
	Scope string

	// El selects the application root. When empty or unmatched the document
	// body is used.
	El string

	// Debug disables the page cache.
	Debug bool

	// Version is sent as ?v= with every fetch and tags cache entries.
	Version string

	// Expire is the cache lifetime in seconds.
	// Default: 604800 (seven days).
	Expire int

	// NotFound is the view rendered when a page cannot be fetched.
	NotFound string

	// App prefixes storage keys.
	// Default: "hashpage".
	App string

	// Remote is the URL prefix of "@" widgets.
	Remote string

	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultExpire is the default cache lifetime in seconds.
const DefaultExpire = 604800

func (o Options) withDefaults() Options {
	if o.Pages == "" {
		o.Pages = "page"
	}
	o.Pages = strings.TrimRight(o.Pages, "/")
	if o.Widgets == "" {
		o.Widgets = o.Pages + "/widget"
	}
	if o.Scope == "" {
		o.Scope = "/"
	}
	if o.Expire <= 0 {
		o.Expire = DefaultExpire
	}
	if o.App == "" {
		o.App = storage.DefaultApp
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func (o Options) versionQuery() string {
	if o.Version == "" {
		return ""
	}
	return "?v=" + o.Version
}

// =============================================================================
// Functional options
// =============================================================================

// Option customizes a Runtime beyond Options.
type Option func(*settings)

type settings struct {
	fetcher  fetch.Fetcher
	store    kvstore.Store
	session  kvstore.Store
	doc      *dom.Document
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	clock    func() time.Time
	observer Observer
	origin   string
	hash     string
	parent   context.Context
}

// WithFetcher sets the fragment source. Default: the working directory.
func WithFetcher(f fetch.Fetcher) Option {
	return func(s *settings) { s.fetcher = f }
}

// WithStore sets the backend for Storage and the page cache. The caller
// keeps ownership and closes it. Default: an in-memory store.
func WithStore(st kvstore.Store) Option {
	return func(s *settings) { s.store = st }
}

// WithSessionStore sets the backend for Session. Default: an in-memory store.
func WithSessionStore(st kvstore.Store) Option {
	return func(s *settings) { s.session = st }
}

// WithDocument renders into doc instead of a blank document.
func WithDocument(doc *dom.Document) Option {
	return func(s *settings) { s.doc = doc }
}

// WithLogger overrides Options.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithTracer sets the OpenTelemetry tracer. Default: the global provider's
// "hashpage" tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *settings) { s.tracer = t }
}

// WithClock sets the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.clock = now }
}

// WithObserver receives location and render notifications.
func WithObserver(o Observer) Option {
	return func(s *settings) { s.observer = o }
}

// WithOrigin sets the origin cookies are scoped to.
// Default: "http://localhost/".
func WithOrigin(origin string) Option {
	return func(s *settings) { s.origin = origin }
}

// WithContext sets the parent of the runtime's base context. Spans started
// by the runtime become children of any span in ctx. Cancelling ctx stops
// pending fetches the same way Shutdown does.
func WithContext(ctx context.Context) Option {
	return func(s *settings) { s.parent = ctx }
}

// WithHash sets the initial location hash rendered by Start.
func WithHash(hash string) Option {
	return func(s *settings) { s.hash = strings.TrimPrefix(hash, "#") }
}
