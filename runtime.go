package hashpage

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/hashpage/internal/errors"
	"github.com/vango-dev/hashpage/pkg/cookie"
	"github.com/vango-dev/hashpage/pkg/dom"
	"github.com/vango-dev/hashpage/pkg/fetch"
	"github.com/vango-dev/hashpage/pkg/kvstore"
	"github.com/vango-dev/hashpage/pkg/metrics"
	"github.com/vango-dev/hashpage/pkg/pagecache"
	"github.com/vango-dev/hashpage/pkg/route"
	"github.com/vango-dev/hashpage/pkg/storage"
	"github.com/vango-dev/hashpage/pkg/widget"
)

// DefaultOrigin is the cookie origin used when none is configured.
const DefaultOrigin = "http://localhost/"

// Observer is notified of changes a client needs to mirror.
type Observer interface {
	// LocationChanged reports a hash change made by the program, as opposed
	// to one reported through SetHash.
	LocationChanged(hash string, replace bool)

	// Rendered is called each time the loop goes idle after running tasks.
	Rendered(root *dom.Element, title string)
}

// =============================================================================
// Runtime
// =============================================================================

// Runtime is the page controller for one document.
type Runtime struct {
	opts     Options
	fetcher  fetch.Fetcher
	doc      *dom.Document
	appRoot  *dom.Element
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	clock    func() time.Time
	observer Observer

	store     kvstore.Store
	ownsStore bool
	session   kvstore.Store
	ownsSess  bool
	persist   *storage.Keyed
	sess      *storage.Keyed
	cache     *pagecache.Cache
	cookies   *cookie.Jar

	registry *widget.Registry
	widgets  *widget.Manager
	pages    map[string]PageModule
	data     *Data

	loop *loop
	ctx  context.Context
	stop context.CancelFunc

	// Navigation state. Only touched on the loop.
	hash      string
	history   []string
	prevPath  string
	started   bool
	gen       uint64
	navCtx    context.Context
	navCancel context.CancelFunc
	events    map[Event]EventFunc
}

// New creates a runtime. It does not render anything until Start.
func New(opts Options, options ...Option) (*Runtime, error) {
	s := &settings{}
	for _, o := range options {
		o(s)
	}
	if s.logger != nil {
		opts.Logger = s.logger
	}
	opts = opts.withDefaults()

	r := &Runtime{
		opts:     opts,
		fetcher:  s.fetcher,
		doc:      s.doc,
		logger:   opts.Logger.With("component", "hashpage"),
		metrics:  s.metrics,
		tracer:   s.tracer,
		clock:    s.clock,
		observer: s.observer,
		store:    s.store,
		session:  s.session,
		pages:    make(map[string]PageModule),
		data:     newData(),
		hash:     s.hash,
		events:   make(map[Event]EventFunc),
	}
	if r.fetcher == nil {
		r.fetcher = fetch.NewFS(afero.NewOsFs())
	}
	if r.doc == nil {
		r.doc = dom.NewDocument()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer("hashpage")
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.store == nil {
		r.store = kvstore.NewMemoryStore()
		r.ownsStore = true
	}
	if r.session == nil {
		r.session = kvstore.NewMemoryStore()
		r.ownsSess = true
	}

	origin := s.origin
	if origin == "" {
		origin = DefaultOrigin
	}
	jar, err := cookie.New(origin)
	if err != nil {
		return nil, errors.New("H002").
			WithDetailf("origin %q", origin).
			Wrap(err)
	}
	r.cookies = jar

	r.appRoot = r.doc.Body()
	if opts.El != "" {
		if el := r.doc.Query(opts.El); el != nil {
			r.appRoot = el
		} else {
			r.logger.Warn("app root not found, using body", "selector", opts.El)
		}
	}

	parent := s.parent
	if parent == nil {
		parent = context.Background()
	}
	r.ctx, r.stop = context.WithCancel(parent)
	r.navCtx = r.ctx
	r.loop = newLoop(r.idle)

	r.persist = storage.New(r.store, opts.App, opts.Scope, r.logger)
	r.sess = storage.New(r.session, opts.App, opts.Scope, r.logger)
	r.cache = pagecache.New(r.persist, pagecache.Config{
		Pages:   opts.Pages,
		Version: opts.Version,
		TTL:     time.Duration(opts.Expire) * time.Second,
		Debug:   opts.Debug,
		Clock:   r.clock,
		Logger:  r.logger,
		Metrics: r.metrics,
	})

	r.registry = widget.NewRegistry(r.ctx, widget.RegistryConfig{
		WidgetDir:    opts.Widgets,
		Remote:       opts.Remote,
		VersionQuery: opts.versionQuery(),
		Fetcher:      r.fetcher,
		Cache:        r.cache,
		Document:     r.doc,
		Root:         func() *dom.Element { return r.appRoot },
		Dispose:      func(el *dom.Element) { r.widgets.DisposeWithin(el) },
		Async:        r.loop.async,
		Logger:       r.logger,
		Metrics:      r.metrics,
		Tracer:       r.tracer,
	})
	r.widgets = widget.NewManager(r.registry, r.logger, r.metrics)
	return r, nil
}

// Start renders the current location. Call it once, then drive the runtime
// with Run or Flush.
func (r *Runtime) Start() {
	r.Post(func() {
		if r.started {
			return
		}
		r.started = true
		r.renderPage()
	})
}

// Run executes tasks until ctx is done. It returns ctx.Err().
func (r *Runtime) Run(ctx context.Context) error {
	return r.loop.run(ctx)
}

// Flush executes tasks until the queue is empty and no fetch is in flight.
// It must not be called while Run is active.
func (r *Runtime) Flush(ctx context.Context) error {
	return r.loop.flush(ctx)
}

// Post queues fn to run on the loop. It is safe for concurrent use.
func (r *Runtime) Post(fn func()) {
	r.loop.post(fn)
}

// SetHash reports a location change made outside the program, such as the
// user editing the address bar. It is safe for concurrent use.
func (r *Runtime) SetHash(hash string) {
	r.Post(func() { r.setLocation(hash, false, false) })
}

// Document returns the document the runtime renders into.
func (r *Runtime) Document() *dom.Document {
	return r.doc
}

// Root returns the application root element.
func (r *Runtime) Root() *dom.Element {
	return r.appRoot
}

// Options returns the effective options.
func (r *Runtime) Options() Options {
	return r.opts
}

// Cache returns the page cache.
func (r *Runtime) Cache() *pagecache.Cache {
	return r.cache
}

// Shutdown disposes mounted widgets, cancels outstanding fetches and closes
// the stores the runtime created. It must run on the loop, or after Run has
// returned. The caller closes stores passed in with WithStore or
// WithSessionStore.
func (r *Runtime) Shutdown() error {
	if fn := r.events[EventUnload]; fn != nil {
		delete(r.events, EventUnload)
		fn(r.Route())
	}
	r.widgets.DisposeWithin(r.appRoot)
	if r.navCancel != nil {
		r.navCancel()
	}
	r.stop()

	var first error
	if r.ownsStore {
		if err := r.store.Close(); err != nil {
			first = err
		}
	}
	if r.ownsSess {
		if err := r.session.Close(); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		return errors.New("H011").WithDetail("closing stores").Wrap(first)
	}
	return nil
}

func (r *Runtime) idle() {
	if r.observer != nil {
		r.observer.Rendered(r.appRoot, r.doc.Title())
	}
}

func (r *Runtime) current(gen uint64) bool {
	return gen == r.gen
}

func (r *Runtime) routeInfo() route.Info {
	return route.Parse(r.hash)
}
