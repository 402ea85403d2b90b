package widget

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/hashpage/internal/views"
	"github.com/vango-dev/hashpage/pkg/dom"
	"github.com/vango-dev/hashpage/pkg/fetch"
	"github.com/vango-dev/hashpage/pkg/fragment"
	"github.com/vango-dev/hashpage/pkg/metrics"
	"github.com/vango-dev/hashpage/pkg/pagecache"
)

// StyleAttr tags injected widget styles with their origin.
const StyleAttr = "widget-style"

// RegistryConfig wires a Registry to its collaborators.
type RegistryConfig struct {
	// WidgetDir is the URL prefix of local widget files.
	WidgetDir string

	// Remote is the URL prefix of "@" widgets.
	Remote string

	// VersionQuery is appended to every fetch URL, e.g. "?v=3".
	VersionQuery string

	Fetcher fetch.Fetcher

	// Cache may be nil, which disables caching.
	Cache *pagecache.Cache

	// Document receives injected styles in its body.
	Document *dom.Document

	// Root returns the element failure messages are written into.
	Root func() *dom.Element

	// Dispose releases widgets mounted under an element before a failure
	// message replaces its content.
	Dispose func(el *dom.Element)

	// Async schedules fetches. Nil runs them inline.
	Async Async

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

type chainKey struct{}

// definingChain returns the origins whose use-widget lists ctx is loading,
// outermost first.
func definingChain(ctx context.Context) []string {
	chain, _ := ctx.Value(chainKey{}).([]string)
	return chain
}

func withDefining(ctx context.Context, origin string) context.Context {
	chain := definingChain(ctx)
	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, chainKey{}, append(next, origin))
}

type waiter struct {
	ctx  context.Context
	done func()
}

// Registry resolves widget references and holds loaded definitions.
type Registry struct {
	cfg     RegistryConfig
	base    context.Context
	defs    map[string]*Definition
	modules map[string]Module
	pending map[string][]waiter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewRegistry creates a registry. Fetches run under base, so a navigation
// that goes stale does not abort a definition other pages may need.
func NewRegistry(base context.Context, cfg RegistryConfig) *Registry {
	if cfg.Async == nil {
		cfg.Async = syncAsync
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("hashpage")
	}
	return &Registry{
		cfg:     cfg,
		base:    base,
		defs:    make(map[string]*Definition),
		modules: make(map[string]Module),
		pending: make(map[string][]waiter),
		logger:  cfg.Logger,
		tracer:  cfg.Tracer,
	}
}

// RegisterModule makes m available to widget files naming it. Registering a
// name again replaces the module for widgets defined afterwards.
func (r *Registry) RegisterModule(name string, m Module) {
	r.modules[name] = m
}

// Define registers a widget directly, without fetching a file. It is how
// widgets built into the program are provided.
func (r *Registry) Define(ref string, html string, init Initializer) bool {
	parsed, ok := ParseRef(ref)
	if !ok {
		return false
	}
	def := &Definition{HTML: html, Initializer: init}
	r.defs[parsed.Origin] = def
	if _, exists := r.defs[parsed.ID()]; !exists {
		r.defs[parsed.ID()] = def
	}
	return true
}

// Definition looks a widget up by origin or id.
func (r *Registry) Definition(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Defined reports whether name resolves to a definition.
func (r *Registry) Defined(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Load loads refs one after another and calls done after the last one
// completes. A widget whose file fails to load never completes, so done is
// not called in that case; the failure is rendered into the root instead.
func (r *Registry) Load(ctx context.Context, refs []string, done func()) {
	var step func(i int)
	step = func(i int) {
		if i >= len(refs) {
			if done != nil {
				done()
			}
			return
		}
		r.loadOne(ctx, refs[i], func() { step(i + 1) })
	}
	step(0)
}

func (r *Registry) loadOne(ctx context.Context, name string, done func()) {
	ref, ok := ParseRef(name)
	if !ok {
		done()
		return
	}
	// A definition is stored before its dependencies load. Only dependency
	// loads may take it early, which lets widgets depend on each other;
	// everyone else waits for the module to run.
	waiters, inFlight := r.pending[ref.Origin]
	if _, ok := r.defs[ref.Origin]; ok && (!inFlight || len(definingChain(ctx)) > 0) {
		done()
		return
	}
	if inFlight {
		r.pending[ref.Origin] = append(waiters, waiter{ctx: ctx, done: done})
		return
	}
	r.pending[ref.Origin] = []waiter{{ctx: ctx, done: done}}

	if r.cfg.Cache != nil {
		if html, hit := r.cfg.Cache.Read(ctx, ref.CacheKey()); hit {
			if desc, valid := fragment.Parse(html); valid {
				r.logger.Debug("widget cache hit", "origin", ref.Origin)
				r.define(ctx, ref, desc)
				return
			}
			r.cfg.Cache.Evict(ctx, ref.CacheKey())
		}
	}

	url := ref.Path(r.cfg.WidgetDir, r.cfg.Remote) + r.cfg.VersionQuery
	spanCtx, span := r.tracer.Start(r.base, "hashpage.widget.fetch",
		trace.WithAttributes(attribute.String("widget.origin", ref.Origin), attribute.String("widget.url", url)))
	start := time.Now()

	r.cfg.Async(spanCtx, func(ctx context.Context) (string, error) {
		return r.cfg.Fetcher.Fetch(ctx, url)
	}, func(html string, err error) {
		defer span.End()
		r.cfg.Metrics.Fetch("widget", err, time.Since(start))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			r.logger.Warn("widget fetch failed", "widget", name, "url", url, "error", err)
			r.cfg.Metrics.WidgetLoad("failed")
			r.fail(ref, views.String(views.WidgetFailed(name)), "widget_failed")
			return
		}
		desc, valid := fragment.Parse(html)
		if !valid {
			span.SetStatus(codes.Error, "invalid fragment")
			r.logger.Warn("widget file has no template", "widget", name, "url", url)
			r.cfg.Metrics.WidgetLoad("invalid")
			r.fail(ref, views.String(views.WidgetInvalid(name)), "widget_invalid")
			return
		}
		r.cfg.Metrics.WidgetLoad("ok")
		if r.cfg.Cache != nil {
			r.cfg.Cache.Write(r.base, ref.CacheKey(), html)
		}
		r.define(ctx, ref, desc)
	})
}

// fail drops the waiters for ref, along with those of every widget that was
// waiting on it as a dependency. Such widgets stay defined without a module.
// The message is only rendered when some waiter still belongs to a live
// navigation.
func (r *Registry) fail(ref Ref, message, reason string) {
	waiters := r.pending[ref.Origin]
	delete(r.pending, ref.Origin)
	for _, w := range waiters {
		for _, origin := range definingChain(w.ctx) {
			delete(r.pending, origin)
		}
	}

	for _, w := range waiters {
		if w.ctx.Err() == nil {
			if root := r.root(); root != nil {
				if r.cfg.Dispose != nil {
					r.cfg.Dispose(root)
				}
				if err := root.SetInnerHTML(message); err != nil {
					r.logger.Error("render widget failure", "error", err)
				}
			}
			r.cfg.Metrics.RenderFailure(reason)
			return
		}
	}
}

func (r *Registry) root() *dom.Element {
	if r.cfg.Root != nil {
		if el := r.cfg.Root(); el != nil {
			return el
		}
	}
	if r.cfg.Document != nil {
		return r.cfg.Document.Body()
	}
	return nil
}

func (r *Registry) define(ctx context.Context, ref Ref, desc *fragment.Descriptor) {
	def := &Definition{HTML: desc.TemplateHTML}
	r.defs[ref.Origin] = def
	if _, exists := r.defs[ref.ID()]; !exists {
		r.defs[ref.ID()] = def
	}

	if desc.Style != nil {
		r.injectStyle(ref.Origin, dom.Wrap(desc.Style))
	}

	complete := func() {
		waiters := r.pending[ref.Origin]
		delete(r.pending, ref.Origin)
		for _, w := range waiters {
			w.done()
		}
	}

	if desc.Script == nil {
		complete()
		return
	}
	run := func() {
		r.runModule(ref.Origin, def, desc.Script)
		complete()
	}
	if uses := desc.Script.Uses(); len(uses) > 0 {
		r.Load(withDefining(ctx, ref.Origin), uses, run)
		return
	}
	run()
}

func (r *Registry) injectStyle(origin string, style *dom.Element) {
	if r.cfg.Document == nil {
		return
	}
	body := r.cfg.Document.Body()
	if body == nil {
		return
	}
	for _, existing := range body.QueryAll("style[" + StyleAttr + "]") {
		if v, _ := existing.Attr(StyleAttr); v == origin {
			return
		}
	}
	style.SetAttr(StyleAttr, origin)
	body.Prepend(style.Node())
}

func (r *Registry) runModule(origin string, def *Definition, script *fragment.Script) {
	name := script.Module()
	if name == "" {
		name = origin
	}
	m, ok := r.modules[name]
	if !ok {
		if script.Text != "" {
			r.logger.Warn("widget script has no registered module", "widget", origin, "module", name)
		}
		return
	}

	scope := &DefineScope{origin: origin, script: script, active: true}
	m(scope)
	scope.active = false
	if scope.init != nil {
		def.Initializer = scope.init
	}
}
