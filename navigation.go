package hashpage

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/hashpage/internal/errors"
	"github.com/vango-dev/hashpage/internal/views"
	"github.com/vango-dev/hashpage/pkg/dom"
	"github.com/vango-dev/hashpage/pkg/fragment"
)

var errInvalidFragment = errors.New("H022")

// navigation carries one render through its fetch and widget loads.
type navigation struct {
	ctx   context.Context
	gen   uint64
	span  trace.Span
	start time.Time
	page  bool
}

func (n *navigation) end(err error) {
	if err != nil {
		n.span.RecordError(err)
		n.span.SetStatus(codes.Error, err.Error())
	}
	n.span.End()
}

// =============================================================================
// Location
// =============================================================================

// setLocation moves to hash. notify is set for changes made by the program,
// which a connected client has to mirror. An unchanged hash does nothing.
func (r *Runtime) setLocation(hash string, replace, notify bool) {
	hash = strings.TrimPrefix(hash, "#")
	if hash == r.hash {
		return
	}
	if !replace {
		r.history = append(r.history, r.hash)
	}
	r.hash = hash
	if notify && r.observer != nil {
		r.observer.LocationChanged(hash, replace)
	}
	if r.started {
		r.renderPage()
	}
}

// back pops the history. It reports false when there is nowhere to go.
func (r *Runtime) back() bool {
	if len(r.history) == 0 {
		return false
	}
	prev := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	r.hash = prev
	if r.observer != nil {
		r.observer.LocationChanged(prev, true)
	}
	if r.started {
		r.renderPage()
	}
	return true
}

// =============================================================================
// Page navigation
// =============================================================================

// renderPage reacts to the current hash. A new path replaces the page;
// the same path with a different query or sub-hash fires the change event.
func (r *Runtime) renderPage() {
	info := r.routeInfo()
	if r.prevPath != "" && info.Path == r.prevPath {
		r.metrics.Navigation("change")
		if fn := r.events[EventChange]; fn != nil {
			fn(info)
		}
		return
	}
	r.prevPath = info.Path
	r.metrics.Navigation("page")

	if fn := r.events[EventUnload]; fn != nil {
		delete(r.events, EventUnload)
		fn(info)
	}
	delete(r.events, EventLoad)
	delete(r.events, EventChange)

	nav := r.beginNavigation(info.Path)
	r.replaceBlock(nav, r.appRoot, info.Path, false, func() {
		if fn := r.events[EventLoad]; fn != nil {
			fn(info)
		}
	})
}

// beginNavigation starts a new generation. Fetches of the previous one are
// canceled and anything they complete with is ignored.
func (r *Runtime) beginNavigation(path string) *navigation {
	r.gen++
	if r.navCancel != nil {
		r.navCancel()
	}
	r.navCtx, r.navCancel = context.WithCancel(r.ctx)

	ctx, span := r.tracer.Start(r.navCtx, "hashpage.navigate",
		trace.WithAttributes(
			attribute.String("hashpage.path", path),
			attribute.Int64("hashpage.generation", int64(r.gen)),
		),
	)
	return &navigation{ctx: ctx, gen: r.gen, span: span, start: r.clock(), page: true}
}

// blockNavigation ties a partial render to the current generation, so it is
// dropped if the page changes before it completes.
func (r *Runtime) blockNavigation(view string) *navigation {
	ctx, span := r.tracer.Start(r.navCtx, "hashpage.render",
		trace.WithAttributes(attribute.String("hashpage.view", view)),
	)
	return &navigation{ctx: ctx, gen: r.gen, span: span, start: r.clock()}
}

// =============================================================================
// Rendering
// =============================================================================

func normalizeView(view string) string {
	if !strings.HasPrefix(view, "/") {
		view = "/" + view
	}
	if strings.HasSuffix(view, "/") {
		view += "index"
	}
	return view
}

// replaceBlock renders view into el, from the cache when possible. A page
// that cannot be fetched falls back to the not-found view once.
func (r *Runtime) replaceBlock(nav *navigation, el *dom.Element, view string, fellBack bool, done func()) {
	view = normalizeView(view)

	if markup, ok := r.cache.Read(nav.ctx, view); ok {
		if desc, valid := fragment.Parse(markup); valid {
			nav.span.SetAttributes(attribute.Bool("hashpage.cached", true))
			r.replaceContent(nav, el, view, desc, done)
			return
		}
		r.cache.Evict(nav.ctx, view)
	}

	url := r.opts.Pages + view + ".html" + r.opts.versionQuery()
	started := r.clock()
	r.loop.async(nav.ctx, func(ctx context.Context) (string, error) {
		return r.fetcher.Fetch(ctx, url)
	}, func(markup string, err error) {
		if !r.current(nav.gen) {
			r.logger.Debug("dropping stale render", "view", view, "generation", nav.gen)
			nav.end(context.Canceled)
			return
		}
		r.metrics.Fetch("page", err, r.clock().Sub(started))

		if err != nil {
			if nf := r.opts.NotFound; nf != "" && !fellBack && normalizeView(nf) != view {
				r.logger.Debug("page not found, rendering fallback", "view", view, "fallback", nf, "error", err)
				r.replaceBlock(nav, el, nf, true, done)
				return
			}
			r.logger.Warn("page not found", "view", view, "error", err)
			if nav.page {
				r.doc.SetTitle("404 Not Found")
			}
			r.writeMessage(el, views.String(views.NotFound(view)))
			r.metrics.RenderFailure("not_found")
			nav.end(err)
			return
		}

		desc, valid := fragment.Parse(markup)
		if !valid {
			r.logger.Warn("page has no template", "view", view)
			if nav.page {
				r.doc.SetTitle("404 Not Found")
			}
			r.writeMessage(el, views.String(views.RenderError(view)))
			r.metrics.RenderFailure("invalid")
			nav.end(errInvalidFragment)
			return
		}

		r.cache.Write(r.ctx, view, markup)
		r.replaceContent(nav, el, view, desc, done)
	})
}

// replaceContent swaps el's content for desc. Widgets inside el are disposed
// first. done runs after the script's widgets are loaded, the page module
// has run and auto widgets are mounted.
func (r *Runtime) replaceContent(nav *navigation, el *dom.Element, view string, desc *fragment.Descriptor, done func()) {
	r.widgets.DisposeWithin(el)
	if err := el.SetInnerHTML(desc.TemplateHTML); err != nil {
		r.logger.Warn("template did not parse", "view", view, "error", err)
	}
	if desc.Style != nil {
		el.Prepend(desc.Style)
	}
	if desc.HasTitle {
		r.doc.SetTitle(desc.Title)
	}

	finish := func() {
		r.widgets.AutoMount(el)
		if done != nil {
			done()
		}
		if nav.page {
			r.metrics.ObserveNavigation(r.clock().Sub(nav.start))
		}
		nav.end(nil)
	}

	script := desc.Script
	if script == nil {
		finish()
		return
	}
	run := func() {
		el.Append(script.Element().Node())
		r.runPage(el, view, script)
		finish()
	}
	uses := script.Uses()
	if len(uses) == 0 {
		run()
		return
	}
	r.registry.Load(nav.ctx, uses, func() {
		if !r.current(nav.gen) {
			nav.end(context.Canceled)
			return
		}
		run()
	})
}

func (r *Runtime) writeMessage(el *dom.Element, markup string) {
	r.widgets.DisposeWithin(el)
	if err := el.SetInnerHTML(markup); err != nil {
		r.logger.Error("writing message", "error", err)
	}
}

// runPage runs the page module named by the script's module attribute, or
// by the view path when the attribute is absent.
func (r *Runtime) runPage(el *dom.Element, view string, script *fragment.Script) {
	name := script.Module()
	if name == "" {
		name = view
	}
	m, ok := r.pages[name]
	if !ok {
		if strings.TrimSpace(script.Text) != "" {
			r.logger.Warn("script has no registered page module", "view", view, "module", name)
		}
		return
	}
	m(&PageScope{r: r, el: el, view: view, script: script, route: r.routeInfo()})
}
