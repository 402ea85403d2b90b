package hashpage

import (
	"github.com/vango-dev/hashpage/pkg/cookie"
	"github.com/vango-dev/hashpage/pkg/dom"
	"github.com/vango-dev/hashpage/pkg/route"
	"github.com/vango-dev/hashpage/pkg/storage"
	"github.com/vango-dev/hashpage/pkg/widget"
)

// =============================================================================
// Location
// =============================================================================

// Route returns the parsed current location.
func (r *Runtime) Route() route.Info {
	return r.routeInfo()
}

// Hash returns the current location hash without its "#".
func (r *Runtime) Hash() string {
	return r.hash
}

// URL builds a location hash for path, query and sub-hash.
func (r *Runtime) URL(path string, query map[string]string, hash string) string {
	return route.Format(path, query, hash)
}

// Navigate moves to path, adding a history entry.
func (r *Runtime) Navigate(path string, query map[string]string, hash string) {
	r.setLocation(route.Format(path, query, hash), false, true)
}

// Replace moves to path without adding a history entry.
func (r *Runtime) Replace(path string, query map[string]string, hash string) {
	r.setLocation(route.Format(path, query, hash), true, true)
}

// Back returns to the previous location. It reports false when there is no
// history.
func (r *Runtime) Back() bool {
	return r.back()
}

// =============================================================================
// State
// =============================================================================

// Data returns the in-memory bag shared across pages.
func (r *Runtime) Data() *Data {
	return r.data
}

// Storage returns the persistent keyed store.
func (r *Runtime) Storage() *storage.Keyed {
	return r.persist
}

// Session returns the keyed store that lives as long as the session store.
func (r *Runtime) Session() *storage.Keyed {
	return r.sess
}

// Cookies returns the cookie jar.
func (r *Runtime) Cookies() *cookie.Jar {
	return r.cookies
}

// =============================================================================
// Rendering and widgets
// =============================================================================

// Render renders view into el. done runs once the view's widgets are loaded
// and its module ran. The render is abandoned if the page changes first.
func (r *Runtime) Render(el *dom.Element, view string, done func()) {
	if el == nil {
		return
	}
	r.replaceBlock(r.blockNavigation(view), el, view, false, done)
}

// RegisterPage provides the module run for pages naming it.
func (r *Runtime) RegisterPage(name string, m PageModule) {
	r.pages[name] = m
}

// RegisterWidget provides the module run for widget files naming it.
func (r *Runtime) RegisterWidget(name string, m widget.Module) {
	r.registry.RegisterModule(name, m)
}

// DefineWidget registers a widget built into the program.
func (r *Runtime) DefineWidget(ref, html string, init widget.Initializer) bool {
	return r.registry.Define(ref, html, init)
}

// LoadWidgets loads refs and calls done once all of them are defined.
func (r *Runtime) LoadWidgets(refs []string, done func()) {
	r.registry.Load(r.navCtx, refs, done)
}

// Widget mounts the widget called name on el and returns its handler. An
// empty name returns the handler already mounted on el.
func (r *Runtime) Widget(el *dom.Element, name string, params widget.Params) widget.Handler {
	if name == "" {
		return r.WidgetOf(el)
	}
	h, _ := r.widgets.Mount(el, name, params)
	return h
}

// WidgetOf returns the handler mounted on el, or nil.
func (r *Runtime) WidgetOf(el *dom.Element) widget.Handler {
	if el == nil {
		return nil
	}
	return r.widgets.Handler(el)
}

// DisposeWidget unmounts the widget on el and restores its content.
func (r *Runtime) DisposeWidget(el *dom.Element) {
	if el == nil {
		return
	}
	r.widgets.Dispose(el)
}

// Widgets returns the widget manager.
func (r *Runtime) Widgets() *widget.Manager {
	return r.widgets
}
