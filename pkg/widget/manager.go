package widget

import (
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/vango-dev/hashpage/pkg/dom"
	"github.com/vango-dev/hashpage/pkg/metrics"
)

// AutoAttr marks an element for automatic mounting. Its value is the widget
// name.
const AutoAttr = "auto-widget"

// Instance describes the widget on an element.
type Instance struct {
	ID      string
	Name    string
	Handler Handler
	// Live is false when the widget has no initializer. The element still
	// holds preserved content in that case.
	Live bool
}

type record struct {
	Instance
	nodes  []*html.Node
	markup string
}

// Manager mounts and disposes widget instances.
type Manager struct {
	reg     *Registry
	records map[*html.Node]*record
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewManager creates a manager that mounts definitions from reg.
func NewManager(reg *Registry, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		reg:     reg,
		records: make(map[*html.Node]*record),
		logger:  logger,
		metrics: m,
	}
}

// Mount renders the widget called name into el and runs its initializer.
// It reports false, changing nothing, when name is not defined. A widget
// without an initializer is rendered and returns a nil handler.
//
// The element's current children are kept and projected into the first
// <slot> of the widget markup. Mounting over an existing instance disposes
// it first, so the children captured are the element's original ones.
func (m *Manager) Mount(el *dom.Element, name string, params Params) (Handler, bool) {
	def, ok := m.reg.Definition(name)
	if !ok || el == nil {
		return nil, false
	}
	if params == nil {
		params = Params{}
	}

	node := el.Node()
	if _, exists := m.records[node]; exists {
		m.Dispose(el)
	}

	rec := &record{Instance: Instance{ID: uuid.NewString(), Name: name}}
	if el.HasChildNodes() {
		rec.nodes = el.ChildNodes()
	} else {
		rec.markup = el.InnerHTML()
	}
	m.records[node] = rec

	if err := el.SetInnerHTML(def.HTML); err != nil {
		m.logger.Error("render widget markup", "widget", name, "error", err)
	}
	m.AutoMount(el)

	if slot := el.Query("slot"); slot != nil {
		if rec.nodes != nil {
			slot.ReplaceWith(rec.nodes...)
		} else if err := slot.ReplaceWithHTML(rec.markup); err != nil {
			m.logger.Error("project widget content", "widget", name, "error", err)
		}
	}

	if def.Initializer == nil {
		return nil, true
	}
	handler := def.Initializer(el, params)
	rec.Handler = handler
	rec.Live = true
	m.metrics.WidgetMounted()
	if c, ok := handler.(Creator); ok {
		c.Created()
	}
	return handler, true
}

// AutoMount mounts every descendant of el that carries the auto-widget
// attribute, passing its data-* attributes as params. Elements that an
// earlier mount moved out of el are skipped.
func (m *Manager) AutoMount(el *dom.Element) {
	for _, target := range el.QueryAll("[" + AutoAttr + "]") {
		if !el.Contains(target.Node()) {
			continue
		}
		name, _ := target.Attr(AutoAttr)
		m.Mount(target, name, target.DataAttrs())
	}
}

// Dispose tears down the widget on el: the handler's Unload runs, every
// nested instance is disposed, and the element's original content comes
// back. Disposing an element without a widget does nothing.
func (m *Manager) Dispose(el *dom.Element) {
	if el == nil {
		return
	}
	node := el.Node()
	rec, ok := m.records[node]
	if !ok {
		return
	}

	if rec.Live {
		if u, ok := rec.Handler.(Unloader); ok {
			u.Unload()
		}
		rec.Live = false
		rec.Handler = nil
		m.metrics.WidgetDisposed()
	}
	m.DisposeWithin(el)

	delete(m.records, node)
	el.Empty()
	if rec.nodes != nil {
		el.Append(rec.nodes...)
	} else if err := el.SetInnerHTML(rec.markup); err != nil {
		m.logger.Error("restore widget content", "widget", rec.Name, "error", err)
	}
}

// DisposeWithin disposes every instance below el, in document order.
func (m *Manager) DisposeWithin(el *dom.Element) {
	if len(m.records) == 0 {
		return
	}
	for _, d := range el.Descendants() {
		if _, ok := m.records[d.Node()]; ok {
			m.Dispose(d)
		}
	}
}

// Instance returns the instance on el.
func (m *Manager) Instance(el *dom.Element) (Instance, bool) {
	if el == nil {
		return Instance{}, false
	}
	rec, ok := m.records[el.Node()]
	if !ok {
		return Instance{}, false
	}
	return rec.Instance, true
}

// Handler returns the live handler on el, or nil.
func (m *Manager) Handler(el *dom.Element) Handler {
	inst, ok := m.Instance(el)
	if !ok || !inst.Live {
		return nil
	}
	return inst.Handler
}

// Mounted returns the number of live instances.
func (m *Manager) Mounted() int {
	n := 0
	for _, rec := range m.records {
		if rec.Live {
			n++
		}
	}
	return n
}

// Records returns the number of elements holding a widget, live or not.
func (m *Manager) Records() int {
	return len(m.records)
}
