package hashpage

import "github.com/vango-dev/hashpage/pkg/route"

// Event names a page lifecycle event.
type Event string

const (
	// EventLoad fires once the page's widgets are loaded and its module ran.
	EventLoad Event = "load"

	// EventUnload fires before the page is replaced.
	EventUnload Event = "unload"

	// EventChange fires when only the query or sub-hash changes.
	EventChange Event = "change"
)

// EventFunc handles a lifecycle event. It receives the route being
// navigated to.
type EventFunc func(route.Info)

// On registers fn for event, replacing any earlier handler. Handlers are
// cleared when the page changes, so pages register them from their module.
// Unknown events are ignored.
func (r *Runtime) On(event Event, fn EventFunc) {
	switch event {
	case EventLoad, EventUnload, EventChange:
	default:
		r.logger.Warn("ignoring unknown event", "event", string(event))
		return
	}
	if fn == nil {
		delete(r.events, event)
		return
	}
	r.events[event] = fn
}
