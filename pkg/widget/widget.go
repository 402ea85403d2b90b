// Package widget loads widget definitions and manages widget instances.
//
// A widget is a fragment file (see package fragment) whose template becomes
// the markup of every element the widget is mounted on. Its behaviour comes
// from a Go module registered by name:
//
//	reg.RegisterModule("ui.card", func(s *widget.DefineScope) {
//		s.DefineWidget(func(el *dom.Element, p widget.Params) widget.Handler {
//			return &card{el: el, title: p["title"]}
//		})
//	})
//
// The file selects the module with <script module="...">; without the
// attribute the widget's origin is used.
//
// The Registry fetches each origin once and loads dependency lists strictly
// in order. The Manager mounts definitions onto elements, projects the
// element's original children into the first <slot>, and restores them when
// the instance is disposed.
//
// Neither type is safe for concurrent use. Both expect to be driven from the
// runtime's task loop.
package widget

import (
	"context"
	"errors"

	"github.com/vango-dev/hashpage/pkg/dom"
)

// Params are the string parameters passed to an initializer. Auto-mounted
// widgets receive their data-* attributes with the prefix stripped.
type Params map[string]string

// Handler is whatever an initializer returns. The Manager looks for the
// optional Creator and Unloader interfaces on it.
type Handler any

// Creator is implemented by handlers that want a call right after mounting.
type Creator interface {
	Created()
}

// Unloader is implemented by handlers that want a call before disposal.
type Unloader interface {
	Unload()
}

// Initializer builds the handler for one mounted instance.
type Initializer func(el *dom.Element, params Params) Handler

// Definition is a loaded widget.
type Definition struct {
	// HTML is the widget's template markup.
	HTML string

	// Initializer is nil when the widget's module never called DefineWidget.
	Initializer Initializer
}

// Module runs once when a widget file is defined.
type Module func(*DefineScope)

// ErrDefineOutsideScript is returned by DefineScope.DefineWidget once the
// module that received the scope has returned.
var ErrDefineOutsideScript = errors.New("widget: DefineWidget called outside module execution")

// Async runs work off the caller's goroutine and later calls then on it.
// The zero value used by NewRegistry runs both inline.
type Async func(ctx context.Context, work func(context.Context) (string, error), then func(string, error))

func syncAsync(ctx context.Context, work func(context.Context) (string, error), then func(string, error)) {
	then(work(ctx))
}
