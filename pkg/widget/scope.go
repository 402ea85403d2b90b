package widget

import (
	"github.com/vango-dev/hashpage/pkg/fragment"
)

// DefineScope is handed to a Module while it runs. DefineWidget is only
// valid until the module returns; keeping the scope and calling it later
// has no effect.
type DefineScope struct {
	origin string
	script *fragment.Script
	active bool
	init   Initializer
}

// DefineWidget registers the initializer for the widget being defined. A
// second call replaces the first.
func (s *DefineScope) DefineWidget(init Initializer) error {
	if !s.active {
		return ErrDefineOutsideScript
	}
	s.init = init
	return nil
}

// Origin is the origin name of the widget being defined.
func (s *DefineScope) Origin() string {
	return s.origin
}

// Source is the text of the widget's <script> element.
func (s *DefineScope) Source() string {
	if s.script == nil {
		return ""
	}
	return s.script.Text
}

// Params returns the attributes of the widget's <script> element.
func (s *DefineScope) Params() map[string]string {
	out := map[string]string{}
	if s.script == nil {
		return out
	}
	for _, a := range s.script.Attrs {
		out[a.Key] = a.Val
	}
	return out
}
