package hashpage

import (
	"github.com/vango-dev/hashpage/pkg/dom"
	"github.com/vango-dev/hashpage/pkg/fragment"
	"github.com/vango-dev/hashpage/pkg/route"
)

// PageModule is the Go code behind a page's <script>. It runs after the
// page's widgets are loaded and before auto widgets are mounted.
type PageModule func(*PageScope)

// PageScope is what a page module sees.
type PageScope struct {
	r      *Runtime
	el     *dom.Element
	view   string
	script *fragment.Script
	route  route.Info
}

// Runtime returns the runtime rendering the page.
func (s *PageScope) Runtime() *Runtime { return s.r }

// Element returns the element the page was rendered into.
func (s *PageScope) Element() *dom.Element { return s.el }

// View returns the normalized view path, e.g. "/docs/index".
func (s *PageScope) View() string { return s.view }

// Route returns the route the page was rendered for.
func (s *PageScope) Route() route.Info { return s.route }

// Source returns the text of the page's script element.
func (s *PageScope) Source() string { return s.script.Text }

// Params returns the script element's attributes.
func (s *PageScope) Params() map[string]string {
	out := make(map[string]string, len(s.script.Attrs))
	for _, a := range s.script.Attrs {
		out[a.Key] = a.Val
	}
	return out
}

// Query finds the first element under the page matching selector.
func (s *PageScope) Query(selector string) *dom.Element {
	return s.el.Query(selector)
}
