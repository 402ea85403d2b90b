package dom

import (
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is an element node in a document tree.
type Element struct {
	node *html.Node
}

// Wrap returns the Element for n, or nil if n is nil.
func Wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{node: n}
}

// CreateElement returns a new detached element.
func CreateElement(tag string, attrs ...html.Attribute) *Element {
	return &Element{node: &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}}
}

// Text returns a new detached text node.
func Text(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

// Node returns the underlying node.
func (e *Element) Node() *html.Node {
	return e.node
}

// Tag returns the element's tag name.
func (e *Element) Tag() string {
	return e.node.Data
}

// Is reports whether e and other wrap the same node.
func (e *Element) Is(other *Element) bool {
	return other != nil && e.node == other.node
}

// Parent returns the parent element, or nil if e is detached or the parent is
// not an element.
func (e *Element) Parent() *Element {
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return Wrap(p)
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets the named attribute, replacing any existing value.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes the named attribute if present.
func (e *Element) RemoveAttr(name string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
}

// DataAttrs returns the element's data-* attributes keyed by name with the
// "data-" prefix removed.
func (e *Element) DataAttrs() map[string]string {
	out := make(map[string]string)
	for _, a := range e.node.Attr {
		if name, ok := strings.CutPrefix(a.Key, "data-"); ok {
			out[name] = a.Val
		}
	}
	return out
}

// HasChildNodes reports whether the element has any child node, text included.
func (e *Element) HasChildNodes() bool {
	return e.node.FirstChild != nil
}

// ChildNodes returns a snapshot of the element's children in order.
func (e *Element) ChildNodes() []*html.Node {
	var out []*html.Node
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Descendants returns every element below e in document order.
func (e *Element) Descendants() []*Element {
	var out []*Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, Wrap(c))
			}
			walk(c)
		}
	}
	walk(e.node)
	return out
}

// Contains reports whether n is e or one of its descendants.
func (e *Element) Contains(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

// InnerHTML serializes the element's children.
func (e *Element) InnerHTML() string {
	return renderNodes(e.ChildNodes())
}

// OuterHTML serializes the element itself.
func (e *Element) OuterHTML() string {
	return renderNodes([]*html.Node{e.node})
}

// TextContent returns the concatenated text of all descendant text nodes.
func (e *Element) TextContent() string {
	return textContent(e.node)
}

// SetInnerHTML replaces the element's children with the parsed markup. The
// markup is parsed with the element as its context, as a browser would.
func (e *Element) SetInnerHTML(markup string) error {
	nodes, err := ParseFragment(markup, e.node)
	if err != nil {
		return err
	}
	e.Empty()
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// Empty detaches all children. Detached nodes can be re-inserted later.
func (e *Element) Empty() {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
}

// Append moves nodes to the end of the element, detaching them from any
// previous parent first.
func (e *Element) Append(nodes ...*html.Node) {
	for _, n := range nodes {
		detach(n)
		e.node.AppendChild(n)
	}
}

// Prepend moves n to the front of the element.
func (e *Element) Prepend(n *html.Node) {
	detach(n)
	if e.node.FirstChild == nil {
		e.node.AppendChild(n)
		return
	}
	e.node.InsertBefore(n, e.node.FirstChild)
}

// ReplaceWith puts nodes where e is and detaches e. A detached element is
// left unchanged.
func (e *Element) ReplaceWith(nodes ...*html.Node) {
	parent := e.node.Parent
	if parent == nil {
		return
	}
	for _, n := range nodes {
		if n == e.node {
			continue
		}
		detach(n)
		parent.InsertBefore(n, e.node)
	}
	parent.RemoveChild(e.node)
}

// ReplaceWithHTML replaces e with the nodes parsed from markup in the context
// of e's parent.
func (e *Element) ReplaceWithHTML(markup string) error {
	parent := e.node.Parent
	if parent == nil {
		return nil
	}
	ctx := parent
	if ctx.Type != html.ElementNode {
		ctx = nil
	}
	nodes, err := ParseFragment(markup, ctx)
	if err != nil {
		return err
	}
	e.ReplaceWith(nodes...)
	return nil
}

// Query returns the first descendant matching the CSS selector, or nil when
// nothing matches or the selector is invalid.
func (e *Element) Query(selector string) *Element {
	sel, err := compile(selector)
	if err != nil {
		return nil
	}
	return Wrap(cascadia.Query(e.node, sel))
}

// QueryAll returns every descendant matching the CSS selector in document
// order. The result is a snapshot; later mutations do not affect it.
func (e *Element) QueryAll(selector string) []*Element {
	sel, err := compile(selector)
	if err != nil {
		return nil
	}
	nodes := cascadia.QueryAll(e.node, sel)
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Wrap(n))
	}
	return out
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

var selectors sync.Map // string -> cascadia.Sel

func compile(selector string) (cascadia.Sel, error) {
	if s, ok := selectors.Load(selector); ok {
		return s.(cascadia.Sel), nil
	}
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil, err
	}
	selectors.Store(selector, sel)
	return sel, nil
}
