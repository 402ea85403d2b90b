package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const blankDocument = `<!DOCTYPE html><html><head><title></title></head><body></body></html>`

// Document is a parsed HTML document.
type Document struct {
	root *html.Node
}

// NewDocument returns an empty document with a head, a title and a body.
func NewDocument() *Document {
	doc, err := ParseString(blankDocument)
	if err != nil {
		panic("dom: blank document failed to parse: " + err.Error())
	}
	return doc
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// ParseString parses a full HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseFragment parses markup as the children of context. The result is
// detached from any tree, so parsing never touches a live document. A nil
// context parses as if inside a <div>.
func ParseFragment(markup string, context *html.Node) ([]*html.Node, error) {
	if context == nil {
		context = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	}
	return html.ParseFragment(strings.NewReader(markup), context)
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Head returns the <head> element.
func (d *Document) Head() *Element {
	return d.first(atom.Head)
}

// Body returns the <body> element.
func (d *Document) Body() *Element {
	return d.first(atom.Body)
}

// Title returns the text of the document's <title>.
func (d *Document) Title() string {
	if t := d.first(atom.Title); t != nil {
		return t.TextContent()
	}
	return ""
}

// SetTitle replaces the document title, creating the <title> element when the
// document has none.
func (d *Document) SetTitle(title string) {
	t := d.first(atom.Title)
	if t == nil {
		t = CreateElement("title")
		if head := d.Head(); head != nil {
			head.Append(t.Node())
		}
	}
	t.Empty()
	t.Append(Text(title))
}

// Query returns the first element matching selector, or nil.
func (d *Document) Query(selector string) *Element {
	sel, err := compile(selector)
	if err != nil {
		return nil
	}
	return Wrap(queryFirst(d.root, sel))
}

// QueryAll returns all elements matching selector in document order.
func (d *Document) QueryAll(selector string) []*Element {
	return Wrap(d.root).QueryAll(selector)
}

// Select is Query with selector validation.
func (d *Document) Select(selector string) (*Element, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	return Wrap(queryFirst(d.root, sel)), nil
}

// String serializes the whole document.
func (d *Document) String() string {
	return renderNodes([]*html.Node{d.root})
}

func (d *Document) first(a atom.Atom) *Element {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.root)
	return Wrap(found)
}

func queryFirst(root *html.Node, sel interface{ Match(*html.Node) bool }) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && sel.Match(c) {
			return c
		}
		if n := queryFirst(c, sel); n != nil {
			return n
		}
	}
	return nil
}

func renderNodes(nodes []*html.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		// Render only fails on writer errors; strings.Builder never returns one.
		_ = html.Render(&b, n)
	}
	return b.String()
}
