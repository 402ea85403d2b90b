// Package fragment turns fetched page and widget files into descriptors.
//
// A fragment file is ordinary HTML with one <template> holding the body, and
// optionally a <script>, a <style> and a <title>:
//
//	<title>Home</title>
//	<style>.hero { color: teal }</style>
//	<template><h1 class="hero">Hi</h1></template>
//	<script use-widget="ui.card, ui.badge as pill" module="home"></script>
//
// Parsing happens on a detached tree, so nothing in a fragment can reach the
// live document until the runtime decides to insert it.
package fragment

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/hashpage/pkg/dom"
)

const (
	// AttrUseWidget lists widgets a script depends on, comma separated.
	AttrUseWidget = "use-widget"

	// AttrModule names the Go module that runs for a script.
	AttrModule = "module"
)

// Descriptor is a parsed fragment.
type Descriptor struct {
	// TemplateHTML is the inner markup of the first <template>.
	TemplateHTML string

	// Script is the first <script>, if any.
	Script *Script

	// Style is the first <style> node, detached from the parse tree.
	Style *html.Node

	// Title is the text of the first <title>. HasTitle tells an empty title
	// apart from a missing one.
	Title    string
	HasTitle bool
}

// Script is an embedded script block.
type Script struct {
	Text  string
	Attrs []html.Attribute
}

// Attr returns the named attribute value or "".
func (s *Script) Attr(name string) string {
	for _, a := range s.Attrs {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// Uses returns the widget references declared by the use-widget attribute.
func (s *Script) Uses() []string {
	return SplitList(s.Attr(AttrUseWidget))
}

// Module returns the module attribute.
func (s *Script) Module() string {
	return strings.TrimSpace(s.Attr(AttrModule))
}

// Element builds a <script> element carrying the same attributes and text.
func (s *Script) Element() *dom.Element {
	attrs := make([]html.Attribute, len(s.Attrs))
	copy(attrs, s.Attrs)
	el := dom.CreateElement("script", attrs...)
	if s.Text != "" {
		el.Append(dom.Text(s.Text))
	}
	return el
}

// Parse extracts a descriptor from markup. It returns false when the markup
// has no <template>, which marks the fragment as invalid.
func Parse(markup string) (*Descriptor, bool) {
	nodes, err := dom.ParseFragment(markup, nil)
	if err != nil {
		return nil, false
	}
	root := dom.CreateElement("div")
	root.Append(nodes...)

	tmpl := root.Query("template")
	if tmpl == nil {
		return nil, false
	}

	desc := &Descriptor{TemplateHTML: tmpl.InnerHTML()}
	if s := outsideTemplates(root, "script"); s != nil {
		attrs := make([]html.Attribute, len(s.Node().Attr))
		copy(attrs, s.Node().Attr)
		desc.Script = &Script{Text: s.TextContent(), Attrs: attrs}
	}
	if st := outsideTemplates(root, "style"); st != nil {
		st.ReplaceWith()
		desc.Style = st.Node()
	}
	if t := outsideTemplates(root, "title"); t != nil {
		desc.Title = t.TextContent()
		desc.HasTitle = true
	}
	return desc, true
}

// outsideTemplates finds the first tag element that is not template content.
// Template content is inert in a browser and must not be picked up here.
func outsideTemplates(root *dom.Element, tag string) *dom.Element {
	var walk func(*html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data == tag {
				return c
			}
			if c.Data == "template" {
				continue
			}
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return dom.Wrap(walk(root.Node()))
}

// SplitList splits a comma separated attribute value, trimming blanks and
// dropping empty entries.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
