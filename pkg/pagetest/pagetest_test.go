package pagetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/hashpage"
	"github.com/vango-dev/hashpage/pkg/dom"
	"github.com/vango-dev/hashpage/pkg/route"
	"github.com/vango-dev/hashpage/pkg/widget"
)

func TestSite_Navigate(t *testing.T) {
	site := NewSite(t).
		WithPage("index", `<template>start</template>`).
		WithPage("home", `<title>Home</title><template><h1>Hi</h1></template>`)

	rt := site.Open(hashpage.Options{Version: "2"})
	rt.Navigate("/home")

	rt.ExpectTitle("Home")
	rt.ExpectContains("<h1>Hi</h1>")
	rt.ExpectNotContains("start")
	assert.ElementsMatch(t, []string{"page/index.html?v=2", "page/home.html?v=2"}, site.Fetched())
}

func TestSite_Widgets(t *testing.T) {
	site := NewSite(t).
		WithPage("home", `<template><p auto-widget="card">text</p></template><script use-widget="ui.card"></script>`).
		WithWidget("ui.card", `<template><b><slot></slot></b></template>`)

	rt := site.Open(hashpage.Options{})
	rt.Navigate("/home")

	el := rt.ExpectElement("[auto-widget=card]")
	require.NotNil(t, el)
	assert.Equal(t, "<b>text</b>", el.InnerHTML())
	rt.ExpectMounted(0)
}

func TestSite_PageDir(t *testing.T) {
	site := NewSite(t).WithPageDir("/views/").WithPage("a", `<template>a</template>`)
	rt := site.Open(hashpage.Options{})
	rt.Navigate("/a")
	rt.ExpectContains("a")
	assert.Equal(t, "views", rt.Options().Pages)
}

func TestRuntime_Do(t *testing.T) {
	site := NewSite(t).
		WithPage("a", `<template>a</template><script></script>`).
		WithPage("b", `<template>b</template>`)
	rt := site.Open(hashpage.Options{})

	var unloads int
	rt.RegisterPage("/a", func(s *hashpage.PageScope) {
		s.Runtime().On(hashpage.EventUnload, func(route.Info) { unloads++ })
	})
	rt.Navigate("/a")
	rt.Do(func(rt *hashpage.Runtime) { rt.Navigate("/b", nil, "") })

	rt.ExpectContains("b")
	assert.Equal(t, 1, unloads)

	rt.DefineWidget("x", "<i>x</i>", func(*dom.Element, widget.Params) widget.Handler { return struct{}{} })
	rt.Do(func(rt *hashpage.Runtime) { rt.Widget(rt.Root(), "x", nil) })
	rt.ExpectMounted(1)
}
