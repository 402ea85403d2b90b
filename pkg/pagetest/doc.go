// Package pagetest provides helpers for testing hashpage sites.
//
// A Site holds fragment files in memory and drives a runtime over them:
//
//	func TestHome(t *testing.T) {
//	    site := pagetest.NewSite(t).
//	        WithPage("home", `<title>Home</title><template><h1>Hi</h1></template>`).
//	        WithWidget("ui.card", `<template><div class="card"><slot></slot></div></template>`)
//
//	    rt := site.Open(hashpage.Options{})
//	    rt.Navigate("/home")
//	    rt.ExpectTitle("Home")
//	    rt.ExpectContains("<h1>Hi</h1>")
//	}
//
// Every navigation is flushed before it returns, so assertions always see
// the settled document.
package pagetest
