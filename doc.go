// Package hashpage is a single-page-application runtime driven by the
// location hash.
//
// A Runtime owns an HTML document. When the hash changes it fetches the
// fragment file for the new path, renders its template into the
// application root, loads the widgets the page declares and mounts every
// element marked with auto-widget:
//
//	rt, err := hashpage.New(hashpage.Options{Pages: "page", Version: "3"},
//	    hashpage.WithFetcher(fetch.NewDir("./site")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rt.RegisterPage("/home", func(s *hashpage.PageScope) {
//	    s.Runtime().On(hashpage.EventLoad, func(route.Info) { ... })
//	})
//	rt.Start()
//	rt.SetHash("/home")
//	rt.Flush(ctx)
//
// # Threading
//
// A Runtime runs on one logical thread. Tasks are executed one at a time by
// Run (long-lived) or Flush (until idle). Fetches happen on goroutines and
// post their completions back. Post and SetHash may be called from any
// goroutine; everything else belongs on the loop, which is where page
// modules, widget modules, event handlers and widget handlers already run.
//
// # Navigation
//
// Every page navigation starts a new generation and cancels the previous
// one. Completions that arrive for an older generation are dropped, so a
// slow page can never overwrite a newer one.
package hashpage
