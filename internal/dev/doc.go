// Package dev keeps a running server in step with the fragment files on disk.
//
// A Watcher reports changed files under the source directory. An
// Invalidator turns those paths into page cache keys, evicts them from the
// shared store and asks connected browsers to reload:
//
//	w, err := dev.NewWatcher(dev.WatcherConfig{Root: "./site"})
//	inv := &dev.Invalidator{Cache: cache, Pages: "page", Widgets: "page/widget", Reload: bridge.Reload}
//	w.OnChange(func(changes []dev.Change) { inv.Handle(ctx, changes) })
//	go w.Start(ctx)
package dev
