package dev

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vango-dev/hashpage/pkg/pagecache"
)

// Invalidator evicts cached fragments for changed files.
type Invalidator struct {
	Cache *pagecache.Cache

	// Pages and Widgets are the page and widget prefixes, relative to the
	// watched root.
	Pages   string
	Widgets string

	// Reload is called once per batch that evicted something.
	Reload func()

	Logger *slog.Logger
}

// Handle evicts the entries for changes and reports how many it evicted.
func (inv *Invalidator) Handle(ctx context.Context, changes []Change) int {
	logger := inv.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := 0
	for _, c := range changes {
		key, ok := ViewKey(c.Path, inv.Pages, inv.Widgets)
		if !ok {
			continue
		}
		inv.Cache.Evict(ctx, key)
		logger.Info("fragment changed", "path", c.Path, "view", key)
		n++
	}
	if n > 0 && inv.Reload != nil {
		inv.Reload()
	}
	return n
}

// ViewKey maps a fragment file to the cache view it is stored under:
// "page/docs/index.html" is "/docs/index" and "page/widget/ui/card.html" is
// "widget$ui.card". Widget files take precedence when the widget directory
// lies inside the page directory.
func ViewKey(rel, pages, widgets string) (string, bool) {
	if !strings.HasSuffix(rel, ".html") {
		return "", false
	}
	rel = strings.TrimSuffix(strings.TrimPrefix(rel, "/"), ".html")

	if dir := strings.Trim(widgets, "/"); dir != "" {
		if rest, ok := strings.CutPrefix(rel, dir+"/"); ok && rest != "" {
			return "widget$" + strings.ReplaceAll(rest, "/", "."), true
		}
	}
	dir := strings.Trim(pages, "/")
	if dir == "" {
		return "/" + rel, true
	}
	if rest, ok := strings.CutPrefix(rel, dir+"/"); ok && rest != "" {
		return "/" + rest, true
	}
	return "", false
}
