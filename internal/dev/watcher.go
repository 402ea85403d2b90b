package dev

import (
	"context"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is what happened to a file.
type Op int

const (
	OpWrite Op = iota
	OpRemove
)

// Change is a file that changed, relative to the watched root and using
// forward slashes.
type Change struct {
	Path string
	Op   Op
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Root is the directory to watch, recursively.
	Root string

	// Ignore patterns to skip (names, path segments or globs).
	Ignore []string

	// Debounce is how long a file must be quiet before it is reported.
	Debounce time.Duration

	Logger *slog.Logger
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	".hashpage",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher monitors a directory tree for changes.
type Watcher struct {
	config   WatcherConfig
	fw       *fsnotify.Watcher
	logger   *slog.Logger
	mu       sync.Mutex
	onChange func([]Change)
}

// NewWatcher creates a watcher and registers every directory under Root.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{config: config, fw: fw, logger: config.Logger.With("component", "watcher")}
	if err := w.addTree(config.Root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// OnChange sets the callback for file changes. Changes settled within the
// same debounce tick arrive together, sorted by path.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches until ctx is done, then releases the watcher.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fw.Close()

	pending := make(map[string]pendingChange)
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			w.handle(event, pending)

		case <-ticker.C:
			w.flush(pending, time.Now())

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

type pendingChange struct {
	op   Op
	seen time.Time
}

func (w *Watcher) handle(event fsnotify.Event, pending map[string]pendingChange) {
	if w.shouldIgnore(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create):
		// New directories are not watched until added.
		if err := w.addTree(event.Name); err != nil {
			w.logger.Debug("watch new path", "path", event.Name, "error", err)
		}
		pending[event.Name] = pendingChange{op: OpWrite, seen: time.Now()}
	case event.Has(fsnotify.Write):
		pending[event.Name] = pendingChange{op: OpWrite, seen: time.Now()}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		pending[event.Name] = pendingChange{op: OpRemove, seen: time.Now()}
	}
}

func (w *Watcher) flush(pending map[string]pendingChange, now time.Time) {
	var changes []Change
	for name, p := range pending {
		if now.Sub(p.seen) < w.config.Debounce {
			continue
		}
		delete(pending, name)
		rel, err := filepath.Rel(w.config.Root, name)
		if err != nil {
			continue
		}
		changes = append(changes, Change{Path: filepath.ToSlash(rel), Op: p.op})
	}
	if len(changes) == 0 {
		return
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()
	if callback != nil {
		callback(changes)
	}
}

// addTree watches root and every directory below it. A plain file is
// ignored.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		return w.fw.Add(p)
	})
}

// shouldIgnore reports whether a path below the root matches an ignore
// pattern. A pattern without "/" is tried against every path segment, one
// with "/" against every run of consecutive segments. Segments match with
// path.Match, so globs work at any depth.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	rel := fullPath
	if w.config.Root != "" {
		if r, err := filepath.Rel(w.config.Root, fullPath); err == nil {
			rel = r
		}
	}
	segs := splitPathSegments(filepath.ToSlash(rel))

	for _, pattern := range w.config.Ignore {
		pat := splitPathSegments(strings.TrimSpace(pattern))
		if len(pat) == 0 {
			continue
		}
		for i := 0; i+len(pat) <= len(segs); i++ {
			if segmentsMatch(segs[i:i+len(pat)], pat) {
				return true
			}
		}
	}
	return false
}

func segmentsMatch(segs, pat []string) bool {
	for j := range pat {
		if ok, _ := path.Match(pat[j], segs[j]); !ok {
			return false
		}
	}
	return true
}

func splitPathSegments(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part != "" && part != "." && part != ".." {
			out = append(out, part)
		}
	}
	return out
}
