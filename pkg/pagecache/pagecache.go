// Package pagecache caches fetched fragment markup in keyed storage.
//
// An entry is usable only while its version matches the configured version
// and its expiry lies in the future. Anything else, including entries that
// fail to decode, is evicted on read.
package pagecache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vango-dev/hashpage/pkg/metrics"
	"github.com/vango-dev/hashpage/pkg/storage"
)

// DefaultTTL is the lifetime of a cache entry when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Entry is the stored representation of a cached fragment.
type Entry struct {
	Version string `json:"v"`
	Expire  int64  `json:"expire"` // unix milliseconds
	HTML    string `json:"html"`
}

// Config configures a Cache.
type Config struct {
	// Pages is the page directory, part of every key.
	Pages string

	// Version must match an entry's version for the entry to be used.
	Version string

	// TTL is how long written entries stay valid (default: DefaultTTL).
	TTL time.Duration

	// Debug disables the cache: reads always miss and writes are dropped.
	Debug bool

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Cache is a version- and TTL-aware fragment cache.
type Cache struct {
	store   *storage.Keyed
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a cache over store.
func New(store *storage.Keyed, cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, cfg: cfg, logger: logger, metrics: cfg.Metrics}
}

// Key returns the storage key for a view.
func (c *Cache) Key(view string) string {
	return "cache#" + view + "@" + c.cfg.Pages
}

// Read returns the cached markup for view.
func (c *Cache) Read(ctx context.Context, view string) (string, bool) {
	if c.cfg.Debug {
		return "", false
	}

	var e Entry
	if !c.store.Load(ctx, c.Key(view), &e) {
		// Missing and undecodable entries look the same; remove whatever
		// is there so a corrupt entry does not linger.
		c.evict(ctx, view)
		c.metrics.CacheMiss()
		return "", false
	}
	if e.Version != c.cfg.Version || e.Expire <= c.cfg.Clock().UnixMilli() {
		c.logger.Debug("page cache entry stale", "view", view, "version", e.Version)
		c.evict(ctx, view)
		c.metrics.CacheEvict()
		return "", false
	}

	c.logger.Debug("page cache hit", "view", view)
	c.metrics.CacheHit()
	return e.HTML, true
}

// Write stores markup for view. Failures are logged and dropped.
func (c *Cache) Write(ctx context.Context, view, html string) {
	if c.cfg.Debug {
		return
	}
	e := Entry{
		Version: c.cfg.Version,
		Expire:  c.cfg.Clock().Add(c.cfg.TTL).UnixMilli(),
		HTML:    html,
	}
	if err := c.store.Save(ctx, c.Key(view), e); err != nil {
		c.logger.Warn("page cache write failed", "view", view, "error", err)
	}
}

// Evict removes the entry for view.
func (c *Cache) Evict(ctx context.Context, view string) {
	c.evict(ctx, view)
}

// Entries lists the keys of all cached views under the configured page
// directory, including stale ones.
func (c *Cache) Entries(ctx context.Context) ([]string, error) {
	keys, err := c.store.Keys(ctx, "cache#")
	if err != nil {
		return nil, err
	}
	suffix := "@" + c.cfg.Pages
	out := keys[:0]
	for _, k := range keys {
		if strings.HasSuffix(k, suffix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// View returns the view a key from Entries belongs to.
func (c *Cache) View(key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, "cache#"), "@"+c.cfg.Pages)
}

// Purge removes every entry under the configured page directory and
// returns how many it removed.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	keys, err := c.Entries(ctx)
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := c.store.Remove(ctx, k); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

// Peek decodes the entry stored under a full storage key without checking
// validity.
func (c *Cache) Peek(ctx context.Context, key string) (Entry, bool) {
	var e Entry
	ok := c.store.Load(ctx, key, &e)
	return e, ok
}

// Valid reports whether e would be served by Read.
func (c *Cache) Valid(e Entry) bool {
	return e.Version == c.cfg.Version && e.Expire > c.cfg.Clock().UnixMilli()
}

func (c *Cache) evict(ctx context.Context, view string) {
	if err := c.store.Remove(ctx, c.Key(view)); err != nil {
		c.logger.Debug("page cache evict failed", "view", view, "error", err)
	}
}
