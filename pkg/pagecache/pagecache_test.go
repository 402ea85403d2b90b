package pagecache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/hashpage/pkg/kvstore"
	"github.com/vango-dev/hashpage/pkg/metrics"
	"github.com/vango-dev/hashpage/pkg/storage"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newCache(t *testing.T, cfg Config) (*Cache, *kvstore.MemoryStore, *fakeClock) {
	t.Helper()
	backend := kvstore.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	if cfg.Clock == nil {
		cfg.Clock = clock.Now
	}
	if cfg.Pages == "" {
		cfg.Pages = "page"
	}
	return New(storage.New(backend, "app", "/", nil), cfg), backend, clock
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, backend, _ := newCache(t, Config{Version: "1.0", TTL: time.Minute})

	c.Write(ctx, "/home", "<template>Hi</template>")
	html, ok := c.Read(ctx, "/home")
	require.True(t, ok)
	assert.Equal(t, "<template>Hi</template>", html)

	_, ok, err := backend.Get(ctx, "app@/$cache#/home@page")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, backend, clock := newCache(t, Config{Version: "1", TTL: 10 * time.Second})

	c.Write(ctx, "/a", "x")
	clock.Advance(9 * time.Second)
	_, ok := c.Read(ctx, "/a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Read(ctx, "/a")
	assert.False(t, ok, "entry at its expiry instant is stale")
	assert.Equal(t, 0, backend.Len(), "stale entry is evicted on read")
}

func TestCache_VersionMismatch(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryStore()
	keyed := storage.New(backend, "", "/", nil)

	New(keyed, Config{Pages: "page", Version: "1"}).Write(ctx, "/a", "old")

	c := New(keyed, Config{Pages: "page", Version: "2"})
	_, ok := c.Read(ctx, "/a")
	assert.False(t, ok)
	assert.Equal(t, 0, backend.Len())
}

func TestCache_Debug(t *testing.T) {
	ctx := context.Background()
	c, backend, _ := newCache(t, Config{Debug: true})

	c.Write(ctx, "/a", "x")
	assert.Equal(t, 0, backend.Len())
	_, ok := c.Read(ctx, "/a")
	assert.False(t, ok)
}

func TestCache_CorruptEntryEvicted(t *testing.T) {
	ctx := context.Background()
	c, backend, _ := newCache(t, Config{})

	require.NoError(t, backend.Set(ctx, "app@/$cache#/a@page", "{{{"))
	_, ok := c.Read(ctx, "/a")
	assert.False(t, ok)
	assert.Equal(t, 0, backend.Len())
}

func TestCache_EmptyVersionMatchesEmpty(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCache(t, Config{})

	c.Write(ctx, "widget$ui.card", "w")
	html, ok := c.Read(ctx, "widget$ui.card")
	require.True(t, ok)
	assert.Equal(t, "w", html)
	assert.Equal(t, "cache#widget$ui.card@page", c.Key("widget$ui.card"))
}

func TestCache_EntriesAndPeek(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryStore()
	keyed := storage.New(backend, "", "/", nil)
	c := New(keyed, Config{Pages: "page", Version: "1"})
	other := New(keyed, Config{Pages: "docs", Version: "1"})

	c.Write(ctx, "/a", "a")
	c.Write(ctx, "/b", "b")
	other.Write(ctx, "/c", "c")

	keys, err := c.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cache#/a@page", "cache#/b@page"}, keys)

	e, ok := c.Peek(ctx, keys[0])
	require.True(t, ok)
	assert.Equal(t, "a", e.HTML)
	assert.True(t, c.Valid(e))

	c.Evict(ctx, "/a")
	keys, err = c.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cache#/b@page"}, keys)
}

func TestCache_ViewAndPurge(t *testing.T) {
	ctx := context.Background()
	keyed := storage.New(kvstore.NewMemoryStore(), "", "/", nil)
	c := New(keyed, Config{Pages: "page"})
	other := New(keyed, Config{Pages: "docs"})

	c.Write(ctx, "/a", "a")
	c.Write(ctx, "widget$ui.card", "w")
	other.Write(ctx, "/c", "c")

	keys, err := c.Entries(ctx)
	require.NoError(t, err)
	var views []string
	for _, k := range keys {
		views = append(views, c.View(k))
	}
	assert.Equal(t, []string{"/a", "widget$ui.card"}, views)

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err = c.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, ok := other.Read(ctx, "/c")
	assert.True(t, ok)
}

func TestCache_Metrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	c, _, clock := newCache(t, Config{Metrics: m, TTL: time.Second})

	c.Read(ctx, "/a")
	c.Write(ctx, "/a", "x")
	c.Read(ctx, "/a")
	clock.Advance(time.Hour)
	c.Read(ctx, "/a")

	count, err := testutil.GatherAndCount(reg, "hashpage_cache_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
