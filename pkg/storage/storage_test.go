package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/hashpage/pkg/kvstore"
)

type prefs struct {
	Theme string `json:"theme"`
	Size  int    `json:"size"`
}

func TestKeyed_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryStore()
	s := New(backend, "", "/", nil)

	require.NoError(t, s.Save(ctx, "prefs", prefs{Theme: "dark", Size: 2}))

	raw, ok, err := backend.Get(ctx, "hashpage@/$prefs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"theme":"dark","size":2}`, raw)

	var got prefs
	require.True(t, s.Load(ctx, "prefs", &got))
	assert.Equal(t, prefs{Theme: "dark", Size: 2}, got)

	require.NoError(t, s.Remove(ctx, "prefs"))
	assert.False(t, s.Load(ctx, "prefs", &got))
}

func TestKeyed_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryStore()
	s := New(backend, "app", "/docs/", nil)

	require.NoError(t, backend.Set(ctx, "app@/docs/$broken", "{not json"))

	var v prefs
	assert.False(t, s.Load(ctx, "broken", &v))
	assert.Equal(t, map[string]any{}, s.Get(ctx, "broken"))
	assert.Equal(t, map[string]any{}, s.Get(ctx, "missing"))
}

func TestKeyed_ScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryStore()
	a := New(backend, "app", "/a/", nil)
	b := New(backend, "app", "/b/", nil)

	require.NoError(t, a.Save(ctx, "x", map[string]any{"n": 1}))
	assert.Equal(t, map[string]any{"n": float64(1)}, a.Get(ctx, "x"))
	assert.Equal(t, map[string]any{}, b.Get(ctx, "x"))

	keys, err := a.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, keys)

	keys, err = b.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyed_EmptyKeyIgnored(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryStore()
	s := New(backend, "app", "/", nil)

	require.NoError(t, s.Save(ctx, "", 1))
	require.NoError(t, s.Remove(ctx, ""))
	assert.Equal(t, 0, backend.Len())

	var v int
	assert.False(t, s.Load(ctx, "", &v))
}

func TestKeyed_ClosedBackend(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryStore()
	s := New(backend, "app", "/", nil)
	require.NoError(t, backend.Close())

	var v int
	assert.False(t, s.Load(ctx, "k", &v))
	assert.ErrorIs(t, s.Save(ctx, "k", 1), kvstore.ErrClosed)
}
