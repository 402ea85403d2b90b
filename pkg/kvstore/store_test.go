package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "app@local$theme", `"dark"`))
	require.NoError(t, s.Set(ctx, "app@local$lang", `"en"`))
	require.NoError(t, s.Set(ctx, "app@session$token", `"t"`))
	require.NoError(t, s.Set(ctx, "app_local$x", `1`))

	v, ok, err := s.Get(ctx, "app@local$theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"dark"`, v)

	require.NoError(t, s.Set(ctx, "app@local$theme", `"light"`))
	v, _, err = s.Get(ctx, "app@local$theme")
	require.NoError(t, err)
	assert.Equal(t, `"light"`, v)

	keys, err := s.Keys(ctx, "app@local$")
	require.NoError(t, err)
	assert.Equal(t, []string{"app@local$lang", "app@local$theme"}, keys)

	// "_" and "%" are literal in prefixes.
	keys, err = s.Keys(ctx, "app_")
	require.NoError(t, err)
	assert.Equal(t, []string{"app_local$x"}, keys)

	require.NoError(t, s.Delete(ctx, "app@local$lang"))
	require.NoError(t, s.Delete(ctx, "never-set"))
	_, ok, err = s.Get(ctx, "app@local$lang")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Close())
	_, _, err = s.Get(ctx, "app@local$theme")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(ctx, "k", "v"), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_Len(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(context.Background(), "a", "1"))
	require.NoError(t, s.Set(context.Background(), "b", "2"))
	assert.Equal(t, 2, s.Len())
}

func TestBadgerStore_InMemory(t *testing.T) {
	s, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestBadgerStore_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadger(BadgerConfig{Dir: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Close())

	s, err = OpenBadger(BadgerConfig{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestOpenBadger_RequiresDir(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestSQLiteStore_CustomTable(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "kv.db"), WithTable("pages_kv"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "a", "1"))
	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages_kv`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, "%", likePrefix(""))
	assert.Equal(t, "a!_b!%c!!%", likePrefix("a_b%c!"))
}
