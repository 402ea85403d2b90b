package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/hashpage/internal/config"
	herrors "github.com/vango-dev/hashpage/internal/errors"
	"github.com/vango-dev/hashpage/pkg/kvstore"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var he *herrors.Error
	require.True(t, errors.As(err, &he), "error %v", err)
	assert.Equal(t, code, he.Code)
}

// initSite runs init in a temp dir and loads the resulting config.
func initSite(t *testing.T) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, runInit(dir, false))

	cfg, err := config.Load(config.NewViper(), filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	cfg.Source = dir
	return dir, cfg
}

func render(t *testing.T, cfg *config.Config, hash string, opts renderOptions) string {
	t.Helper()
	if opts.timeout == 0 {
		opts.timeout = 5 * time.Second
	}
	var out bytes.Buffer
	require.NoError(t, runRender(context.Background(), &out, cfg, quietLogger(), hash, opts))
	return out.String()
}

func TestInitThenRender(t *testing.T) {
	_, cfg := initSite(t)

	assert.Contains(t, render(t, cfg, "", renderOptions{}), `<h1 class="hero">It works</h1>`)
	assert.Contains(t, render(t, cfg, "#/missing", renderOptions{}), "<h1>Not Found</h1>")
}

func TestInit_RefusesExistingConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, runInit(dir, false))

	requireCode(t, runInit(dir, false), "H005")
	assert.NoError(t, runInit(dir, true))
}

func TestRender_Layout(t *testing.T) {
	dir, cfg := initSite(t)
	cfg.El = "#app"
	layout := filepath.Join(dir, "layout.html")
	require.NoError(t, os.WriteFile(layout, []byte(`<header>nav</header><main id="app"></main>`), 0o644))

	out := render(t, cfg, "/", renderOptions{layout: layout, full: true})
	assert.Contains(t, out, "<header>nav</header>")
	assert.Contains(t, out, `<main id="app"><style>`)
	assert.Contains(t, out, "<title>Home</title>")
}

func TestRender_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := config.New()
	cfg.Source = srv.URL

	err := runRender(context.Background(), io.Discard, cfg, quietLogger(), "/", renderOptions{timeout: 50 * time.Millisecond})
	requireCode(t, err, "H050")
}

func TestCache_ListAndClear(t *testing.T) {
	dir, cfg := initSite(t)
	cfg.Store = "sqlite:" + filepath.Join(dir, "cache.db")
	ctx := context.Background()

	render(t, cfg, "/", renderOptions{})

	var out bytes.Buffer
	require.NoError(t, listCache(ctx, &out, cfg, quietLogger()))
	assert.Contains(t, out.String(), "/index")
	assert.Contains(t, out.String(), "valid")

	require.NoError(t, clearCache(ctx, cfg, quietLogger(), nil))

	out.Reset()
	require.NoError(t, listCache(ctx, &out, cfg, quietLogger()))
	assert.NotContains(t, out.String(), "/index")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, setting := range []string{
		"memory",
		"badger",
		"badger:" + filepath.Join(dir, "badger"),
		"sqlite:" + filepath.Join(dir, "kv.db"),
	} {
		st, err := openStore(ctx, setting, quietLogger())
		require.NoError(t, err, setting)
		require.NoError(t, st.Set(ctx, "k", "v"))
		v, ok, err := st.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", v)
		require.NoError(t, st.Close())
	}

	_, err := openStore(ctx, "redis:localhost", quietLogger())
	requireCode(t, err, "H003")
}

func TestOpenSource_Unsupported(t *testing.T) {
	_, err := openSource(context.Background(), "ftp://example.com/site", 0)
	requireCode(t, err, "H004")
}

func TestSourceDir(t *testing.T) {
	dir, ok := sourceDir("site/pages")
	assert.True(t, ok)
	assert.Equal(t, filepath.Clean("site/pages"), dir)

	dir, ok = sourceDir("file:///srv/site")
	assert.True(t, ok)
	assert.Equal(t, filepath.Clean("/srv/site"), dir)

	_, ok = sourceDir("https://example.com/site")
	assert.False(t, ok)
}

func TestServer_Routes(t *testing.T) {
	dir, cfg := initSite(t)
	source, err := openSource(context.Background(), dir, 0)
	require.NoError(t, err)

	s := newServer(cfg, quietLogger(), kvstore.NewMemoryStore(), source, `<main id="app"></main>`)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()
	defer s.bridge.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `<main id="app"></main>`)
	assert.Contains(t, body, cfg.Serve.Bridge)

	code, body = get("/page/index.html")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "It works")

	code, _ = get("/hashpage.toml")
	assert.Equal(t, http.StatusNotFound, code)

	// The request counter is updated after the response is written.
	assert.Eventually(t, func() bool {
		code, body = get("/metrics")
		return code == http.StatusOK &&
			strings.Contains(body, `hashpage_http_requests_total{code="200",method="GET",route="/"}`)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServer_StaticPrefixes(t *testing.T) {
	cfg := config.New()
	s := &server{cfg: cfg}
	assert.Equal(t, []string{"page"}, s.staticPrefixes())

	cfg.Widgets = "widgets"
	assert.Equal(t, []string{"page", "widgets"}, s.staticPrefixes())

	cfg.Widgets = "https://cdn.example.com/w"
	assert.Equal(t, []string{"page"}, s.staticPrefixes())
}

func TestVersion_Short(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--short"})
	require.NoError(t, cmd.Execute())

	v, _, _ := buildInfo()
	assert.Equal(t, v+"\n", out.String())
}
