package bridge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vango-dev/hashpage"
	"github.com/vango-dev/hashpage/pkg/fetch"
	"github.com/vango-dev/hashpage/pkg/route"
)

func siteFactory(t *testing.T, files map[string]string, setup func(*hashpage.Runtime)) Factory {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	return func(ctx context.Context, obs hashpage.Observer) (*hashpage.Runtime, error) {
		rt, err := hashpage.New(hashpage.Options{}, hashpage.WithFetcher(fetch.NewFS(fs)), hashpage.WithObserver(obs))
		if err != nil {
			return nil, err
		}
		if setup != nil {
			setup(rt)
		}
		return rt, nil
	}
}

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func sendHash(t *testing.T, ws *websocket.Conn, hash string) {
	t.Helper()
	data, err := Encode(Frame{Type: FrameHash, Hash: hash})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, data))
}

func readFrame(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	f, err := Decode(data)
	require.NoError(t, err)
	return f
}

func TestBridge_RendersHash(t *testing.T) {
	srv := New(siteFactory(t, map[string]string{
		"page/home.html": `<title>Home</title><template><h1>Hi</h1></template>`,
	}, nil))
	ws := dial(t, srv)

	sendHash(t, ws, "/home")
	f := readFrame(t, ws)
	assert.Equal(t, FrameRender, f.Type)
	assert.Equal(t, "<h1>Hi</h1>", f.HTML)
	assert.Equal(t, "Home", f.Title)
	assert.Equal(t, 1, srv.Count())
}

func TestBridge_FollowsHashChanges(t *testing.T) {
	srv := New(siteFactory(t, map[string]string{
		"page/a.html": `<template>a</template>`,
		"page/b.html": `<template>b</template>`,
	}, nil))
	ws := dial(t, srv)

	sendHash(t, ws, "/a")
	assert.Equal(t, "a", readFrame(t, ws).HTML)
	sendHash(t, ws, "/b")
	assert.Equal(t, "b", readFrame(t, ws).HTML)
}

func TestBridge_PushesNavigation(t *testing.T) {
	srv := New(siteFactory(t, map[string]string{
		"page/a.html": `<template>a</template><script></script>`,
		"page/b.html": `<template>b</template>`,
	}, func(rt *hashpage.Runtime) {
		rt.RegisterPage("/a", func(s *hashpage.PageScope) {
			s.Runtime().On(hashpage.EventLoad, func(route.Info) {
				s.Runtime().Replace("/b", map[string]string{"from": "a"}, "")
			})
		})
	}))
	ws := dial(t, srv)

	sendHash(t, ws, "/a")
	nav := readFrame(t, ws)
	assert.Equal(t, FrameNavigate, nav.Type)
	assert.Equal(t, "#/b?from=a", nav.Hash)
	assert.True(t, nav.Replace)

	render := readFrame(t, ws)
	assert.Equal(t, FrameRender, render.Type)
	assert.Equal(t, "b", render.HTML)
}

func TestBridge_Reload(t *testing.T) {
	srv := New(siteFactory(t, map[string]string{"page/a.html": `<template>a</template>`}, nil))
	ws := dial(t, srv)

	sendHash(t, ws, "/a")
	readFrame(t, ws)

	srv.Reload()
	assert.Equal(t, FrameReload, readFrame(t, ws).Type)
}

func TestBridge_IgnoresBadFrames(t *testing.T) {
	srv := New(siteFactory(t, map[string]string{"page/a.html": `<template>a</template>`}, nil))
	ws := dial(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{0xc1}))
	data, err := Encode(Frame{Type: "click"})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, data))

	sendHash(t, ws, "/a")
	assert.Equal(t, "a", readFrame(t, ws).HTML)
}

func TestBridge_FactoryError(t *testing.T) {
	srv := New(func(context.Context, hashpage.Observer) (*hashpage.Runtime, error) {
		return nil, errors.New("no capacity")
	})
	ws := dial(t, srv)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr))
	assert.Equal(t, 0, srv.Count())
}

func TestBridge_ClientCloseReleasesConnection(t *testing.T) {
	srv := New(siteFactory(t, map[string]string{"page/a.html": `<template>a</template>`}, nil))
	ws := dial(t, srv)

	sendHash(t, ws, "/a")
	readFrame(t, ws)
	require.NoError(t, ws.Close())

	assert.Eventually(t, func() bool { return srv.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestBridge_CloseRefusesNewConnections(t *testing.T) {
	srv := New(siteFactory(t, map[string]string{"page/a.html": `<template>a</template>`}, nil))
	ws := dial(t, srv)
	sendHash(t, ws, "/a")
	readFrame(t, ws)

	srv.Close()
	assert.Eventually(t, func() bool { return srv.Count() == 0 }, 5*time.Second, 10*time.Millisecond)

	ts := httptest.NewServer(srv)
	defer ts.Close()
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// A second Close does not block.
	srv.Close()
}

func TestEncode_RenderKeepsEmptyFields(t *testing.T) {
	data, err := Encode(Frame{Type: FrameRender})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &m))
	assert.Equal(t, map[string]any{"t": "render", "html": "", "title": ""}, m)

	data, err = Encode(Frame{Type: FrameReload})
	require.NoError(t, err)
	m = nil
	require.NoError(t, msgpack.Unmarshal(data, &m))
	assert.Equal(t, map[string]any{"t": "reload"}, m)
}
