package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJar_SetGetDelete(t *testing.T) {
	j, err := New("http://localhost:8080/")
	require.NoError(t, err)

	j.Set("theme", "dark", 0)
	j.Set("lang", "en", time.Hour)

	v, ok := j.Get("theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
	assert.Equal(t, "lang=en; theme=dark", j.String())
	assert.Equal(t, map[string]string{"lang": "en", "theme": "dark"}, j.All())

	j.Delete("theme")
	_, ok = j.Get("theme")
	assert.False(t, ok)
}

func TestJar_Expired(t *testing.T) {
	j, err := New("http://example.com/")
	require.NoError(t, err)
	j.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	j.Set("old", "1", time.Hour)
	_, ok := j.Get("old")
	assert.False(t, ok)
}

func TestJar_SharedWithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			w.Header().Set("X-Sid", c.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: "server", Value: "yes", Path: "/"})
	}))
	defer srv.Close()

	j, err := New(srv.URL + "/")
	require.NoError(t, err)
	j.Set("sid", "abc", 0)

	client := &http.Client{Jar: j.HTTPJar()}
	resp, err := client.Get(srv.URL + "/page/home.html")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "abc", resp.Header.Get("X-Sid"))
	v, ok := j.Get("server")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
}

func TestNew_InvalidOrigin(t *testing.T) {
	_, err := New("no-scheme")
	assert.Error(t, err)
	_, err = New("://bad")
	assert.Error(t, err)
}
