package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPath(t *testing.T) {
	tests := []struct {
		prefix, url, want string
	}{
		{"", "page/home.html?v=1", "page/home.html"},
		{"", "/page/index.html", "page/index.html"},
		{"site", "page/a.html#x", "site/page/a.html"},
		{"site/", "../../etc/passwd", "site/etc/passwd"},
		{"", "page//b/../c.html", "page/c.html"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, objectPath(tt.prefix, tt.url), "prefix=%q url=%q", tt.prefix, tt.url)
	}
}

func TestFSFetcher(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "page/home.html", []byte("<template>Hi</template>"), 0o644))
	f := NewFS(fsys)

	body, err := f.Fetch(context.Background(), "page/home.html?v=2")
	require.NoError(t, err)
	assert.Equal(t, "<template>Hi</template>", body)

	_, err = f.Fetch(context.Background(), "page/missing.html")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSFetcher_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFS(afero.NewMemMapFs()).Fetch(ctx, "a.html")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcher(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/site/page/home.html":
			assert.Equal(t, "3", r.URL.Query().Get("v"))
			io.WriteString(w, "<template>Hi</template>")
		case "/site/page/boom.html":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := NewHTTP(srv.URL+"/site", WithRateLimit(1000, 10))
	require.NoError(t, err)
	ctx := context.Background()

	body, err := f.Fetch(ctx, "page/home.html?v=3")
	require.NoError(t, err)
	assert.Equal(t, "<template>Hi</template>", body)

	_, err = f.Fetch(ctx, "page/nope.html")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.Fetch(ctx, "page/boom.html")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.False(t, errors.Is(err, ErrNotFound))

	body, err = f.Fetch(ctx, srv.URL+"/site/page/home.html?v=3")
	require.NoError(t, err)
	assert.Equal(t, "<template>Hi</template>", body)
	assert.Equal(t, int32(4), hits.Load())
}

func TestHTTPFetcher_MaxBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("x", 64))
	}))
	defer srv.Close()

	f, err := NewHTTP(srv.URL, WithMaxBody(16))
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), "a.html")
	assert.Error(t, err)
}

func TestHTTPFetcher_RelativeWithoutBase(t *testing.T) {
	f, err := NewHTTP("")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), "page/a.html")
	assert.Error(t, err)
}

type fakeS3 struct {
	objects map[string]string
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.keys = append(f.keys, *in.Key)
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Fetcher(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"pages/site/page/home.html": "home"}}
	f := NewS3(client, "pages", "site")

	body, err := f.Fetch(context.Background(), "page/home.html?v=1")
	require.NoError(t, err)
	assert.Equal(t, "home", body)

	_, err = f.Fetch(context.Background(), "page/x.html")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"site/page/home.html", "site/page/x.html"}, client.keys)
}

func TestGCSFetcher(t *testing.T) {
	f := &GCSFetcher{
		bucket: "b",
		prefix: "root",
		open: func(_ context.Context, bucket, object string) (io.ReadCloser, error) {
			if bucket == "b" && object == "root/page/home.html" {
				return io.NopCloser(strings.NewReader("gcs")), nil
			}
			return nil, storage.ErrObjectNotExist
		},
	}

	body, err := f.Fetch(context.Background(), "page/home.html?v=9")
	require.NoError(t, err)
	assert.Equal(t, "gcs", body)

	_, err = f.Fetch(context.Background(), "page/missing.html")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMux(t *testing.T) {
	local := FetcherFunc(func(_ context.Context, url string) (string, error) { return "local:" + url, nil })
	remote := FetcherFunc(func(_ context.Context, url string) (string, error) { return "remote:" + url, nil })
	m := NewMux(local).Handle("HTTPS", remote)
	ctx := context.Background()

	body, err := m.Fetch(ctx, "page/a.html")
	require.NoError(t, err)
	assert.Equal(t, "local:page/a.html", body)

	body, err = m.Fetch(ctx, "https://w.example/ui/card.html")
	require.NoError(t, err)
	assert.Equal(t, "remote:https://w.example/ui/card.html", body)

	_, err = m.Fetch(ctx, "s3://bucket/a.html")
	assert.Error(t, err)
}

func TestOpen_Directory(t *testing.T) {
	dir := t.TempDir()
	osfs := afero.NewOsFs()
	require.NoError(t, osfs.MkdirAll(dir+"/page", 0o755))
	require.NoError(t, afero.WriteFile(osfs, dir+"/page/a.html", []byte("a"), 0o644))

	m, err := Open(context.Background(), dir)
	require.NoError(t, err)
	body, err := m.Fetch(context.Background(), "page/a.html?v=1")
	require.NoError(t, err)
	assert.Equal(t, "a", body)
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open(context.Background(), "ftp://host/dir")
	assert.Error(t, err)
}
