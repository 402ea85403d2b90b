package main

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/vango-dev/hashpage/internal/config"
	herrors "github.com/vango-dev/hashpage/internal/errors"
	"github.com/vango-dev/hashpage/pkg/fetch"
	"github.com/vango-dev/hashpage/pkg/kvstore"
	"github.com/vango-dev/hashpage/pkg/pagecache"
	"github.com/vango-dev/hashpage/pkg/storage"
)

// openStore opens the cache backend named by a store setting.
func openStore(ctx context.Context, setting string, logger *slog.Logger) (kvstore.Store, error) {
	kind, arg, err := config.ParseStore(setting)
	if err != nil {
		return nil, err
	}

	var st kvstore.Store
	switch kind {
	case config.StoreMemory:
		return kvstore.NewMemoryStore(), nil
	case config.StoreBadger:
		st, err = kvstore.OpenBadger(kvstore.BadgerConfig{
			Dir:      arg,
			InMemory: arg == "",
			Logger:   logger,
		})
	case config.StoreSQLite:
		st, err = kvstore.OpenSQLite(ctx, arg)
	}
	if err != nil {
		return nil, herrors.New("H010").WithDetail(setting).Wrap(err)
	}
	logger.Debug("store opened", "kind", kind, "path", arg)
	return st, nil
}

// openSource opens the fragment source. rate caps upstream HTTP requests per
// second; zero leaves them unlimited.
func openSource(ctx context.Context, source string, rate float64) (fetch.Fetcher, error) {
	if u, err := url.Parse(source); err == nil && len(u.Scheme) > 1 {
		switch u.Scheme {
		case "file", "http", "https", "s3", "gs":
		default:
			return nil, herrors.New("H004").WithDetailf("source %q", source)
		}
	}

	var opts []fetch.HTTPOption
	if rate > 0 {
		opts = append(opts, fetch.WithRateLimit(rate, max(1, int(rate))))
	}
	f, err := fetch.Open(ctx, source, opts...)
	if err != nil {
		return nil, herrors.New("H020").WithDetail(source).Wrap(err)
	}
	return f, nil
}

// sourceDir returns the local directory of a directory or file:// source.
func sourceDir(source string) (string, bool) {
	u, err := url.Parse(source)
	switch {
	case err != nil || len(u.Scheme) <= 1:
		return filepath.Clean(source), true
	case u.Scheme == "file":
		return filepath.Clean(u.Path), true
	}
	return "", false
}

// pageCache builds a cache view over store with the same keys runtimes use.
func pageCache(cfg *config.Config, store kvstore.Store, logger *slog.Logger) *pagecache.Cache {
	opts := cfg.Options()
	return pagecache.New(storage.New(store, opts.App, opts.Scope, logger), pagecache.Config{
		Pages:   strings.TrimRight(opts.Pages, "/"),
		Version: opts.Version,
		Logger:  logger,
	})
}
