// Package storage namespaces a kvstore.Store per application and scope and
// stores JSON values in it.
//
// Keys are laid out as {app}@{scope}${key}, so two runtimes with different
// scopes can share one backend without seeing each other's values.
package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/vango-dev/hashpage/pkg/kvstore"
)

// DefaultApp is the application name used when none is configured.
const DefaultApp = "hashpage"

// Keyed is a namespaced JSON view over a Store.
type Keyed struct {
	store  kvstore.Store
	prefix string
	logger *slog.Logger
}

// New returns a Keyed accessor. An empty app falls back to DefaultApp.
func New(store kvstore.Store, app, scope string, logger *slog.Logger) *Keyed {
	if app == "" {
		app = DefaultApp
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Keyed{
		store:  store,
		prefix: app + "@" + scope + "$",
		logger: logger,
	}
}

// Key returns the backend key for key.
func (k *Keyed) Key(key string) string {
	return k.prefix + key
}

// Load decodes the value stored under key into v. It reports false when the
// key is missing, empty, unreadable or not valid JSON for v.
func (k *Keyed) Load(ctx context.Context, key string, v any) bool {
	if key == "" {
		return false
	}
	raw, ok, err := k.store.Get(ctx, k.Key(key))
	if err != nil {
		k.logger.Warn("storage read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		k.logger.Debug("storage entry is not valid json", "key", key, "error", err)
		return false
	}
	return true
}

// Get returns the value under key as a generic JSON object. Missing or
// corrupt entries yield an empty map.
func (k *Keyed) Get(ctx context.Context, key string) map[string]any {
	m := map[string]any{}
	if !k.Load(ctx, key, &m) || m == nil {
		return map[string]any{}
	}
	return m
}

// Save encodes v as JSON and stores it under key.
func (k *Keyed) Save(ctx context.Context, key string, v any) error {
	if key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return k.store.Set(ctx, k.Key(key), string(data))
}

// Remove deletes key.
func (k *Keyed) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return k.store.Delete(ctx, k.Key(key))
}

// Keys lists the keys in this namespace that start with prefix, with the
// namespace stripped.
func (k *Keyed) Keys(ctx context.Context, prefix string) ([]string, error) {
	full, err := k.store.Keys(ctx, k.prefix+prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(full))
	for _, f := range full {
		keys = append(keys, strings.TrimPrefix(f, k.prefix))
	}
	return keys, nil
}
