// Package kvstore provides the string key/value backends behind the
// runtime's persistent and session storage.
//
// Three backends are available:
//
//   - MemoryStore keeps values in a map and is the default for sessions.
//   - BadgerStore persists values in an embedded BadgerDB directory.
//   - SQLStore persists values in any database/sql table; SQLite is wired
//     through the pure-Go modernc.org/sqlite driver.
//
// All implementations are safe for concurrent use.
package kvstore

import (
	"context"
	"errors"
	"sort"
)

// Store is a flat string key/value store.
type Store interface {
	// Get returns the value for key. The bool reports whether key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists the keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the backend. Further calls return ErrClosed.
	Close() error
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kvstore: store is closed")

func sorted(keys []string) []string {
	sort.Strings(keys)
	return keys
}
