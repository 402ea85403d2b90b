package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLDialect selects placeholder and upsert syntax.
type SQLDialect int

const (
	// DialectSQLite uses ? placeholders and INSERT OR REPLACE.
	DialectSQLite SQLDialect = iota
	// DialectPostgreSQL uses $n placeholders and ON CONFLICT.
	DialectPostgreSQL
	// DialectMySQL uses ? placeholders and ON DUPLICATE KEY.
	DialectMySQL
)

// DefaultTable is the table SQLStore uses unless WithTable is given.
const DefaultTable = "hashpage_kv"

// SQLStore is a Store backed by a database/sql table with the schema:
//
//	CREATE TABLE hashpage_kv (
//	    k VARCHAR(512) PRIMARY KEY,
//	    v TEXT NOT NULL
//	);
type SQLStore struct {
	db      *sql.DB
	table   string
	dialect SQLDialect
	ownsDB  bool

	mu     sync.RWMutex
	closed bool
}

// SQLOption configures a SQLStore.
type SQLOption func(*SQLStore)

// WithTable overrides the table name.
func WithTable(name string) SQLOption {
	return func(s *SQLStore) { s.table = name }
}

// WithDialect sets the SQL dialect. Default: DialectSQLite.
func WithDialect(d SQLDialect) SQLOption {
	return func(s *SQLStore) { s.dialect = d }
}

// NewSQLStore wraps an open database. The table must already exist; see
// Migrate. Closing the store does not close db.
func NewSQLStore(db *sql.DB, opts ...SQLOption) *SQLStore {
	s := &SQLStore{db: db, table: DefaultTable, dialect: DialectSQLite}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenSQLite opens (or creates) a SQLite database file, enables WAL mode and
// creates the table. The returned store owns the database handle.
func OpenSQLite(ctx context.Context, path string, opts ...SQLOption) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open sqlite: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("kvstore: %s: %w", pragma, err)
		}
	}

	s := NewSQLStore(db, append([]SQLOption{WithDialect(DialectSQLite)}, opts...)...)
	s.ownsDB = true
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		k VARCHAR(512) PRIMARY KEY,
		v TEXT NOT NULL
	)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("kvstore: create table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.isClosed() {
		return "", false, ErrClosed
	}

	q := fmt.Sprintf(`SELECT v FROM %s WHERE k = %s`, s.table, s.placeholder(1))
	var v string
	err := s.db.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if s.isClosed() {
		return ErrClosed
	}

	var q string
	switch s.dialect {
	case DialectPostgreSQL:
		q = fmt.Sprintf(`INSERT INTO %s (k, v) VALUES ($1, $2)
			ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`, s.table)
	case DialectMySQL:
		q = fmt.Sprintf(`INSERT INTO %s (k, v) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE v = VALUES(v)`, s.table)
	default:
		q = fmt.Sprintf(`INSERT OR REPLACE INTO %s (k, v) VALUES (?, ?)`, s.table)
	}
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("kvstore: set %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if s.isClosed() {
		return ErrClosed
	}

	q := fmt.Sprintf(`DELETE FROM %s WHERE k = %s`, s.table, s.placeholder(1))
	if _, err := s.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("kvstore: delete %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	q := fmt.Sprintf(`SELECT k FROM %s WHERE k LIKE %s ESCAPE '!' ORDER BY k`, s.table, s.placeholder(1))
	rows, err := s.db.QueryContext(ctx, q, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("kvstore: list %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("kvstore: scan key: %w", err)
		}
		// LIKE is case-insensitive on some backends.
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kvstore: list %q: %w", prefix, err)
	}
	return sorted(keys), nil
}

// Close marks the store closed and closes the database if OpenSQLite opened it.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
