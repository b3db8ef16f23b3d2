// Package store keeps the output of finished RPAL runs in a SQLite
// database so that the same program is never evaluated twice.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/rpal/compiler"
	"github.com/chazu/rpal/compiler/hash"
)

var log = commonlog.GetLogger("rpal.store")

// ErrNotFound indicates that no result is cached under a key.
var ErrNotFound = errors.New("result not found")

// Entry is one cached run.
type Entry struct {
	// Output is everything the program printed.
	Output string
	// Result is the final value, rendered the way Print renders it.
	Result string
	// Steps is the number of control items the run executed.
	Steps int
	// Created is when the entry was written.
	Created time.Time
}

// Cache is a SQLite-backed result cache. It is safe for concurrent use.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating cache directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS results (
		key TEXT PRIMARY KEY,
		output TEXT NOT NULL,
		result TEXT NOT NULL,
		steps INTEGER NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened result cache %s", path)
	return &Cache{db: db, path: path}, nil
}

// Path returns the database path the cache was opened with.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Key returns the cache key for a raw (unstandardized) tree.
func Key(root *compiler.Node) (string, error) {
	return hash.HashTreeHex(root)
}

// Get returns the entry cached under key, or ErrNotFound.
func (c *Cache) Get(key string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		e       Entry
		created int64
	)
	err := c.db.QueryRow(
		"SELECT output, result, steps, created FROM results WHERE key = ?", key,
	).Scan(&e.Output, &e.Result, &e.Steps, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying result: %w", err)
	}
	e.Created = time.Unix(created, 0)
	log.Debugf("cache hit %s", key)
	return &e, nil
}

// Put stores e under key, replacing any earlier entry.
func (c *Cache) Put(key string, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.Created.IsZero() {
		e.Created = time.Now()
	}
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO results (key, output, result, steps, created) VALUES (?, ?, ?, ?, ?)",
		key, e.Output, e.Result, e.Steps, e.Created.Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving result: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting results: %w", err)
	}
	return n, nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM results"); err != nil {
		return fmt.Errorf("clearing results: %w", err)
	}
	return nil
}
