package vm

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ---------------------------------------------------------------------------
// CompileCache: content-addressed store for compiled chunks
// ---------------------------------------------------------------------------

// CompileCache persists serialized chunks keyed by the SHA-256 of their
// source form, so load can skip recompiling unchanged top-level forms
// across runs. Lookups that miss, and entries that fail to decode, fall
// back to compiling; the cache is never authoritative.
type CompileCache struct {
	db   *sql.DB
	path string
}

// OpenCompileCache opens (creating if needed) the cache database.
func OpenCompileCache(path string) (*CompileCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("compile cache: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("compile cache: opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("compile cache: setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		hash TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("compile cache: creating table: %w", err)
	}

	return &CompileCache{db: db, path: path}, nil
}

// Get returns the serialized chunk for a source hash.
func (c *CompileCache) Get(key [32]byte) ([]byte, bool) {
	var data []byte
	err := c.db.QueryRow("SELECT data FROM chunks WHERE hash = ?",
		hex.EncodeToString(key[:])).Scan(&data)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores a serialized chunk under a source hash. Failures are
// swallowed: a cache write error must not fail the load that produced
// the chunk.
func (c *CompileCache) Put(key [32]byte, data []byte) {
	_, _ = c.db.Exec(
		"INSERT OR REPLACE INTO chunks (hash, data) VALUES (?, ?)",
		hex.EncodeToString(key[:]), data)
}

// Len returns the number of cached chunks.
func (c *CompileCache) Len() (int, error) {
	var n int
	err := c.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

// Close releases the database.
func (c *CompileCache) Close() error {
	return c.db.Close()
}
