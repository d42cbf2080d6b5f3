// Package cache is a sqlite-backed compile cache: compiled programs
// keyed by the SHA-256 of their source text, stored as gob blobs.
// Editing the source changes the key, so stale entries are never served;
// old rows are garbage, not hazards.
package cache

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quinlang/quin/internal/vm"
)

const schema = `
CREATE TABLE IF NOT EXISTS programs (
	source_hash TEXT PRIMARY KEY,
	program     BLOB NOT NULL,
	created_at  INTEGER NOT NULL
);`

type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached program for the exact source text, if any.
func (c *Cache) Get(source string) (*vm.Program, bool, error) {
	var blob []byte
	err := c.db.QueryRow(
		`SELECT program FROM programs WHERE source_hash = ?`, key(source),
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}

	var prog vm.Program
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&prog); err != nil {
		// a corrupt row is treated as a miss
		return nil, false, nil
	}
	return &prog, true, nil
}

// Put stores the compiled program under its source hash.
func (c *Cache) Put(source string, prog *vm.Program) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(prog); err != nil {
		return fmt.Errorf("encode program: %w", err)
	}
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO programs (source_hash, program, created_at) VALUES (?, ?, ?)`,
		key(source), buf.Bytes(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}
