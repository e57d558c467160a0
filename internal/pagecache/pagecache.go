// Package pagecache stores rendered page HTML in SQLite, keyed by path and
// content checksum.
package pagecache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Checksum returns the hex-encoded SHA-256 digest of a page's raw bytes.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pages (
	path        TEXT PRIMARY KEY,
	checksum    TEXT NOT NULL,
	html        TEXT NOT NULL,
	rendered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with render cache operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("pagecache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pagecache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pagecache: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the cached HTML for path if it was rendered from content with
// the given checksum.
func (db *DB) Get(path, checksum string) (string, bool, error) {
	var html string
	err := db.conn.QueryRow(`SELECT html FROM pages WHERE path = ? AND checksum = ?`, path, checksum).Scan(&html)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pagecache: get %s: %w", path, err)
	}
	return html, true, nil
}

// Put stores the rendered HTML for path, replacing any previous rendering.
func (db *DB) Put(path, checksum, html string) error {
	_, err := db.conn.Exec(`
		INSERT INTO pages (path, checksum, html, rendered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum    = excluded.checksum,
			html        = excluded.html,
			rendered_at = excluded.rendered_at
	`, path, checksum, html, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("pagecache: put %s: %w", path, err)
	}
	return nil
}

// Delete drops the cached rendering of path.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM pages WHERE path = ?`, path); err != nil {
		return fmt.Errorf("pagecache: delete %s: %w", path, err)
	}
	return nil
}

// Count returns the number of cached pages.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pagecache: count: %w", err)
	}
	return n, nil
}
