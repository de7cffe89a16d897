// Package linkdb persists resolved reference edges in SQLite for backlink and
// unresolved-reference queries.
package linkdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aidanlsb/weft/internal/model"
)

// CurrentDBVersion is the current database schema version.
const CurrentDBVersion = 1

var (
	// ErrLocked indicates another process is writing the link database.
	ErrLocked = errors.New("link database is locked for rebuild")
)

// DB is the link database handle.
type DB struct {
	db   *sql.DB
	lock *fileLock
}

// Stats summarizes the stored edges.
type Stats struct {
	Links      int       `json:"links"`
	Sources    int       `json:"sources"`
	Unresolved int       `json:"unresolved"`
	Ambiguous  int       `json:"ambiguous"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Path returns the database file location for a vault.
func Path(vaultPath string) string {
	return filepath.Join(vaultPath, ".weft", "links.db")
}

// Open opens or creates <vault>/.weft/links.db. Replace on the returned
// handle fails with ErrLocked while another process holds the write lock.
func Open(vaultPath string) (*DB, error) {
	dir := filepath.Join(vaultPath, ".weft")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create .weft directory: %w", err)
	}

	dbPath := Path(vaultPath)
	if db, err := sql.Open("sqlite", dbPath); err == nil {
		compatible := isSchemaCompatible(db)
		db.Close()
		if !compatible {
			if err := removeDatabaseFiles(dbPath); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	d := &DB{db: db, lock: newFileLock(filepath.Join(dir, "links.lock"))}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// OpenInMemory opens an in-memory database (for testing).
func OpenInMemory() (*DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Each pooled connection would get its own empty in-memory database.
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id TEXT NOT NULL,
			target_id TEXT,             -- NULL when unresolved
			target_raw TEXT NOT NULL,
			anchor TEXT,
			raw TEXT NOT NULL,
			mode TEXT NOT NULL,
			line_number INTEGER NOT NULL,
			ambiguous INTEGER NOT NULL DEFAULT 0,
			candidates TEXT             -- JSON array of document IDs
		);

		CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_id);
		CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_id);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}
	_, err := d.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('version', ?)`,
		strconv.Itoa(CurrentDBVersion))
	if err != nil {
		return fmt.Errorf("failed to set database version: %w", err)
	}
	return nil
}

// Replace swaps the stored edges for links in one transaction.
func (d *DB) Replace(links []model.Link) error {
	if d.lock != nil {
		if err := d.lock.acquire(); err != nil {
			return err
		}
		defer d.lock.release()
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM links`); err != nil {
		return fmt.Errorf("clear links: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO links (source_id, target_id, target_raw, anchor, raw, mode, line_number, ambiguous, candidates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range links {
		var candidates any
		if len(l.Candidates) > 0 {
			b, err := json.Marshal(l.Candidates)
			if err != nil {
				return err
			}
			candidates = string(b)
		}
		if _, err := stmt.Exec(
			l.SourceID,
			nullString(l.TargetID),
			l.Target,
			nullString(l.Anchor),
			l.Raw,
			l.Mode,
			l.Line,
			boolToInt(l.Ambiguous),
			candidates,
		); err != nil {
			return fmt.Errorf("insert link from %s: %w", l.SourceID, err)
		}
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('indexed_at', ?)`,
		strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		return fmt.Errorf("set indexed_at: %w", err)
	}

	return tx.Commit()
}

const linkColumns = `source_id, target_id, target_raw, anchor, raw, mode, line_number, ambiguous, candidates`

// Backlinks returns every stored reference that resolved to targetID.
func (d *DB) Backlinks(targetID string) ([]model.Link, error) {
	return d.query(`SELECT `+linkColumns+` FROM links WHERE target_id = ? ORDER BY source_id, line_number, id`, targetID)
}

// Outlinks returns every stored reference written in sourceID.
func (d *DB) Outlinks(sourceID string) ([]model.Link, error) {
	return d.query(`SELECT `+linkColumns+` FROM links WHERE source_id = ? ORDER BY line_number, id`, sourceID)
}

// Unresolved returns every stored reference that resolved to nothing.
func (d *DB) Unresolved() ([]model.Link, error) {
	return d.query(`SELECT ` + linkColumns + ` FROM links WHERE target_id IS NULL ORDER BY source_id, line_number, id`)
}

// Stats returns counts over the stored edges.
func (d *DB) Stats() (Stats, error) {
	var s Stats
	err := d.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(DISTINCT source_id),
			COALESCE(SUM(CASE WHEN target_id IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(ambiguous), 0)
		FROM links
	`).Scan(&s.Links, &s.Sources, &s.Unresolved, &s.Ambiguous)
	if err != nil {
		return Stats{}, err
	}

	var indexedAt string
	err = d.db.QueryRow(`SELECT value FROM meta WHERE key = 'indexed_at'`).Scan(&indexedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Stats{}, err
	default:
		if sec, perr := strconv.ParseInt(indexedAt, 10, 64); perr == nil {
			s.IndexedAt = time.Unix(sec, 0)
		}
	}
	return s, nil
}

func (d *DB) query(q string, args ...any) ([]model.Link, error) {
	rows, err := d.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []model.Link
	for rows.Next() {
		var l model.Link
		var targetID, anchor, candidates sql.NullString
		var ambiguous int
		if err := rows.Scan(&l.SourceID, &targetID, &l.Target, &anchor, &l.Raw, &l.Mode, &l.Line, &ambiguous, &candidates); err != nil {
			return nil, err
		}
		l.TargetID = targetID.String
		l.Anchor = anchor.String
		l.Ambiguous = ambiguous != 0
		if candidates.Valid {
			if err := json.Unmarshal([]byte(candidates.String), &l.Candidates); err != nil {
				return nil, fmt.Errorf("decode candidates: %w", err)
			}
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// isSchemaCompatible reports whether an existing database was written by this
// schema version. A missing meta table means a fresh file.
func isSchemaCompatible(db *sql.DB) bool {
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='meta'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	if err != nil {
		return false
	}
	var version string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'version'`).Scan(&version); err != nil {
		return false
	}
	return version == strconv.Itoa(CurrentDBVersion)
}

func removeDatabaseFiles(dbPath string) error {
	paths := []string{dbPath, dbPath + "-wal", dbPath + "-shm"}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
