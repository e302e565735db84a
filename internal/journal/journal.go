// Package journal keeps a local SQLite history of sync activity so that
// `rbx-configs history` can show what was pushed, pulled, or purged for a
// universe and when. Writes are best effort: callers log and move on when
// the journal is unavailable.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const dbFile = "journal.db"

const schema = `
CREATE TABLE IF NOT EXISTS journal (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    universe_id INTEGER NOT NULL,
    operation TEXT NOT NULL,
    flag TEXT DEFAULT '',
    outcome TEXT NOT NULL DEFAULT 'ok',
    detail TEXT DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_journal_universe ON journal(universe_id, id);
`

// Operation names recorded in journal rows.
const (
	OpDownload     = "download"
	OpUpload       = "upload"
	OpDraftDiscard = "draft-discard"
	OpDraftPublish = "draft-publish"
	OpPurge        = "purge"
)

// Outcome values recorded in journal rows.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Entry represents a row from the journal table.
type Entry struct {
	ID         int64
	UniverseID uint64
	Operation  string // one of the Op* constants
	Flag       string // flag name for per-flag rows, empty for whole-operation rows
	Outcome    string // "ok" or "error"
	Detail     string
	CreatedAt  time.Time
}

// Journal wraps the journal database connection.
type Journal struct {
	conn *sql.DB
	dir  string
}

// Open opens the journal database in dir, creating directory, file, and
// schema as needed.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	conn, err := sql.Open("sqlite", filepath.Join(dir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// Enable WAL mode for concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout as fallback protection (500ms, matches lock timeout)
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")

	if err := initSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Journal{conn: conn, dir: dir}, nil
}

// initSchema creates the journal table and index if they do not exist.
func initSchema(conn *sql.DB) error {
	_, err := conn.Exec(schema)
	return err
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.conn.Close()
}

// withWriteLock executes fn while holding an exclusive write lock.
// This prevents concurrent writes from multiple processes.
func (j *Journal) withWriteLock(fn func() error) error {
	locker := newWriteLocker(j.dir)
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}

// Record batch-inserts entries. Returns nil if entries is empty.
func (j *Journal) Record(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return j.withWriteLock(func() error {
		tx, err := j.conn.Begin()
		if err != nil {
			return err
		}
		if err := recordTx(tx, entries); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// recordTx inserts entries within the provided transaction.
func recordTx(tx *sql.Tx, entries []Entry) error {
	stmt, err := tx.Prepare(`
		INSERT INTO journal (universe_id, operation, flag, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		created := e.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		// Stored as RFC3339 text so the value round-trips identically
		// across SQLite drivers.
		_, err := stmt.Exec(e.UniverseID, e.Operation, e.Flag, e.Outcome, e.Detail, created.UTC().Format(time.RFC3339))
		if err != nil {
			return err
		}
	}
	return nil
}

// Tail returns the last N entries for a universe in chronological order
// (oldest first). Universe 0 matches every universe.
func (j *Journal) Tail(universeID uint64, limit int) ([]Entry, error) {
	rows, err := j.conn.Query(`
		SELECT id, universe_id, operation, COALESCE(flag, ''), outcome, COALESCE(detail, ''), created_at
		FROM journal
		WHERE (? = 0 OR universe_id = ?)
		ORDER BY id DESC
		LIMIT ?
	`, universeID, universeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order
	for i, k := 0, len(entries)-1; i < k; i, k = i+1, k-1 {
		entries[i], entries[k] = entries[k], entries[i]
	}

	return entries, nil
}

// After returns entries for a universe with id > afterID, ordered by id ASC,
// limited to limit. Used for follow-mode polling. Universe 0 matches every
// universe.
func (j *Journal) After(universeID uint64, afterID int64, limit int) ([]Entry, error) {
	rows, err := j.conn.Query(`
		SELECT id, universe_id, operation, COALESCE(flag, ''), outcome, COALESCE(detail, ''), created_at
		FROM journal
		WHERE (? = 0 OR universe_id = ?) AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`, universeID, universeID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Prune deletes rows not in the newest keep entries.
func (j *Journal) Prune(keep int) error {
	return j.withWriteLock(func() error {
		_, err := j.conn.Exec(`
			DELETE FROM journal WHERE id NOT IN (
				SELECT id FROM journal ORDER BY id DESC LIMIT ?
			)
		`, keep)
		return err
	})
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.UniverseID, &e.Operation, &e.Flag, &e.Outcome, &e.Detail, &ts); err != nil {
			return nil, err
		}
		parsed, err := parseTimestamp(ts)
		if err != nil {
			return nil, err
		}
		e.CreatedAt = parsed
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// parseTimestamp tries common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: time.RFC3339, Value: s}
}
