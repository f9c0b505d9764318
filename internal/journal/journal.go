// Package journal persists per-net routing outcomes to a SQLite
// database so sessions can be reviewed after the terminal is gone.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS net_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	net         TEXT NOT NULL,
	marker      TEXT NOT NULL,
	segments    INTEGER NOT NULL,
	restarts    INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);`

// Journal records net outcomes. It implements the routing engine's
// Recorder; the engine treats recording failures as non-fatal.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close releases the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordNet appends one outcome row
func (j *Journal) RecordNet(rec engine.NetRecord) error {
	_, err := j.db.Exec(
		`INSERT INTO net_log (net, marker, segments, restarts, outcome, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Net,
		string(rec.Marker),
		rec.Segments,
		rec.Restarts,
		rec.Outcome,
		rec.Duration.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record net outcome: %w", err)
	}
	return nil
}

// Entry is one row read back from the journal
type Entry struct {
	Net      string
	Marker   string
	Segments int
	Restarts int
	Outcome  string
	Duration time.Duration
}

// Entries returns all rows in insertion order
func (j *Journal) Entries() ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT net, marker, segments, restarts, outcome, duration_ms FROM net_log ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.Net, &e.Marker, &e.Segments, &e.Restarts, &e.Outcome, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
