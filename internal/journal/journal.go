// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal records metadata about extraction runs in a local SQLite
// database: which document, which backend, how it ended and how long it
// took. Transcripts are never stored.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pdftext/pkg/types"
)

const (
	dbFile       = "journal.db"
	defaultLimit = 20
)

// Journal manages the run journal database.
type Journal struct {
	db  *sql.DB
	dir string
}

// Open opens or creates dir/journal.db and its schema.
func Open(cfg types.JournalConfig) (*Journal, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	j := &Journal{db: db, dir: cfg.Dir}
	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return j, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			path TEXT,
			sha256 TEXT,
			size INTEGER,
			backend TEXT,
			phase TEXT NOT NULL,
			error_kind TEXT,
			detail TEXT,
			page INTEGER,
			chars INTEGER,
			duration_ms INTEGER,
			started_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_sha256 ON runs(sha256)`,
	}
	for _, stmt := range statements {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores one run. A missing ID is filled with a new UUID.
func (j *Journal) Record(ctx context.Context, rec types.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, document, path, sha256, size, backend, phase, error_kind, detail, page, chars, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Document.Name, rec.Document.Path, rec.Document.SHA256, rec.Document.Size,
		string(rec.Backend), rec.Phase, rec.ErrorKind, rec.Detail, rec.Page, rec.Chars,
		rec.Duration.Milliseconds(), rec.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", rec.ID, err)
	}
	return nil
}

// QueryOptions filters Recent.
type QueryOptions struct {
	// Limit caps the number of runs. Zero uses the default (20).
	Limit int

	// Phase keeps only runs that ended in this phase ("succeeded", "failed").
	Phase string

	// SHA256 keeps only runs over this document content.
	SHA256 string
}

// Recent returns runs newest first.
func (j *Journal) Recent(ctx context.Context, opts QueryOptions) ([]types.RunRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		qb    strings.Builder
		args  []any
		where []string
	)
	qb.WriteString(`SELECT id, document, path, sha256, size, backend, phase, error_kind, detail, page, chars, duration_ms, started_at FROM runs`)
	if opts.Phase != "" {
		where = append(where, "phase = ?")
		args = append(args, opts.Phase)
	}
	if opts.SHA256 != "" {
		where = append(where, "sha256 = ?")
		args = append(args, opts.SHA256)
	}
	if len(where) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(where, " AND "))
	}
	qb.WriteString(" ORDER BY started_at DESC LIMIT ?")
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		var (
			rec        types.RunRecord
			backend    string
			durationMS int64
			startedAt  string
		)
		if err := rows.Scan(
			&rec.ID, &rec.Document.Name, &rec.Document.Path, &rec.Document.SHA256, &rec.Document.Size,
			&backend, &rec.Phase, &rec.ErrorKind, &rec.Detail, &rec.Page, &rec.Chars,
			&durationMS, &startedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.Backend = types.ParserBackend(backend)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			rec.StartedAt = t
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}
