package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"shortsmith/internal/lifecycle"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Transition is one recorded status change.
type Transition struct {
	ID        int64
	RecordID  string
	Title     string
	From      lifecycle.Status
	To        lifecycle.Status
	Reason    string
	CreatedAt time.Time
}

// Publication is one composition uploaded to the video host.
type Publication struct {
	RecordID    string
	Composition string
	URL         string
	ScheduledAt time.Time
	CreatedAt   time.Time
}

// Journal is the SQLite-backed run ledger.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: path, now: time.Now}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string { return j.path }

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordTransition appends a status change.
func (j *Journal) RecordTransition(ctx context.Context, t Transition) error {
	if t.RecordID == "" || t.To == "" {
		return errors.New("transition needs a record id and target status")
	}
	err := j.exec(ctx,
		`INSERT INTO transitions (record_id, title, from_status, to_status, reason, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		t.RecordID,
		nullableString(t.Title),
		nullableString(string(t.From)),
		string(t.To),
		nullableString(t.Reason),
		j.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// RecordPublication stores the URL a composition was published at,
// replacing any earlier entry for the same record and composition.
func (j *Journal) RecordPublication(ctx context.Context, p Publication) error {
	if p.RecordID == "" || p.Composition == "" || p.URL == "" {
		return errors.New("publication needs a record id, composition and url")
	}
	err := j.exec(ctx,
		`INSERT INTO publications (record_id, composition, url, scheduled_at, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(record_id, composition) DO UPDATE SET
             url = excluded.url, scheduled_at = excluded.scheduled_at, created_at = excluded.created_at`,
		p.RecordID,
		p.Composition,
		p.URL,
		nullableTime(p.ScheduledAt),
		j.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record publication: %w", err)
	}
	return nil
}

// PublishedURL returns the URL a composition of a record was published at.
func (j *Journal) PublishedURL(ctx context.Context, recordID, composition string) (string, bool, error) {
	var url string
	err := retryOnBusy(ctx, func() error {
		return j.db.QueryRowContext(ctx,
			`SELECT url FROM publications WHERE record_id = ? AND composition = ?`,
			recordID, composition,
		).Scan(&url)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup publication: %w", err)
	}
	return url, true, nil
}

// RecentTransitions returns up to limit transitions, newest first.
func (j *Journal) RecentTransitions(ctx context.Context, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, record_id, title, from_status, to_status, reason, created_at
         FROM transitions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			t       Transition
			title   sql.NullString
			from    sql.NullString
			reason  sql.NullString
			to      string
			created sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.RecordID, &title, &from, &to, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.Title = title.String
		t.From = lifecycle.Status(from.String)
		t.To = lifecycle.Status(to)
		t.Reason = reason.String
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return j.createSchema(ctx)
	}

	var version int
	if err := j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: journal has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, j.path)
	}
	return nil
}

func (j *Journal) createSchema(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
