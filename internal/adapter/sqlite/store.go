// Package sqlite keeps a local, append-only history of collected activations.
// Rows are inserted once per activation ID; later runs never overwrite them.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/couchcryptid/flood-activation-etl/internal/adapter/sqlite/migrations"
	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

// Store is a SQLite-backed activation history.
type Store struct {
	db   *sql.DB
	path string
}

// RunRecord is a stored run row.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Inserted   int
	Synthetic  bool
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			upFiles = append(upFiles, e.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// SaveEvents inserts events whose activation ID is not yet stored and returns
// how many rows were added. Existing rows are left untouched.
func (s *Store) SaveEvents(ctx context.Context, runID string, events []domain.DisasterEvent) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO activations (
			activation_id, title, occurred_at, country, region, latitude, longitude,
			severity, data_source, payload, duration, first_run_id, collected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(activation_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range events {
		if e.ActivationID == "" {
			continue
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("marshal %s: %w", e.ActivationID, err)
		}
		duration, err := marshalDuration(e.Duration)
		if err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx,
			e.ActivationID, e.Title, nullTime(e.OccurredAt), e.Location.Country, e.Location.Region,
			e.Location.Latitude, e.Location.Longitude, nullString(e.Severity), e.DataSource,
			string(payload), duration, runID, e.CollectedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", e.ActivationID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// SaveDuration records the enrichment result for an activation that has none
// yet. It reports whether a row was updated.
func (s *Store) SaveDuration(ctx context.Context, activationID string, d domain.DurationDetail) (bool, error) {
	duration, err := marshalDuration(&d)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE activations SET duration = ? WHERE activation_id = ? AND duration IS NULL`,
		duration, activationID)
	if err != nil {
		return false, fmt.Errorf("update duration %s: %w", activationID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Get returns the stored event for an activation ID.
func (s *Store) Get(ctx context.Context, activationID string) (domain.DisasterEvent, bool, error) {
	var payload string
	var duration sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, duration FROM activations WHERE activation_id = ?`, activationID,
	).Scan(&payload, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DisasterEvent{}, false, nil
	}
	if err != nil {
		return domain.DisasterEvent{}, false, fmt.Errorf("get %s: %w", activationID, err)
	}

	var e domain.DisasterEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return domain.DisasterEvent{}, false, fmt.Errorf("decode %s: %w", activationID, err)
	}
	if duration.Valid {
		var d domain.DurationDetail
		if err := json.Unmarshal([]byte(duration.String), &d); err != nil {
			return domain.DisasterEvent{}, false, fmt.Errorf("decode duration %s: %w", activationID, err)
		}
		e.Duration = &d
	}
	return e, true, nil
}

// Count returns the number of stored activations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count activations: %w", err)
	}
	return n, nil
}

// RecordRun stores a run summary.
func (s *Store) RecordRun(ctx context.Context, r domain.RunSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, finished_at, total_events, inserted, synthetic)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, r.RunID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.TotalEvents, r.Stored, r.Synthetic)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

// LastRun returns the most recently finished run.
func (s *Store) LastRun(ctx context.Context) (RunRecord, bool, error) {
	var r RunRecord
	var started, finished string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, total_events, inserted, synthetic
		FROM runs ORDER BY rowid DESC LIMIT 1
	`).Scan(&r.RunID, &started, &finished, &r.Total, &r.Inserted, &r.Synthetic)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, false, nil
	}
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("last run: %w", err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return r, true, nil
}

func marshalDuration(d *domain.DurationDetail) (any, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal duration: %w", err)
	}
	return string(b), nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
