package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aperturebio/slidelake-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/aperturebio/slidelake-cli/internal/core/domain"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driven"
)

// Journal is a SQLite-backed run journal.
type Journal struct {
	db   *sql.DB
	path string
}

var _ driven.RunJournal = (*Journal)(nil)

// NewJournal opens the journal database at the specified data directory.
// If dataDir is empty, defaults to ~/.slidelake/data/journal.db.
func NewJournal(dataDir string) (*Journal, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".slidelake", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "journal.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	j := &Journal{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := j.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

// migrate runs all pending migrations.
func (j *Journal) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := j.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := j.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := j.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// BeginRun records the start of a run.
func (j *Journal) BeginRun(ctx context.Context, run *domain.RunSummary) error {
	if run.RunID == "" {
		return domain.ErrInvalidInput
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, table_name, started_at)
		VALUES (?, ?, ?)
	`, run.RunID, run.Table, run.StartedAt)

	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// RecordSlide records one slide's terminal outcome. Outcomes keep the
// order in which slides were processed.
func (j *Journal) RecordSlide(ctx context.Context, runID string, outcome domain.SlideOutcome) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO run_slides (run_id, position, slide_id, coord_file, status, reason, records)
		VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM run_slides WHERE run_id = ?), ?, ?, ?, ?, ?)
	`, runID, runID, outcome.SlideID, outcome.CoordFile,
		string(outcome.Status), outcome.Reason, outcome.Records)

	if err != nil {
		return fmt.Errorf("recording slide outcome: %w", err)
	}
	return nil
}

// FinishRun records the run's final counts and finish time.
func (j *Journal) FinishRun(ctx context.Context, run *domain.RunSummary) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, processed = ?, skipped = ?, records = ?
		WHERE id = ?
	`, run.FinishedAt, run.Processed, run.Skipped, run.Records, run.RunID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRuns returns up to limit runs, most recent first, with their
// per-slide outcomes attached.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, table_name, started_at, finished_at, processed, skipped, records
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.RunSummary
		var finishedAt sql.NullTime
		if err := rows.Scan(&run.RunID, &run.Table, &run.StartedAt, &finishedAt,
			&run.Processed, &run.Skipped, &run.Records); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range runs {
		outcomes, err := j.slideOutcomes(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Outcomes = outcomes
	}

	return runs, nil
}

// slideOutcomes returns a run's per-slide outcomes in processing order.
func (j *Journal) slideOutcomes(ctx context.Context, runID string) ([]domain.SlideOutcome, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT slide_id, coord_file, status, reason, records
		FROM run_slides WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying slide outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.SlideOutcome //nolint:prealloc // size unknown from query
	for rows.Next() {
		var o domain.SlideOutcome
		var status string
		if err := rows.Scan(&o.SlideID, &o.CoordFile, &status, &o.Reason, &o.Records); err != nil {
			return nil, fmt.Errorf("scanning slide outcome: %w", err)
		}
		o.Status = domain.SlideStatus(status)
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating slide outcomes: %w", err)
	}

	return outcomes, nil
}
