package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	status       TEXT NOT NULL,
	iterations   INTEGER NOT NULL DEFAULT 0,
	reason       TEXT,
	dry_run      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS observations (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id             TEXT NOT NULL,
	iteration          INTEGER NOT NULL,
	variant            TEXT NOT NULL,
	class              TEXT NOT NULL,
	strategy           TEXT,
	scale              REAL NOT NULL,
	leading            REAL NOT NULL,
	top_offset_pts     REAL NOT NULL,
	pages              INTEGER NOT NULL,
	page_height_pts    REAL NOT NULL,
	top_ws_pts         REAL NOT NULL,
	bottom_ws_pts      REAL NOT NULL,
	expected_pts       REAL NOT NULL,
	delta_pts          REAL NOT NULL,
	top_deficit_pts    REAL NOT NULL,
	bottom_deficit_pts REAL NOT NULL,
	score              REAL NOT NULL,
	created_at         TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS observations_run ON observations(run_id, iteration, variant);
`

// timeLayout is fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a SQLite-backed Recorder.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, runID string, dryRun bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, status, dry_run) VALUES (?, ?, ?, ?)`,
		runID, now(), StatusRunning, boolInt(dryRun),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Record appends one observation.
func (s *Store) Record(ctx context.Context, e Entry) error {
	a := e.Assessment
	m := a.Measurement
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observations (
			run_id, iteration, variant, class, strategy,
			scale, leading, top_offset_pts,
			pages, page_height_pts, top_ws_pts, bottom_ws_pts,
			expected_pts, delta_pts, top_deficit_pts, bottom_deficit_pts,
			score, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Iteration, e.Variant, e.Class, e.Strategy,
		e.Settings.Scale, e.Settings.Leading, e.Settings.TopOffsetPts,
		m.Pages, m.PageHeightPts, m.TopWhitespacePts, m.BottomWhitespacePts,
		a.ExpectedBottomPts, a.DeltaPts, a.TopDeficitPts, a.BottomDeficitPts,
		e.Score, created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// FinishRun stamps the terminal status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string, iterations int, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, iterations = ?, reason = ? WHERE run_id = ?`,
		now(), status, iterations, reason, runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// Runs lists the most recent runs, newest first. A limit <= 0 lists all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT run_id, started_at, finished_at, status, iterations, reason, dry_run
	      FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns a single run. ok is false when it does not exist.
func (s *Store) Run(ctx context.Context, runID string) (run Run, ok bool, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, status, iterations, reason, dry_run
		 FROM runs WHERE run_id = ?`, runID)
	run, err = scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, bool, error) {
	runs, err := s.Runs(ctx, 1)
	if err != nil || len(runs) == 0 {
		return Run{}, false, err
	}
	return runs[0], true, nil
}

// Observations returns all entries of a run in iteration then variant order.
func (s *Store) Observations(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, iteration, variant, class, strategy,
		        scale, leading, top_offset_pts,
		        pages, page_height_pts, top_ws_pts, bottom_ws_pts,
		        expected_pts, delta_pts, top_deficit_pts, bottom_deficit_pts,
		        score, created_at
		 FROM observations WHERE run_id = ? ORDER BY iteration, variant, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			strategy sql.NullString
			created  string
		)
		a := &e.Assessment
		m := &a.Measurement
		if err := rows.Scan(
			&e.RunID, &e.Iteration, &e.Variant, &e.Class, &strategy,
			&e.Settings.Scale, &e.Settings.Leading, &e.Settings.TopOffsetPts,
			&m.Pages, &m.PageHeightPts, &m.TopWhitespacePts, &m.BottomWhitespacePts,
			&a.ExpectedBottomPts, &a.DeltaPts, &a.TopDeficitPts, &a.BottomDeficitPts,
			&e.Score, &created,
		); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		e.Strategy = strategy.String
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                Run
		started          string
		finished, reason sql.NullString
		dryRun           int
	)
	if err := row.Scan(&r.ID, &started, &finished, &r.Status, &r.Iterations, &reason, &dryRun); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.StartedAt, _ = time.Parse(timeLayout, started)
	if finished.Valid {
		r.FinishedAt, _ = time.Parse(timeLayout, finished.String)
	}
	r.Reason = reason.String
	r.DryRun = dryRun != 0
	return r, nil
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
