package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/denosys/InferenceMAX/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	inputs      INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_datasets (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	filename     TEXT NOT NULL,
	schema_id    TEXT NOT NULL,
	record_count INTEGER NOT NULL,
	tier         TEXT NOT NULL,
	PRIMARY KEY (run_id, filename)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run *model.Run) error {
	prepareRun(run)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, inputs, skipped) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Inputs, run.Skipped,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_datasets (run_id, filename, schema_id, record_count, tier) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare dataset insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, d := range run.Datasets {
		if _, err := stmt.ExecContext(ctx, run.ID, d.Filename, d.SchemaID, d.RecordCount, string(d.Tier)); err != nil {
			return eris.Wrapf(err, "sqlite: insert dataset %s", d.Filename)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, inputs, skipped FROM runs ORDER BY started_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Inputs, &r.Skipped); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate runs")
	}

	for i := range runs {
		ds, err := s.datasets(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Datasets = ds
	}
	return runs, nil
}

func (s *SQLiteStore) datasets(ctx context.Context, runID string) ([]model.DatasetSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, schema_id, record_count, tier FROM run_datasets WHERE run_id = ?`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list datasets of %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.DatasetSummary
	for rows.Next() {
		var d model.DatasetSummary
		var tier string
		if err := rows.Scan(&d.Filename, &d.SchemaID, &d.RecordCount, &tier); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		d.Tier = model.Tier(tier)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate datasets")
	}
	sortDatasets(out)
	return out, nil
}
