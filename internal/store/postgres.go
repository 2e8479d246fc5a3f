package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/denosys/InferenceMAX/internal/db"
	"github.com/denosys/InferenceMAX/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns, minConns := int32(4), int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
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

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

var datasetColumns = []string{"run_id", "filename", "schema_id", "record_count", "tier"}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, run *model.Run) error {
	prepareRun(run)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, started_at, finished_at, inputs, skipped) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Inputs, run.Skipped,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	rows := make([][]any, 0, len(run.Datasets))
	for _, d := range run.Datasets {
		rows = append(rows, []any{run.ID, d.Filename, d.SchemaID, d.RecordCount, string(d.Tier)})
	}
	if _, err := db.CopyFrom(ctx, tx, "run_datasets", datasetColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: copy datasets")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, started_at, finished_at, inputs, skipped FROM runs ORDER BY started_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	index := map[string]int{}
	var ids []string
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Inputs, &r.Skipped); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		index[r.ID] = len(runs)
		ids = append(ids, r.ID)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate runs")
	}
	if len(ids) == 0 {
		return runs, nil
	}

	drows, err := s.pool.Query(ctx,
		`SELECT run_id, filename, schema_id, record_count, tier FROM run_datasets WHERE run_id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer drows.Close()

	for drows.Next() {
		var runID, tier string
		var d model.DatasetSummary
		if err := drows.Scan(&runID, &d.Filename, &d.SchemaID, &d.RecordCount, &tier); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset")
		}
		d.Tier = model.Tier(tier)
		if i, ok := index[runID]; ok {
			runs[i].Datasets = append(runs[i].Datasets, d)
		}
	}
	if err := drows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate datasets")
	}
	for i := range runs {
		sortDatasets(runs[i].Datasets)
	}
	return runs, nil
}
