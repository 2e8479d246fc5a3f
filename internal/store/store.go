// Package store keeps an optional history of build runs. Builds only
// write to it; nothing in a build reads it back.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/denosys/InferenceMAX/internal/model"
)

// Supported drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

// Store is the run ledger.
type Store interface {
	Migrate(ctx context.Context) error
	// RecordRun saves run and its dataset summaries. An empty run.ID is
	// filled with a new UUID.
	RecordRun(ctx context.Context, run *model.Run) error
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	Close() error
}

// Open connects to the ledger for driver. DriverNone returns a nil Store.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgres(ctx, dsn, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func prepareRun(run *model.Run) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func sortDatasets(ds []model.DatasetSummary) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Filename < ds[j].Filename })
}
