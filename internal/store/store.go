// Package store persists run history, emitted records, and reference
// dictionary snapshots in a local database.
package store

import (
	"context"
	"time"

	"github.com/sells-group/cadastre-cli/internal/model"
	"github.com/sells-group/cadastre-cli/internal/refdata"
)

// Store defines local persistence for the parsing pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, task string, cadNumbers []string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, errMsg string, records int) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Records
	SaveRecords(ctx context.Context, runID string, records []model.Record) error

	// Dictionary snapshots
	SaveDictionary(ctx context.Context, key refdata.Key, pairs []refdata.Pair) error
	// GetDictionary returns a snapshot no older than maxAge; ok is false
	// when the snapshot is missing or stale.
	GetDictionary(ctx context.Context, key refdata.Key, maxAge time.Duration) ([]refdata.Pair, bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
