// Package store persists analysis runs and their results. Two backends are
// provided: SQLite for local, single-file use and Postgres for shared
// installations.
package store

import (
	"context"

	"github.com/ubd-geolab/spatial-cli/internal/autocorr"
	"github.com/ubd-geolab/spatial-cli/internal/model"
	"github.com/ubd-geolab/spatial-cli/internal/regress"
)

// Store defines the persistence interface for analysis results.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Datasets
	SaveRegions(ctx context.Context, regions []model.Region) error
	SaveSchools(ctx context.Context, schools []model.School, assigned map[string]string) error

	// Results
	SaveMoran(ctx context.Context, runID string, res *autocorr.MoranResult) error
	SaveRegression(ctx context.Context, runID string, res *regress.Result) error
	SaveHotspots(ctx context.Context, runID string, recs []autocorr.HotspotRecord) error
	ListHotspots(ctx context.Context, runID string) ([]autocorr.HotspotRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
