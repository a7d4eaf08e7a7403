package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/geospatial"
	"github.com/ubd-geolab/spatial-cli/internal/loader"
	"github.com/ubd-geolab/spatial-cli/internal/model"
	"github.com/ubd-geolab/spatial-cli/internal/store"
)

// addInputFlags registers the shared input-path flags. Flag values override
// the corresponding config entries.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("schools", "", "path to the school listing XLSX")
	cmd.Flags().String("regions", "", "path to the region boundary shapefile")
	cmd.Flags().String("study-area", "", "path to the study-area outline shapefile")
}

func inputPath(cmd *cobra.Command, flag, fallback string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return fallback
}

// loadJoinedRegions loads regions and schools, runs the point-in-polygon
// join, and returns regions with the study variable populated plus the
// join result for mismatch reporting.
func loadJoinedRegions(cmd *cobra.Command) ([]model.Region, *geospatial.JoinResult, error) {
	regionPath := inputPath(cmd, "regions", cfg.Inputs.Regions)
	schoolPath := inputPath(cmd, "schools", cfg.Inputs.Schools)
	if regionPath == "" || schoolPath == "" {
		return nil, nil, eris.New("both a region shapefile and a school listing are required (flags or config)")
	}

	regions, err := geospatial.LoadRegions(regionPath, model.LevelMukim, cfg.Inputs.IDField, cfg.Inputs.NameField)
	if err != nil {
		return nil, nil, err
	}

	schoolRes, err := loader.ReadSchoolsXLSX(schoolPath, loader.DefaultSchoolColumns)
	if err != nil {
		return nil, nil, err
	}

	join := geospatial.JoinSchools(regions, schoolRes.Schools)
	zap.L().Info("spatial join complete",
		zap.Int("regions", len(regions)),
		zap.Int("schools", len(schoolRes.Schools)),
		zap.Int("unmatched", len(join.Unmatched)),
		zap.Int("rejected_rows", schoolRes.Rejected),
	)

	return geospatial.ApplyCounts(regions, join), join, nil
}

// loadStudyArea loads the study-area outline if configured; nil otherwise.
func loadStudyArea(cmd *cobra.Command) (geom.T, error) {
	path := inputPath(cmd, "study-area", cfg.Inputs.StudyArea)
	if path == "" {
		return nil, nil
	}
	return geospatial.LoadBoundary(path)
}

// openStore opens the configured results store and migrates its schema.
func openStore(ctx context.Context) (store.Store, error) {
	var s store.Store
	var err error
	switch cfg.Store.Driver {
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		s, err = store.NewSQLite(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q (valid: sqlite, postgres)", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// finishRun records the terminal status of a run, logging rather than
// overriding the primary error.
func finishRun(ctx context.Context, s store.Store, runID string, runErr error) {
	status := model.RunStatusComplete
	msg := ""
	if runErr != nil {
		status = model.RunStatusFailed
		msg = runErr.Error()
	}
	if err := s.CompleteRun(ctx, runID, status, msg); err != nil {
		zap.L().Warn("failed to finalize run", zap.String("run_id", runID), zap.Error(err))
	}
}
