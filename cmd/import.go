package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/geospatial"
	"github.com/ubd-geolab/spatial-cli/internal/loader"
	"github.com/ubd-geolab/spatial-cli/internal/model"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load regions, schools, and population into the results store",
	Long:  "Reads the boundary shapefile, school listing, and optional population table, runs the spatial join, and persists the joined datasets.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		level, regionPath, err := importLevel(cmd)
		if err != nil {
			return err
		}
		schoolPath := inputPath(cmd, "schools", cfg.Inputs.Schools)
		if regionPath == "" || schoolPath == "" {
			return eris.New("both a boundary shapefile and a school listing are required (flags or config)")
		}

		regions, err := geospatial.LoadRegions(regionPath, level, cfg.Inputs.IDField, cfg.Inputs.NameField)
		if err != nil {
			return err
		}
		schoolRes, err := loader.ReadSchoolsXLSX(schoolPath, loader.DefaultSchoolColumns)
		if err != nil {
			return err
		}

		join := geospatial.JoinSchools(regions, schoolRes.Schools)
		regions = geospatial.ApplyCounts(regions, join)

		if popPath := cfg.Inputs.Population; popPath != "" {
			pop, err := loader.ReadPopulationCSV(popPath)
			if err != nil {
				return err
			}
			for i := range regions {
				regions[i].Population = pop[regions[i].ID]
			}
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if err := s.SaveRegions(ctx, regions); err != nil {
			return err
		}
		if err := s.SaveSchools(ctx, schoolRes.Schools, join.Assigned); err != nil {
			return err
		}

		zap.L().Info("datasets imported",
			zap.String("level", string(level)),
			zap.Int("regions", len(regions)),
			zap.Int("schools", len(schoolRes.Schools)),
			zap.Int("rejected_rows", schoolRes.Rejected),
			zap.Int("unmatched", len(join.Unmatched)),
		)
		fmt.Printf("imported %d %s regions and %d schools (%d rows rejected, %d schools unmatched)\n",
			len(regions), level, len(schoolRes.Schools), schoolRes.Rejected, len(join.Unmatched))
		return nil
	},
}

// importLevel resolves the boundary granularity and its shapefile path.
func importLevel(cmd *cobra.Command) (model.Level, string, error) {
	name, _ := cmd.Flags().GetString("level")
	switch name {
	case "mukim", "":
		return model.LevelMukim, inputPath(cmd, "regions", cfg.Inputs.Regions), nil
	case "kampong":
		return model.LevelKampong, inputPath(cmd, "regions", cfg.Inputs.Kampongs), nil
	default:
		return "", "", eris.Errorf("unknown level %q (valid: mukim, kampong)", name)
	}
}

func init() {
	addInputFlags(importCmd)
	importCmd.Flags().String("level", "mukim", "boundary granularity to import (mukim or kampong)")
	rootCmd.AddCommand(importCmd)
}
