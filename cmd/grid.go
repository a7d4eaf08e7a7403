package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/geospatial"
	"github.com/ubd-geolab/spatial-cli/internal/loader"
	"github.com/ubd-geolab/spatial-cli/internal/report"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Tessellate the study area into square cells",
	Long:  "Generates the analysis grid over the study-area bounding box, clips it to the boundary, optionally joins school counts onto cells, and writes the cell table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		area, err := loadStudyArea(cmd)
		if err != nil {
			return err
		}
		if area == nil {
			return eris.New("a study-area shapefile is required (flag or config)")
		}

		cellKM, _ := cmd.Flags().GetFloat64("cell-km")
		if cellKM <= 0 {
			cellKM = cfg.Analysis.CellKM
		}
		cells, err := geospatial.GenerateGrid(area, cellKM)
		if err != nil {
			return err
		}

		joined := 0
		if schoolPath := inputPath(cmd, "schools", cfg.Inputs.Schools); schoolPath != "" {
			schoolRes, err := loader.ReadSchoolsXLSX(schoolPath, loader.DefaultSchoolColumns)
			if err != nil {
				return err
			}
			join := geospatial.JoinSchools(cells, schoolRes.Schools)
			cells = geospatial.ApplyCounts(cells, join)
			joined = len(join.Assigned)
		}

		w, err := report.NewWriter(cfg.Output.Dir)
		if err != nil {
			return err
		}
		path, err := w.WriteRegionCounts(cells)
		if err != nil {
			return err
		}

		zap.L().Info("grid written",
			zap.Int("cells", len(cells)),
			zap.Float64("cell_km", cellKM),
			zap.Int("schools_joined", joined),
		)
		fmt.Printf("generated %d cells at %.2f km; table written to %s\n", len(cells), cellKM, path)
		return nil
	},
}

func init() {
	addInputFlags(gridCmd)
	gridCmd.Flags().Float64("cell-km", 0, "grid cell size in kilometers (defaults to analysis.cell_km)")
	rootCmd.AddCommand(gridCmd)
}
