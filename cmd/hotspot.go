package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/autocorr"
	"github.com/ubd-geolab/spatial-cli/internal/geospatial"
	"github.com/ubd-geolab/spatial-cli/internal/loader"
	"github.com/ubd-geolab/spatial-cli/internal/model"
	"github.com/ubd-geolab/spatial-cli/internal/report"
	"github.com/ubd-geolab/spatial-cli/internal/weights"
)

var hotspotCmd = &cobra.Command{
	Use:   "hotspot",
	Short: "Compute Getis-Ord Gi* hotspots over a school-count grid",
	Long:  "Tessellates the study area into square cells, joins schools onto cells, and flags statistically significant hotspot cells.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		policy, err := weights.ParseZeroNeighborPolicy(cfg.Analysis.ZeroNeighborPolicy)
		if err != nil {
			return err
		}

		area, err := loadStudyArea(cmd)
		if err != nil {
			return err
		}
		if area == nil {
			return eris.New("a study-area shapefile is required for hotspot analysis")
		}

		schoolPath := inputPath(cmd, "schools", cfg.Inputs.Schools)
		if schoolPath == "" {
			return eris.New("a school listing is required (flag or config)")
		}
		schoolRes, err := loader.ReadSchoolsXLSX(schoolPath, loader.DefaultSchoolColumns)
		if err != nil {
			return err
		}

		cellKM, _ := cmd.Flags().GetFloat64("cell-km")
		if cellKM <= 0 {
			cellKM = cfg.Analysis.CellKM
		}
		cells, err := geospatial.GenerateGrid(area, cellKM)
		if err != nil {
			return err
		}

		join := geospatial.JoinSchools(cells, schoolRes.Schools)
		cells = geospatial.ApplyCounts(cells, join)

		rel, err := geospatial.BuildNeighbors(ctx, cells)
		if err != nil {
			return err
		}
		w, err := weights.Build(rel, weights.ModeStar, policy)
		if err != nil {
			return err
		}

		results, err := autocorr.GiStar(regionValues(cells), w, autocorr.GiStarOptions{
			Alpha:     cfg.Analysis.Alpha,
			TwoTailed: cfg.Analysis.TwoTailed,
		})
		if err != nil {
			return err
		}

		// Keep only significant cells inside the study area.
		significant := autocorr.Significant(results)
		kept := significant[:0]
		for _, r := range significant {
			if geospatial.IntersectsArea(cells[r.Index].Geometry, area) {
				kept = append(kept, r)
			}
		}
		records := autocorr.BindRegions(kept, cells)

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		run, err := s.CreateRun(ctx, model.RunKindHotspot)
		if err != nil {
			return err
		}
		saveErr := s.SaveHotspots(ctx, run.ID, records)
		finishRun(ctx, s, run.ID, saveErr)
		if saveErr != nil {
			return saveErr
		}

		wr, err := report.NewWriter(cfg.Output.Dir)
		if err != nil {
			return err
		}
		path, err := wr.WriteHotspots(records)
		if err != nil {
			return err
		}

		zap.L().Info("hotspot analysis complete",
			zap.String("run_id", run.ID),
			zap.Int("cells", len(cells)),
			zap.Int("significant", len(records)),
			zap.Float64("cell_km", cellKM),
		)
		fmt.Printf("%d of %d cells significant at alpha=%.2g; written to %s\n",
			len(records), len(cells), cfg.Analysis.Alpha, path)
		return nil
	},
}

func init() {
	addInputFlags(hotspotCmd)
	hotspotCmd.Flags().Float64("cell-km", 0, "grid cell size in kilometers (defaults to analysis.cell_km)")
	rootCmd.AddCommand(hotspotCmd)
}
