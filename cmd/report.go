package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/autocorr"
	"github.com/ubd-geolab/spatial-cli/internal/geospatial"
	"github.com/ubd-geolab/spatial-cli/internal/loader"
	"github.com/ubd-geolab/spatial-cli/internal/model"
	"github.com/ubd-geolab/spatial-cli/internal/regress"
	"github.com/ubd-geolab/spatial-cli/internal/report"
	"github.com/ubd-geolab/spatial-cli/internal/weights"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the full analysis pipeline and write all result tables",
	Long:  "Load, join, build neighbors, normalize weights, compute Moran's I and Gi* hotspots, regress against population, and write CSV plus XLSX outputs.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		assumption, err := autocorr.ParseAssumption(cfg.Analysis.Assumption)
		if err != nil {
			return err
		}
		policy, err := weights.ParseZeroNeighborPolicy(cfg.Analysis.ZeroNeighborPolicy)
		if err != nil {
			return err
		}

		regions, join, err := loadJoinedRegions(cmd)
		if err != nil {
			return err
		}

		// Global statistic over regions.
		rel, err := geospatial.BuildNeighbors(ctx, regions)
		if err != nil {
			return err
		}
		wBinary, err := weights.Build(rel, weights.ModeBinary, policy)
		if err != nil {
			return err
		}
		moranRes, err := autocorr.Moran(regionValues(regions), wBinary, assumption)
		if err != nil {
			return err
		}

		// Local statistic over grid cells, when a study area is configured.
		var records []autocorr.HotspotRecord
		area, err := loadStudyArea(cmd)
		if err != nil {
			return err
		}
		if area != nil {
			schoolPath := inputPath(cmd, "schools", cfg.Inputs.Schools)
			schoolRes, err := loader.ReadSchoolsXLSX(schoolPath, loader.DefaultSchoolColumns)
			if err != nil {
				return err
			}
			cells, err := geospatial.GenerateGrid(area, cfg.Analysis.CellKM)
			if err != nil {
				return err
			}
			cells = geospatial.ApplyCounts(cells, geospatial.JoinSchools(cells, schoolRes.Schools))

			cellRel, err := geospatial.BuildNeighbors(ctx, cells)
			if err != nil {
				return err
			}
			wStar, err := weights.Build(cellRel, weights.ModeStar, policy)
			if err != nil {
				return err
			}
			results, err := autocorr.GiStar(regionValues(cells), wStar, autocorr.GiStarOptions{
				Alpha:     cfg.Analysis.Alpha,
				TwoTailed: cfg.Analysis.TwoTailed,
			})
			if err != nil {
				return err
			}
			records = autocorr.BindRegions(autocorr.Significant(results), cells)
		} else {
			zap.L().Info("no study area configured; skipping grid hotspot analysis")
		}

		// Regression, when a population table is configured.
		var regRes *regress.Result
		if cfg.Inputs.Population != "" {
			pop, err := loader.ReadPopulationCSV(cfg.Inputs.Population)
			if err != nil {
				return err
			}
			var x, y []float64
			for _, r := range regions {
				if p, ok := pop[r.ID]; ok {
					x = append(x, p)
					y = append(y, float64(r.SchoolCount))
				}
			}
			regRes, err = regress.Fit(x, y)
			if err != nil {
				return err
			}
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		run, err := s.CreateRun(ctx, model.RunKindReport)
		if err != nil {
			return err
		}
		saveErr := s.SaveMoran(ctx, run.ID, moranRes)
		if saveErr == nil && len(records) > 0 {
			saveErr = s.SaveHotspots(ctx, run.ID, records)
		}
		if saveErr == nil && regRes != nil {
			saveErr = s.SaveRegression(ctx, run.ID, regRes)
		}
		finishRun(ctx, s, run.ID, saveErr)
		if saveErr != nil {
			return saveErr
		}

		w, err := report.NewWriter(cfg.Output.Dir)
		if err != nil {
			return err
		}
		if _, err := w.WriteRegionCounts(regions); err != nil {
			return err
		}
		if _, err := w.WriteMoran(moranRes); err != nil {
			return err
		}
		if len(records) > 0 {
			if _, err := w.WriteHotspots(records); err != nil {
				return err
			}
		}
		wbPath, err := w.WriteWorkbook(regions, moranRes, records, regRes)
		if err != nil {
			return err
		}

		zap.L().Info("report pipeline complete",
			zap.String("run_id", run.ID),
			zap.Int("regions", len(regions)),
			zap.Int("unmatched_schools", len(join.Unmatched)),
			zap.Int("hotspots", len(records)),
		)
		fmt.Printf("report complete: Moran's I = %.4f (p = %.4g), %d significant cells; workbook at %s\n",
			moranRes.I, moranRes.PValue, len(records), wbPath)
		return nil
	},
}

func init() {
	addInputFlags(reportCmd)
	rootCmd.AddCommand(reportCmd)
}
