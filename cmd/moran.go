package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/autocorr"
	"github.com/ubd-geolab/spatial-cli/internal/geospatial"
	"github.com/ubd-geolab/spatial-cli/internal/model"
	"github.com/ubd-geolab/spatial-cli/internal/weights"
)

var moranCmd = &cobra.Command{
	Use:   "moran",
	Short: "Compute Global Moran's I over region school counts",
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

		regions, _, err := loadJoinedRegions(cmd)
		if err != nil {
			return err
		}

		rel, err := geospatial.BuildNeighbors(ctx, regions)
		if err != nil {
			return err
		}
		w, err := weights.Build(rel, weights.ModeBinary, policy)
		if err != nil {
			return err
		}

		values := regionValues(regions)
		res, err := autocorr.Moran(values, w, assumption)
		if err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		run, err := s.CreateRun(ctx, model.RunKindMoran)
		if err != nil {
			return err
		}
		saveErr := s.SaveMoran(ctx, run.ID, res)
		finishRun(ctx, s, run.ID, saveErr)
		if saveErr != nil {
			return saveErr
		}

		zap.L().Info("global autocorrelation computed",
			zap.String("run_id", run.ID),
			zap.Float64("moran_i", res.I),
			zap.Float64("z_score", res.ZScore),
			zap.Float64("p_value", res.PValue),
		)
		fmt.Printf("Moran's I = %.4f (E[I] = %.4f, z = %.3f, p = %.4g, %s, n = %d)\n",
			res.I, res.Expected, res.ZScore, res.PValue, res.Assumption, res.N)
		return nil
	},
}

func regionValues(regions []model.Region) []float64 {
	values := make([]float64, len(regions))
	for i := range regions {
		values[i] = float64(regions[i].SchoolCount)
	}
	return values
}

func init() {
	addInputFlags(moranCmd)
	rootCmd.AddCommand(moranCmd)
}
