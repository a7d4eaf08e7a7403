package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/loader"
	"github.com/ubd-geolab/spatial-cli/internal/model"
	"github.com/ubd-geolab/spatial-cli/internal/regress"
)

var regressCmd = &cobra.Command{
	Use:   "regress",
	Short: "Regress region school counts against population",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		popPath, _ := cmd.Flags().GetString("population")
		if popPath == "" {
			popPath = cfg.Inputs.Population
		}
		if popPath == "" {
			return eris.New("a population table is required (flag or config)")
		}

		regions, _, err := loadJoinedRegions(cmd)
		if err != nil {
			return err
		}
		pop, err := loader.ReadPopulationCSV(popPath)
		if err != nil {
			return err
		}

		var x, y []float64
		var missing int
		for _, r := range regions {
			p, ok := pop[r.ID]
			if !ok {
				missing++
				continue
			}
			x = append(x, p)
			y = append(y, float64(r.SchoolCount))
		}
		if missing > 0 {
			zap.L().Warn("regions without population data excluded from regression",
				zap.Int("missing", missing))
		}

		res, err := regress.Fit(x, y)
		if err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		run, err := s.CreateRun(ctx, model.RunKindRegress)
		if err != nil {
			return err
		}
		saveErr := s.SaveRegression(ctx, run.ID, res)
		finishRun(ctx, s, run.ID, saveErr)
		if saveErr != nil {
			return saveErr
		}

		fmt.Printf("schools = %.4g + %.4g * population (R^2 = %.3f, t = %.3f, p = %.4g, n = %d)\n",
			res.Intercept, res.Slope, res.R2, res.TStat, res.PValue, res.N)
		return nil
	},
}

func init() {
	addInputFlags(regressCmd)
	regressCmd.Flags().String("population", "", "path to the population CSV")
	rootCmd.AddCommand(regressCmd)
}
