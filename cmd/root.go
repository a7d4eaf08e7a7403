package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "spatial-cli",
	Short: "Spatial analysis of the school distribution in Brunei Darussalam",
	Long:  "Loads the school listing and administrative boundaries, runs Global Moran's I and Getis-Ord Gi* hotspot analyses, and a school-count vs population regression.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if profile, _ := cmd.Flags().GetString("profile"); profile != "" {
			p, err := config.LoadProfile(profile)
			if err != nil {
				return err
			}
			p.Apply(&cfg.Analysis)
			zap.L().Info("applied analysis profile", zap.String("path", profile))
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("profile", "", "path to an analysis parameter profile (YAML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
