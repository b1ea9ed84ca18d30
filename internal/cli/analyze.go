package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/geosift/eligo/internal/config"
	"github.com/geosift/eligo/internal/eligibility"
	"github.com/geosift/eligo/internal/geom"
	"github.com/geosift/eligo/internal/loader"
	"github.com/geosift/eligo/internal/logger"
	"github.com/geosift/eligo/internal/server"
)

type analyzeFlags struct {
	input      string
	eligible   string
	restricted string
	crs        string
	threshold  float64
	workers    int
	logLevel   string
}

func newAnalyzeCmd() *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one eligibility analysis from an analysis description file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "analysis description file (JSON)")
	cmd.Flags().StringVar(&flags.eligible, "eligible", "eligible.geojson", "output path for the eligible region")
	cmd.Flags().StringVar(&flags.restricted, "restricted", "restricted.geojson", "output path for the eligible-with-restrictions region")
	cmd.Flags().StringVar(&flags.crs, "crs", "", "target reference system (overrides the description file)")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", -1, "sliver threshold in squared CRS units (overrides the description file)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "preprocessing workers (default from environment)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runAnalyze(cmd *cobra.Command, flags analyzeFlags) error {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	if flags.workers > 0 {
		cfg.PreprocessWorkers = flags.workers
	}
	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}

	zl := logger.Build(logger.Config{Level: level, Console: true, Component: "eligo"}, os.Stderr)
	log := logger.NewSlog(&zl)

	data, err := os.ReadFile(flags.input)
	if err != nil {
		return fmt.Errorf("read analysis description: %w", err)
	}
	var req server.AnalyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parse analysis description: %w", err)
	}
	if flags.crs != "" {
		req.CRS = flags.crs
	}
	if flags.threshold >= 0 {
		req.SliverThreshold = &flags.threshold
	}

	in, err := req.ToInput(cfg)
	if err != nil {
		return err
	}

	fileLoader, err := loader.New(log, cfg.LayerCacheSize)
	if err != nil {
		return err
	}
	engine := eligibility.New(log, fileLoader, cfg.PreprocessWorkers)

	runID := uuid.NewString()
	ctx := logger.WithRunID(cmd.Context(), runID)

	start := time.Now()
	out, err := engine.Run(ctx, in)
	if err != nil {
		return err
	}

	if err := writeCollection(flags.eligible, out.Eligible); err != nil {
		return err
	}
	if err := writeCollection(flags.restricted, out.EligibleWithRestrictions); err != nil {
		return err
	}

	eligibleArea := totalArea(out.Eligible)
	restrictedArea := totalArea(out.EligibleWithRestrictions)
	log.Info("analysis complete",
		"run_id", runID,
		"eligible_area", eligibleArea,
		"restricted_area", restrictedArea,
		"duration", time.Since(start).String())

	fmt.Fprintf(cmd.OutOrStdout(), "eligible: %s (area %.2f)\n", flags.eligible, eligibleArea)
	fmt.Fprintf(cmd.OutOrStdout(), "restricted: %s (area %.2f)\n", flags.restricted, restrictedArea)
	return nil
}

func writeCollection(path string, c geom.Collection) error {
	b, err := geom.EncodeGeoJSON(c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func totalArea(c geom.Collection) float64 {
	total := 0.0
	for _, f := range c.Features {
		if a, err := geom.Area(f.Geometry); err == nil {
			total += a
		}
	}
	return total
}
