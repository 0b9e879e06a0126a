package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/dedup"
	"github.com/aue-natural/pricewatch/internal/engine"
	"github.com/aue-natural/pricewatch/internal/export"
	"github.com/aue-natural/pricewatch/internal/loader"
	"github.com/aue-natural/pricewatch/internal/model"
	"github.com/aue-natural/pricewatch/internal/normalize"
)

var (
	matchInput     string
	matchOutputDir string
	matchSkipDedup bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run the matching passes over a product frame",
	Long:  "Loads product listings from the warehouse (or a CSV file), filters previously seen listings, runs the primary and recovery matching passes, and writes consolidated results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initMatchEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Load rows
		var rows []model.ProductRecord
		if matchInput != "" {
			rows, err = loader.ReadCSV(matchInput)
			if err != nil {
				return err
			}
		} else {
			if cfg.Warehouse.URL == "" {
				return eris.New("no --input file and no warehouse URL configured")
			}
			pg, err := loader.NewPostgres(ctx, cfg.Warehouse)
			if err != nil {
				return err
			}
			defer pg.Close()
			rows, err = pg.LoadProducts(ctx)
			if err != nil {
				return err
			}
		}

		rows = normalize.Records(rows)
		rows = engine.Prepare(rows)

		// Drop listings already seen in earlier runs
		if !matchSkipDedup {
			state := dedup.LoadState(cfg.Dedup.StateDir)
			kept, _, stats := state.FilterNew(rows)
			if err := state.Save(cfg.Dedup.StateDir); err != nil {
				return err
			}
			if err := dedup.AppendAudit(cfg.Dedup.StateDir, stats); err != nil {
				return err
			}
			zap.L().Info("dedup filter applied",
				zap.Int("kept", stats.NewRows),
				zap.Int("dropped", stats.Removed),
			)
			rows = kept
		}

		if len(rows) == 0 {
			zap.L().Warn("no rows to match after filtering")
			return nil
		}

		// Two-pass matching
		primary, unmatched, err := env.Engine.PrimaryPass(ctx, rows)
		if err != nil {
			return eris.Wrap(err, "primary pass")
		}

		recovery, err := env.Engine.RecoveryPass(ctx, unmatched)
		if err != nil {
			return eris.Wrap(err, "recovery pass")
		}

		pairs, finalUnmatched, summary := engine.Consolidate(rows, primary, recovery, cfg.Matcher, env.Embeddings.Model())

		if err := env.Store.SaveRun(ctx, summary, pairs, finalUnmatched); err != nil {
			return err
		}

		outDir := matchOutputDir
		if outDir == "" {
			outDir = cfg.Output.Dir
		}
		if err := export.WriteCSV(outDir, summary, pairs, finalUnmatched); err != nil {
			return err
		}

		zap.L().Info("match run complete",
			zap.String("run_id", summary.RunID),
			zap.Int("pairs", len(pairs)),
			zap.Int("unmatched", len(finalUnmatched)),
			zap.Float64("coverage_pct", summary.CoveragePercentage),
		)
		return nil
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchInput, "input", "", "CSV file of product listings (default: load from warehouse)")
	matchCmd.Flags().StringVar(&matchOutputDir, "output", "", "output directory (default from config)")
	matchCmd.Flags().BoolVar(&matchSkipDedup, "skip-dedup", false, "match all rows, ignoring previously seen listings")
	rootCmd.AddCommand(matchCmd)
}
