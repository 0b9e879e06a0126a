package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/dedup"
	"github.com/aue-natural/pricewatch/internal/engine"
	"github.com/aue-natural/pricewatch/internal/export"
	"github.com/aue-natural/pricewatch/internal/loader"
	"github.com/aue-natural/pricewatch/internal/normalize"
)

var (
	dedupOutFile string
	dedupReport  bool
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Manage the incremental deduplication state",
}

var dedupFileCmd = &cobra.Command{
	Use:   "file <listings.csv>",
	Short: "Filter a CSV of listings against the persisted identity sets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := loader.ReadCSV(args[0])
		if err != nil {
			return err
		}
		rows = normalize.Records(rows)
		rows = engine.Prepare(rows)

		state := dedup.LoadState(cfg.Dedup.StateDir)
		kept, results, stats := state.FilterNew(rows)
		if err := state.Save(cfg.Dedup.StateDir); err != nil {
			return err
		}
		if err := dedup.AppendAudit(cfg.Dedup.StateDir, stats); err != nil {
			return err
		}

		out := dedupOutFile
		if out == "" {
			base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			out = filepath.Join(cfg.Output.Dir, base+"_new.csv")
		}
		if err := export.WriteProducts(out, kept); err != nil {
			return err
		}

		if dedupReport {
			report := struct {
				Stats   dedup.Stats       `json:"stats"`
				Results []dedup.RowResult `json:"results"`
			}{stats, results}
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		}

		zap.L().Info("dedup file complete",
			zap.String("output", out),
			zap.Int("kept", stats.NewRows),
			zap.Int("removed", stats.Removed),
		)
		return nil
	},
}

var dedupStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the persisted identity set sizes and filtering history",
	RunE: func(cmd *cobra.Command, args []string) error {
		state := dedup.LoadState(cfg.Dedup.StateDir)
		urls, thumbnails, productIDs := state.Counts()

		data, err := json.MarshalIndent(struct {
			SeenURLs       int           `json:"seen_urls"`
			SeenThumbnails int           `json:"seen_thumbnails"`
			SeenProductIDs int           `json:"seen_product_ids"`
			Runs           []dedup.Stats `json:"runs"`
		}{urls, thumbnails, productIDs, dedup.LoadAudit(cfg.Dedup.StateDir)}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var dedupRebuildCmd = &cobra.Command{
	Use:   "rebuild <history.csv>...",
	Short: "Rebuild the identity sets from historical export files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state := dedup.RebuildFromHistory(args)
		if err := state.Save(cfg.Dedup.StateDir); err != nil {
			return err
		}

		urls, thumbnails, productIDs := state.Counts()
		zap.L().Info("dedup state rebuilt",
			zap.Int("urls", urls),
			zap.Int("thumbnails", thumbnails),
			zap.Int("product_ids", productIDs),
		)
		return nil
	},
}

var dedupResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the persisted identity sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dedup.Reset(cfg.Dedup.StateDir); err != nil {
			return err
		}
		zap.L().Info("dedup state reset", zap.String("dir", cfg.Dedup.StateDir))
		return nil
	},
}

func init() {
	dedupFileCmd.Flags().StringVar(&dedupOutFile, "out", "", "output CSV for surviving rows")
	dedupFileCmd.Flags().BoolVar(&dedupReport, "report", false, "print the per-row classification report as JSON")
	dedupCmd.AddCommand(dedupFileCmd, dedupStatsCmd, dedupRebuildCmd, dedupResetCmd)
	rootCmd.AddCommand(dedupCmd)
}
