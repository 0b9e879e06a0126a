package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/export"
)

var (
	exportRunID  string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a persisted match run",
	Long:  "Loads a persisted run from the local store (latest by default) and writes it as an Excel workbook or CSV set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runID := exportRunID
		if runID == "" {
			runID, err = st.LatestRunID(ctx)
			if err != nil {
				return err
			}
		}

		summary, pairs, unmatched, err := st.LoadRun(ctx, runID)
		if err != nil {
			return err
		}

		switch exportFormat {
		case "xlsx":
			out := exportOut
			if out == "" {
				out = filepath.Join(cfg.Output.Dir, "matches_"+runID+".xlsx")
			}
			if err := export.WriteWorkbook(out, summary, pairs, unmatched); err != nil {
				return err
			}
			zap.L().Info("export complete", zap.String("run_id", runID), zap.String("path", out))
		case "csv":
			dir := exportOut
			if dir == "" {
				dir = cfg.Output.Dir
			}
			if err := export.WriteCSV(dir, summary, pairs, unmatched); err != nil {
				return err
			}
			zap.L().Info("export complete", zap.String("run_id", runID), zap.String("dir", dir))
		default:
			return eris.Errorf("unknown export format %q", exportFormat)
		}

		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run ID to export (default: latest)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (xlsx) or directory (csv)")
	rootCmd.AddCommand(exportCmd)
}
