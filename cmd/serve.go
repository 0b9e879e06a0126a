package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/dedup"
	"github.com/aue-natural/pricewatch/internal/store"
)

var servePort int

// buildMux wires the read-only status routes.
func buildMux(st *store.SQLiteStore, stateDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
		runID := r.URL.Query().Get("run")
		if runID == "" {
			var err error
			runID, err = st.LatestRunID(r.Context())
			if err != nil {
				http.Error(w, `{"error":"no runs recorded"}`, http.StatusNotFound)
				return
			}
		}

		summary, _, _, err := st.LoadRun(r.Context(), runID)
		if err != nil {
			zap.L().Error("load run failed", zap.String("run_id", runID), zap.Error(err))
			http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	})

	mux.HandleFunc("GET /dedup/stats", func(w http.ResponseWriter, r *http.Request) {
		state := dedup.LoadState(stateDir)
		urls, thumbnails, productIDs := state.Counts()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{
			"seen_urls":        urls,
			"seen_thumbnails":  thumbnails,
			"seen_product_ids": productIDs,
		})
	})

	return mux
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a read-only status server",
	Long:  "Exposes the latest run summary and the deduplication state sizes over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mux := buildMux(st, cfg.Dedup.StateDir)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
