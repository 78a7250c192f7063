package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridsight/heatgrid-cli/internal/model"
	"github.com/gridsight/heatgrid-cli/internal/stage"
	"github.com/gridsight/heatgrid-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the unified table over HTTP",
	Long:  "Read-only JSON API over the pipeline output: the unified daily table and the stage run ledger.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "serve: migrate")
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st, cfg.Server.AllowedOrigins),
		}

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

// newRouter builds the read-only API. Nothing here mutates the database;
// rebuilds stay in the CLI where the run ledger records them.
func newRouter(st *store.Store, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/v1/unified", func(w http.ResponseWriter, req *http.Request) {
		// Before the first full pipeline run the unified table is absent;
		// serve an empty result rather than a query error.
		exists, err := st.TableExists(req.Context(), "heat_load_daily")
		if err != nil {
			writeError(w, err)
			return
		}
		days := []model.UnifiedDay{}
		if exists {
			if days, err = st.ReadUnified(req.Context()); err != nil {
				writeError(w, err)
				return
			}
			if days == nil {
				days = []model.UnifiedDay{}
			}
		}
		writeJSON(w, http.StatusOK, days)
	})

	r.Get("/v1/stages", func(w http.ResponseWriter, req *http.Request) {
		entries, err := stage.NewRunLog(st).ListAll(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if entries == nil {
			entries = []stage.RunEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
