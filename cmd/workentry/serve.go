package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/workentry-engine/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the generation scheduler",
	Long: `Serves the REST API and, when enabled, regenerates the current month
for every running contract at the configured interval.

On SIGINT/SIGTERM the scheduler stops, active requests get 30s to
complete, then the database is closed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := api.NewGenerator(store, logger, cfg.Engine.Options()...)
		handler := api.NewHandler(gen)
		router := api.NewRouter(handler, logger, cfg.Server.CORSOrigins)

		scheduler := api.NewGenerationScheduler(gen)
		scheduler.Enabled = cfg.Scheduler.Enabled
		scheduler.CheckInterval = cfg.Scheduler.Interval

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		failed := make(chan error, 1)
		go func() {
			logger.Infof("Server starting on http://localhost:%d", cfg.Server.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				failed <- err
			}
		}()
		scheduler.Start()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-failed:
			scheduler.Stop()
			return fmt.Errorf("server failed: %w", err)
		}

		logger.Info("Shutting down server...")
		scheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info("Server stopped")
		return nil
	},
}
