package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/nbox/texturelab/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the texture lab interface",
		Long: `Starts the TextureLab API and web interface.

The browser front-end uploads a reference image, frames the crop, runs albedo
and map generation, tunes each map and downloads the results.`,
		Example: `  # Start server on default port 8888
  texturelab serve

  # Start server on custom port
  texturelab serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					slog.Error("Failed to flush history", "err", err)
				}
			}()

			// batches outlive requests but must settle before history closes
			batchCtx, cancelBatches := context.WithCancel(cmd.Context())
			defer func() {
				cancelBatches()
				a.studio.Wait()
			}()

			if !cmd.Flags().Changed("port") {
				port = a.cfg.Server.Port
			}

			handler := handlers.New(a.studio, a.history, handlers.Options{
				StaticDir:      staticDir,
				MaxUploadBytes: a.cfg.Upload.MaxBytes,
				BaseContext:    batchCtx,
			})

			// Set up routes
			mux := http.NewServeMux()
			handler.Routes(mux)

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("TextureLab interface available", "addr", addr, "url", "http://localhost"+addr, "history", a.history.Path())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&staticDir, "static", "static", "Directory holding the web interface")

	return cmd
}
