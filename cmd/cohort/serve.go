package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/internal/cli"
	httpAdapter "github.com/aretw0/cohort/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only inspection API",
	Long:  `Exposes the user identity and experiment state over HTTP. The server never segments or writes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		handler := httpAdapter.NewHandler(app.Inspector(),
			httpAdapter.WithVersion(cohort.Version),
			httpAdapter.WithLogger(app.Logger),
			httpAdapter.WithMetrics(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})),
		)

		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("Starting cohort server", "addr", addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			app.Logger.Info("Shutting down", "signal", sigCtx.Signal())
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
