package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/dashboard"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		catalog, err := initCatalog(cfg)
		if err != nil {
			return err
		}
		client := initClient(cfg)

		triggerCtx, cancelTriggers := context.WithCancel(context.Background())
		defer cancelTriggers()

		dash, err := dashboard.New(triggerCtx, dashboard.Options{
			Client:         client,
			NewExplorer:    explorerFactory(cfg, client, catalog),
			SessionTTL:     cfg.Server.SessionTTL(),
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         zap.L().Named("dashboard"),
		})
		if err != nil {
			return err
		}
		go dash.Sessions().Run(ctx, time.Minute)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           dash.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
			cancelTriggers()
		}()

		zap.L().Info("starting dashboard",
			zap.Int("port", port),
			zap.String("backend", cfg.API.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		dash.Wait()
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
