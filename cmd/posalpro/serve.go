package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/morabah/posalpro-app-sub013/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the API server and its background cache janitor. SIGINT or SIGTERM triggers a graceful shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := server.Build(ctx, cfg, logger, Version)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           app.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if isTerminal(os.Stdout) {
			printBanner(cmd.OutOrStdout())
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return app.Start(gctx)
		})
		g.Go(func() error {
			logger.Info("server.listening", "addr", srv.Addr, "version", Version)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("server.shutdown", "timeout", cfg.ShutdownTimeout)

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server.shutdown_incomplete", "error", err)
				return srv.Close()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("server.stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address, e.g. :8080")
	serveCmd.Flags().String("routes", "", "Routes file overriding the built-in declarations")
}
