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
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/httpapi"
	"github.com/mesh-intelligence/bunbetsu/internal/metrics"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cfg.GetString(cfgKeyServerAddr)
		}

		m := metrics.NewCollector("bunbetsu")
		svc, closeFn, err := openCatalog(cfg, m)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if v, err := svc.Version(ctx); err != nil {
			logger.Warn("reading initial catalog version failed", zap.Error(err))
		} else {
			logger.Info("catalog ready", zap.Int64("version", v), zap.String("environment", svc.Environment()))
		}

		watchConfig(cfg, logLevel, logger)

		api := httpapi.New(svc, httpapi.Options{
			Logger:         logger,
			Metrics:        m,
			AllowedOrigins: cfg.GetStringSlice(cfgKeyAllowedOrigins),
		})
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", zap.String("addr", addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return sysError(fmt.Errorf("serve: %w", err))
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetDuration(cfgKeyShutdown))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return sysError(fmt.Errorf("shutdown: %w", err))
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}
