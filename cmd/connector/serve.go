package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/pay-connector/internal/interfaces/rest/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var noSweeps bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the notification endpoint and the background sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			logger.Info("starting connector",
				"env", cfg.Primary.Env,
				"port", cfg.Server.Port,
				"storage", cfg.Storage.Driver,
				"locking", cfg.Locking.Driver,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			server := &http.Server{
				Addr:         "0.0.0.0:" + cfg.Server.Port,
				Handler:      a.handler(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			if !noSweeps {
				g.Go(func() error {
					a.captures.Start(gctx)
					return nil
				})
				g.Go(func() error {
					a.expiries.Start(gctx)
					return nil
				})
			}
			g.Go(func() error {
				logger.Info("server starting", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down server...")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("server forced to shutdown", "error", err)
				}
				return nil
			})

			err = g.Wait()
			logger.Info("server exited")
			return err
		},
	}

	cmd.Flags().BoolVar(&noSweeps, "no-sweeps", false, "do not run the capture and expiry sweeps in this process")
	return cmd
}

// handler is the routed API wrapped in timeout, logging and panic recovery.
func (a *app) handler() http.Handler {
	mux := http.NewServeMux()
	handlers.NewHandler(a.coordinator, a.notifications, a.logger).RegisterRoutes(mux)
	if a.cfg.Metrics.Enabled {
		mux.Handle("GET "+a.cfg.Metrics.Path, promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	}

	handler := middleware.Recovery(a.logger)(mux)
	handler = middleware.Logging(a.logger)(handler)
	return middleware.Timeout(a.cfg.Server.ReadTimeout)(handler)
}
