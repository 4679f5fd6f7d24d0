package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-cart/api/routes"
	"github.com/angelmondragon/storefront-cart/internal/cartserver"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// runDevBackend serves the in-memory cart backend until ctx is cancelled.
func runDevBackend(ctx context.Context, cfg *config.Config, addr string, logg *logger.Logger, registry *prometheus.Registry) error {
	svc, err := cartserver.NewService(cartserver.DefaultCatalog())
	if err != nil {
		return err
	}
	handler := routes.NewRouter(cfg.Auth, logg, svc,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		routes.WithCORS(cfg.Dev.CORSOrigins),
	)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting dev cart backend")
	return serve(ctx, server)
}

// startMetricsServer serves /metrics in the background. The returned func
// stops the server and reports how it ended.
func startMetricsServer(ctx context.Context, addr string, registry *prometheus.Registry, logg *logger.Logger) func() error {
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewMetricsRouter(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- serve(serveCtx, server)
	}()
	logg.Info(logg.WithField(ctx, "addr", addr), "serving metrics")

	return func() error {
		cancel()
		return <-done
	}
}

func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
