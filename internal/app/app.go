// Package app wires together all dependencies and runs the tea shop client
// service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Hian201/AniceHolidaySample/internal/airtable"
	"github.com/Hian201/AniceHolidaySample/internal/cart"
	"github.com/Hian201/AniceHolidaySample/internal/checkout"
	"github.com/Hian201/AniceHolidaySample/internal/config"
	handler "github.com/Hian201/AniceHolidaySample/internal/handler/http"
	"github.com/Hian201/AniceHolidaySample/internal/history"
	"github.com/Hian201/AniceHolidaySample/internal/menu"
	"github.com/Hian201/AniceHolidaySample/pkg/health"
	"github.com/Hian201/AniceHolidaySample/pkg/httpclient"
)

// App holds the wired dependency graph.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	menuMirror *menu.Mirror
	history    *history.Mirror
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Outbound client to the table backend, with an optional circuit
	// breaker in front.
	baseClient := httpclient.New(cfg.HTTPClientConfig())

	var doer airtable.Doer = baseClient
	var breaker *httpclient.CircuitBreakerClient
	if cfg.Backend.BreakerEnabled {
		cbCfg := httpclient.DefaultCircuitBreakerConfig("airtable")
		cbCfg.Timeout = cfg.Backend.BreakerTimeout
		cbCfg.MinRequests = cfg.Backend.BreakerFailures
		breaker = httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger)
		doer = breaker
	}

	gateway := airtable.NewClient(doer, cfg.Airtable.BaseURL, cfg.Airtable.APIKey, logger)

	// In-memory state.
	menuMirror := menu.NewMirror(gateway, cfg.Airtable.MenuTable, logger)
	cartStore := cart.NewStore()
	historyMirror := history.NewMirror(gateway, cfg.Airtable.OrderTable, cfg.Airtable.ItemsTable, logger)

	orchestrator := checkout.NewOrchestrator(
		gateway,
		cartStore,
		historyMirror,
		logger,
		cfg.Airtable.OrderTable,
		cfg.Airtable.ItemsTable,
		cfg.CheckoutTimeouts(),
	)

	// Health checks. Readiness reports the breaker state so a dead backend
	// pulls the service out of rotation instead of queueing failures.
	healthHandler := health.NewHandler()
	if breaker != nil {
		healthHandler.Register("airtable", func(ctx context.Context) error {
			if breaker.State() == gobreaker.StateOpen {
				return httpclient.ErrCircuitOpen
			}
			return nil
		})
	}

	router := handler.NewRouter(menuMirror, cartStore, orchestrator, historyMirror, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		menuMirror: menuMirror,
		history:    historyMirror,
		httpServer: httpServer,
	}, nil
}

// Run warms the mirrors, starts the HTTP server, and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.warmMirrors(ctx)

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// warmMirrors fetches the menu and order history once at startup. Failures
// are logged, not fatal: both mirrors refresh on demand.
func (a *App) warmMirrors(ctx context.Context) {
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := a.menuMirror.Refresh(warmCtx); err != nil {
		a.logger.Warn("initial menu fetch failed", slog.String("error", err.Error()))
	}
	if err := a.history.Refresh(warmCtx); err != nil {
		a.logger.Warn("initial order history fetch failed", slog.String("error", err.Error()))
	}
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
