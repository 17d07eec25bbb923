package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"obsquery/api"
	"obsquery/config"
	"obsquery/util/goroutine"

	"go.uber.org/zap"
)

// App represents the obsquery service with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Storage and query pipeline
	Components *Components

	// Services
	APIServer *api.API

	// Lifecycle
	serviceWg  *sync.WaitGroup
	shutdownCh chan struct{}
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{
		serviceWg:  &sync.WaitGroup{},
		shutdownCh: make(chan struct{}),
	}

	cfg, err := InitConfig()
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	logger, sugar, err := InitLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("obsquery starting...")
	LogConfigSummary(cfg, sugar)

	components, err := InitComponents(ctx, cfg, sugar)
	if err != nil {
		return nil, err
	}
	app.Components = components

	if err := components.Index.EnsureIndex(ctx); err != nil {
		_ = components.Close()
		return nil, fmt.Errorf("failed to prepare search index: %w", err)
	}

	return app, nil
}

// Start starts the HTTP API.
func (a *App) Start(ctx context.Context) error {
	checks := map[string]api.HealthChecker{
		"search":    a.Components.Index,
		"documents": a.Components.Store,
	}
	a.APIServer = api.NewAPI(a.Components.Pipeline, checks, a.Config, a.Sugar)

	addr := fmt.Sprintf(":%d", a.Config.API.Port)
	a.Sugar.Infow("Starting API server", "addr", addr)

	goroutine.Go(a.serviceWg, "api-server", a.Sugar, func() {
		if err := a.APIServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("API server stopped unexpectedly", "error", err)
			a.requestShutdown()
		}
	})

	return nil
}

// requestShutdown releases WaitForShutdown without a signal.
func (a *App) requestShutdown() {
	select {
	case <-a.shutdownCh:
	default:
		close(a.shutdownCh)
	}
}

// WaitForShutdown blocks until a shutdown signal is received or a service fails.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		a.Sugar.Infow("Shutdown signal received", "signal", sig.String())
	case <-a.shutdownCh:
	}
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	a.Sugar.Info("Phase 1: Stopping API server...")
	if a.APIServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
	}

	a.Sugar.Info("Phase 2: Waiting for service goroutines to complete...")
	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.Sugar.Info("All service goroutines stopped successfully")
	case <-time.After(10 * time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	a.Sugar.Info("Phase 3: Closing storage backends...")
	if a.Components != nil {
		if err := a.Components.Close(); err != nil {
			a.Sugar.Errorw("Failed to close storage backends", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
