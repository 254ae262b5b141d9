// Package server wires storage, registry and HTTP handlers together and runs
// the HTTP server until its context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go-url-registry/config"
	"go-url-registry/geo"
	"go-url-registry/handlers"
	"go-url-registry/metrics"
	"go-url-registry/registry"
	"go-url-registry/storage"
	"go.uber.org/zap"
)

// Run starts the service and blocks until ctx is cancelled and the server
// has shut down.
func Run(ctx context.Context, logger *zap.Logger, cfg *config.Config) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	reg, err := setupRegistry(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	locator, closeLocator := setupLocator(cfg, logger)
	defer closeLocator()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(promRegistry)

	linkHandler, err := setupLinkHandler(ctx, cfg, reg, locator, m, logger)
	if err != nil {
		return err
	}

	router := setupRouter(linkHandler, m, promRegistry)
	server := setupServer(cfg, router)

	if cfg.PurgeInterval > 0 {
		go runPurger(ctx, reg, cfg.PurgeInterval, m, logger)
	}

	serverErr := make(chan error, 1)
	go startServer(server, logger, serverErr)

	return waitForShutdown(ctx, server, cfg.ShutdownTimeout, serverErr, logger)
}

// openStorage builds the persistence backend selected by cfg.StorageDriver.
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory, "":
		logger.Info("Using in-memory storage", zap.Int("capacity", cfg.StorageCapacity))
		return storage.NewInMemoryStorage(cfg.StorageCapacity, logger), nil
	case config.DriverSQL:
		store, err := storage.NewSQLStorage(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("open sql storage: %w", err)
		}
		return store, nil
	case config.DriverRedis:
		store, err := storage.NewRedisStorage(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func registryOptions(cfg *config.Config) registry.Options {
	return registry.Options{
		MinValidity:         cfg.MinValidityMinutes,
		MaxValidity:         cfg.MaxValidityMinutes,
		DefaultValidity:     cfg.DefaultValidityMinutes,
		CodeLength:          cfg.CodeLength,
		MinCodeLength:       cfg.MinCodeLength,
		MaxCodeLength:       cfg.MaxCodeLength,
		MaxGenerateAttempts: cfg.MaxGenerateAttempts,
		ReservedCodes:       handlers.ReservedCodes(),
	}
}

// setupRegistry loads the registry from store and, if configured, drops
// links that expired while the service was down.
func setupRegistry(ctx context.Context, cfg *config.Config, store storage.Storage, logger *zap.Logger) (*registry.Registry, error) {
	reg, err := registry.New(ctx, store, registryOptions(cfg), logger)
	if err != nil {
		logger.Error("Failed to create registry", zap.Error(err))
		return nil, err
	}

	if cfg.PurgeOnStartup {
		removed, err := reg.PurgeExpired(ctx)
		if err != nil {
			return nil, fmt.Errorf("startup purge: %w", err)
		}
		logger.Info("Startup purge finished", zap.Int("removed", removed))
	}
	return reg, nil
}

// setupLocator opens the GeoIP database when one is configured. Failing to
// open it is not fatal; clicks are then labelled without a lookup.
func setupLocator(cfg *config.Config, logger *zap.Logger) (geo.Locator, func()) {
	if cfg.GeoIPDatabase == "" {
		return geo.StaticLocator{}, func() {}
	}

	locator, err := geo.NewGeoIPLocator(cfg.GeoIPDatabase, logger)
	if err != nil {
		logger.Warn("GeoIP database unavailable, using static locations", zap.Error(err))
		return geo.StaticLocator{}, func() {}
	}
	return locator, func() {
		if err := locator.Close(); err != nil {
			logger.Error("Failed to close GeoIP database", zap.Error(err))
		}
	}
}

func setupLinkHandler(ctx context.Context, cfg *config.Config, service registry.Service, locator geo.Locator, m *metrics.Metrics, logger *zap.Logger) (handlers.LinkHandlerInterface, error) {
	handlerCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	handler, err := handlers.NewLinkHandler(handlerCtx, service, cfg, locator, m, logger)
	if err != nil {
		logger.Error("Failed to create link handler", zap.Error(err))
		return nil, err
	}

	logger.Debug("Link handler created successfully")
	return handler, nil
}

func setupRouter(linkHandler handlers.LinkHandlerInterface, m *metrics.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.RegisterRoutes(router, linkHandler, m, gatherer)
	return router
}

func setupServer(cfg *config.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func startServer(srv *http.Server, logger *zap.Logger, errCh chan<- error) {
	logger.Info("Starting server", zap.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", zap.Error(err))
		errCh <- err
		return
	}
	logger.Debug("Server stopped")
}

// runPurger removes expired links every interval until ctx is done.
func runPurger(ctx context.Context, service registry.Service, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := service.PurgeExpired(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Periodic purge failed", zap.Error(err))
				}
				continue
			}
			if removed > 0 {
				m.LinksPurgedTotal.WithLabelValues("expired").Add(float64(removed))
				logger.Info("Periodic purge removed expired links", zap.Int("removed", removed))
			}
		}
	}
}

func waitForShutdown(ctx context.Context, srv *http.Server, timeout time.Duration, serverErr <-chan error, logger *zap.Logger) error {
	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutdown requested. Initiating server shutdown...")

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server gracefully stopped")
	return nil
}
