// BNPL Gateway - captures installment payments for a WooCommerce store.
// Designed for Cloud Run deployment; shared state lives in MySQL and Redis
// when configured.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bnpl-gateway/internal/capture"
	"bnpl-gateway/internal/config"
	"bnpl-gateway/internal/flowstore"
	"bnpl-gateway/internal/handler"
	"bnpl-gateway/internal/lock"
	"bnpl-gateway/internal/merchant"
	"bnpl-gateway/internal/middleware"
	"bnpl-gateway/internal/provider"
	"bnpl-gateway/internal/returnstate"
	"bnpl-gateway/internal/session"
	"bnpl-gateway/internal/store"
	"bnpl-gateway/internal/woocommerce"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("provider_environment", string(cfg.Merchant.Environment)),
		slog.String("store_type", cfg.Store.Type),
		slog.Bool("redis", cfg.Redis != nil),
		slog.Bool("mysql", cfg.MySQL != nil),
	)

	settings := merchant.NewHolder(cfg.Settings())

	providerConfig, err := cfg.ProviderClientConfig()
	if err != nil {
		return fmt.Errorf("building provider config: %w", err)
	}
	providerClient, err := provider.New(providerConfig, settings, logger)
	if err != nil {
		return fmt.Errorf("creating provider client: %w", err)
	}

	shop, err := createStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}

	flows, db, err := createFlowStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating flow store: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	locks, closeLocks, err := createLocker(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating locker: %w", err)
	}
	defer closeLocks()

	var signer *returnstate.Signer
	if cfg.ReturnStateSecret != "" {
		if signer, err = returnstate.NewSigner(cfg.ReturnStateSecret, returnstate.DefaultTTL); err != nil {
			return fmt.Errorf("creating return state signer: %w", err)
		}
	} else {
		logger.Warn("return state signing disabled, redirect returns are not bound to orders")
	}

	orchestrator := capture.New(cfg.CaptureConfig(), capture.Deps{
		Provider: providerClient,
		Store:    shop,
		Settings: settings,
		Flows:    flows,
		Locks:    locks,
		Signer:   signer,
	}, logger)

	// Keep cached limits fresh until shutdown
	refresher := merchant.NewRefresher(settings, providerClient, cfg.RefreshInterval, logger)
	go refresher.Run(ctx)

	h := handler.New(orchestrator, settings, handler.Options{
		Pages:      cfg.Pages,
		AdminToken: cfg.AdminToken,
		Refresher:  refresher,
	}, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → request id → logging → session → handler
	// Recovery must be outermost to catch panics from logging middleware
	// Session enforces Checkout-Session on express routes only
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		session.Middleware(handler.ExpressPrefix, logger),
	)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stop()

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// createStore creates the store implementation based on configuration.
func createStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Type {
	case config.StoreWooCommerce:
		return woocommerce.New(woocommerce.Config{
			StoreURL:       cfg.Store.URL,
			ConsumerKey:    cfg.Store.APIKey,
			ConsumerSecret: cfg.Store.APISecret,
			Transport:      cfg.Store.Transport,
		}, logger)
	case config.StoreMemory:
		logger.Warn("using in-memory store, carts and orders are lost on restart")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}
}

// createFlowStore opens MySQL when configured, otherwise keeps flows in memory.
func createFlowStore(ctx context.Context, cfg *config.Config) (flowstore.Store, *sql.DB, error) {
	if cfg.MySQL == nil {
		return flowstore.NewMemory(), nil, nil
	}
	db, err := flowstore.OpenMySQL(ctx, *cfg.MySQL)
	if err != nil {
		return nil, nil, err
	}
	flows := flowstore.NewMySQL(db)
	if err := flows.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return flows, db, nil
}

// createLocker connects to Redis when configured, otherwise locks in process.
func createLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (lock.Locker, func(), error) {
	if cfg.Redis == nil {
		return lock.NewMemory(), func() {}, nil
	}
	client := lock.NewRedisClient(*cfg.Redis)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("pinging redis: %w", err)
	}
	return lock.NewRedis(client, cfg.Redis.Prefix, logger), func() { client.Close() }, nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
