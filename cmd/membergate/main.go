package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/membergate/membergate/config"
	"github.com/membergate/membergate/internal/account"
	"github.com/membergate/membergate/internal/api"
	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/internal/billing"
	"github.com/membergate/membergate/internal/database"
	"github.com/membergate/membergate/internal/logger"
	"github.com/membergate/membergate/internal/mailer"
	"github.com/membergate/membergate/internal/metrics"
	middlewares "github.com/membergate/membergate/internal/middleware"
	"github.com/membergate/membergate/internal/ratelimit"
	"github.com/membergate/membergate/internal/session"
	"github.com/membergate/membergate/internal/store"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting MemberGate application",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close(ctx)

	// Initialize account store
	accountStore := store.New(db)
	if pg, ok := accountStore.(*store.PostgresStore); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to ensure database schema", "error", err)
		}
	}

	// Initialize session store
	sessions, err := session.New(cfg.Redis.URL, cfg.Session.TTL)
	if err != nil {
		logger.Fatal("Failed to initialize session store", "error", err)
	}

	// Initialize credential mailer
	dispatcher := mailer.NewDispatcher(mailer.New(cfg.Mail), cfg.Mail.MaxInflight, cfg.Mail.SendTimeout)

	// Initialize services
	accounts := account.NewService(accountStore, dispatcher)
	authSvc := auth.NewService(accountStore, sessions)
	billingSvc := billing.NewService(cfg.Billing)

	// Setup HTTP server
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)

	// Initialize API handlers
	apiHandler := api.NewHandler(accountStore, billingSvc, accounts, authSvc,
		cfg.Billing.StripeWebhookSecret, Version, BuildTime, GitCommit)
	apiHandler.SetLoginLimiter(newLoginLimiter(cfg))
	apiHandler.RegisterRoutes(r)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Let in-flight credential emails finish
	if err := dispatcher.Drain(shutdownCtx); err != nil {
		logger.Error("Mail dispatcher drain timed out", "error", err)
	}

	logger.Info("Server exited")
}

// newLoginLimiter prefers the shared Redis limiter so throttling holds across
// replicas, falling back to a per-process limiter when Redis is absent.
func newLoginLimiter(cfg *config.Config) middlewares.LoginAllower {
	if cfg.Redis.URL != "" {
		mgr, err := ratelimit.NewManager(cfg.Redis.URL, cfg.Login.AttemptsPerMinute)
		if err == nil {
			return mgr
		}
		logger.Error("Failed to initialize Redis login limiter, using local limiter", "error", err)
	}
	return middlewares.NewLocalLoginLimiter(cfg.Login.AttemptsPerMinute)
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}
