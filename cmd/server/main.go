package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	grpcapi "tourledger-backend/internal/api/grpc"
	httpapi "tourledger-backend/internal/api/http"
	"tourledger-backend/internal/clock"
	"tourledger-backend/internal/config"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/metrics"
	"tourledger-backend/internal/notification"
	"tourledger-backend/internal/repository/postgres"
	"tourledger-backend/internal/security"
	"tourledger-backend/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Tour Ledger Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_port", cfg.Server.GRPCPort)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db, postgres.RetryPolicy{
		MaxRetries: cfg.Ledger.MaxRetries,
		Backoff:    cfg.RetryBackoff(),
	})

	// Initialize Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize Notifications
	notifier, closeNotifier, err := notification.NewFromConfig(ctx, cfg.Notification, m)
	if err != nil {
		logger.Error("Failed to initialize notifications", "error", err)
		log.Fatalf("Failed to initialize notifications: %v", err)
	}
	defer closeNotifier()
	dispatcher := service.NewDispatcher(notifier, cfg.NotifyTimeout(), m)

	// Initialize Services
	deps := service.Deps{
		Store:      store,
		Clock:      clock.RealClock{},
		Dispatcher: dispatcher,
		Metrics:    m,
		Alerter:    notification.NewDiscrepancyAlerter(notifier),
	}
	balanceSvc := service.NewBalanceService(deps)
	withdrawalSvc := service.NewWithdrawalService(deps)
	refundSvc := service.NewRefundService(deps)
	reconcileSvc := service.NewReconciliationService(deps, cfg.Ledger.ReconcilePageSize)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)

	// Set up HTTP server
	handler := httpapi.NewHandler(balanceSvc, withdrawalSvc, refundSvc, reconcileSvc, store)
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(handler, tokenManager, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Set up gRPC listener (reconciliation + health)
	var grpcServer *grpc.Server
	if cfg.Server.GRPCPort != 0 {
		lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
			log.Fatalf("Failed to listen: %v", err)
		}
		var hs grpcapi.StatusSetter
		grpcServer, hs = grpcapi.NewServer(tokenManager, reconcileSvc)
		go grpcapi.NewHealthMonitor(store, hs, 10*time.Second).Run(ctx)
		go func() {
			logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Error("Server failed", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	dispatcher.Wait()
	logger.Info("Tour Ledger Backend stopped. Goodbye!")
}
