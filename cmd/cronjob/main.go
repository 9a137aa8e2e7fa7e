package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"tourledger-backend/internal/clock"
	"tourledger-backend/internal/config"
	"tourledger-backend/internal/jobs"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/notification"
	"tourledger-backend/internal/repository/postgres"
	"tourledger-backend/internal/scheduler"
	"tourledger-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'reconcile-wallets', 'all-nightly')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Tour Ledger Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db, postgres.RetryPolicy{
		MaxRetries: cfg.Ledger.MaxRetries,
		Backoff:    cfg.RetryBackoff(),
	})

	// Initialize Services. Discrepancy alerts go out synchronously here, so
	// no dispatcher is needed.
	notifier, closeNotifier, err := notification.NewFromConfig(context.Background(), cfg.Notification, nil)
	if err != nil {
		logger.Error("Failed to initialize notifications", "error", err)
		log.Fatalf("Failed to initialize notifications: %v", err)
	}
	defer closeNotifier()

	reconcileSvc := service.NewReconciliationService(service.Deps{
		Store:   store,
		Clock:   clock.RealClock{},
		Alerter: notification.NewDiscrepancyAlerter(notifier),
	}, cfg.Ledger.ReconcilePageSize)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(&jobs.Services{Reconciliation: reconcileSvc}, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.", "next_run", cronScheduler.NextRun())

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "reconcile-wallets":
		jobRunner.ReconcileWallets()
	case "all-nightly":
		jobRunner.RunAllNightlyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - reconcile-wallets\n")
		fmt.Printf("  - all-nightly\n")
		os.Exit(1)
	}
}
