package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaumene/resolvarr/internal/api"
	"github.com/amaumene/resolvarr/internal/config"
	"github.com/amaumene/resolvarr/internal/controllers"
	"github.com/amaumene/resolvarr/internal/models"
	"github.com/amaumene/resolvarr/internal/scheduler"
	"github.com/amaumene/resolvarr/internal/services/indexer"
	"github.com/amaumene/resolvarr/internal/services/metadata"
	"github.com/amaumene/resolvarr/internal/services/subtitles"
	"github.com/amaumene/resolvarr/internal/services/torbox"
	"github.com/amaumene/resolvarr/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Resolvarr")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Load release filter
	filter, err := utils.LoadReleaseFilter(cfg.FilterFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load release filter, continuing without it")
		filter = &utils.ReleaseFilter{}
	}

	// 5. Initialize services
	normalizer := metadata.NewNormalizer(cfg, logger)

	indexerClient, err := indexer.NewClient(cfg, filter, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize indexer client: %w", err)
	}
	logger.Info("Indexer client initialized")

	torboxClient, err := torbox.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize TorBox client: %w", err)
	}
	logger.Info("TorBox client initialized")

	resolver := torbox.NewResolver(torboxClient, cfg.CandidateLimit, logger)
	subtitlesClient := subtitles.NewClient(cfg, logger)

	// 6. Initialize controllers
	selector := controllers.NewStreamSelector(logger)
	sessionCtrl := controllers.NewSessionController(db, torboxClient, logger)
	resolveCtrl := controllers.NewResolveController(db, normalizer, indexerClient, resolver, selector, sessionCtrl, subtitlesClient, logger)
	logger.Info("Controllers initialized")

	// 7. Initialize scheduler
	sched := scheduler.NewScheduler(db, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 8. Initialize HTTP server
	server := api.NewServer(cfg, db, resolveCtrl, sessionCtrl, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Resolvarr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Resolvarr stopped")
	return nil
}
