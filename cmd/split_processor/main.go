package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/membership-split-service/internal/config"
	"github.com/membership-split-service/internal/data/postgres"
	"github.com/membership-split-service/internal/logger"
	"github.com/membership-split-service/internal/platform/messaging/consumers"
	"github.com/membership-split-service/internal/platform/messaging/producers"
	"github.com/membership-split-service/internal/platform/persistence"
	"github.com/membership-split-service/internal/provider"
	"github.com/membership-split-service/internal/split_processor/components"
	"github.com/membership-split-service/internal/split_processor/consumer"
	"github.com/membership-split-service/internal/split_processor/service"
	"github.com/membership-split-service/internal/split_processor/sweeper"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("split_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Split Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	contributionRepo := postgres.NewContributionRepository(log, postgresDB)
	nodeRepo := postgres.NewNodeRepository(log, postgresDB)
	configRepo := postgres.NewSplitConfigRepository(log, postgresDB)
	entryRepo := postgres.NewSplitEntryRepository(log, postgresDB)
	accountRepo := postgres.NewDestinationAccountRepository(log, postgresDB)

	// Initialize payment provider client
	providerClient := provider.NewHTTPClient(log, &cfg.Provider)

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// Initialize the event processor with all split components
	eventProcessor, transferExecutor, err := components.CreateEventProcessor(
		postgresDB,
		contributionRepo,
		nodeRepo,
		configRepo,
		entryRepo,
		accountRepo,
		providerClient,
		log,
		cfg,
	)
	if err != nil {
		log.Error("Failed to initialize event processor", "error", err)
		os.Exit(1)
	}

	// Initialize payment event handler
	paymentEventHandler := consumer.NewPaymentEventHandler(
		log,
		eventProcessor,
		dlqProducer,
	)

	// Initialize pending-entry sweeper
	pendingSweeper := sweeper.NewSweeper(
		&cfg.Sweeper,
		entryRepo,
		transferExecutor,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.PaymentTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.PaymentTopic, cfg.Kafka.ConsumerGroup, paymentEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start sweeper in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting pending-entry sweeper",
			"interval", cfg.Sweeper.Interval.String(),
			"batch_size", cfg.Sweeper.BatchSize,
		)
		pendingSweeper.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool if it's a WorkerPoolEventProcessor
	if wpProcessor, ok := eventProcessor.(*service.WorkerPoolEventProcessor); ok {
		log.Info("Shutting down worker pool", "running_workers", wpProcessor.Running())
		wpProcessor.Shutdown()
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serviceErr != nil {
		log.Error("Split Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Split Processor shutdown completed with errors")
	} else {
		log.Info("Split Processor shutdown completed successfully")
	}
}
