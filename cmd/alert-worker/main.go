package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/config"
	"budgetwatch/internal/ledger"
	"budgetwatch/internal/log"
	"budgetwatch/internal/rates"
	"budgetwatch/internal/storage"
	"budgetwatch/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting alert-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	if err := amqpClient.Qos(cfg.PrefetchCount); err != nil {
		logger.Error("Failed to set AMQP prefetch", log.FieldError, err)
		os.Exit(1)
	}

	rateStore := rates.NewStore(repo, cfg.BaseCurrency, logger)
	converter := rates.NewConverter(rateStore)
	recalculator := ledger.NewRecalculator(repo, converter, logger)
	alertWorker := worker.NewAlertWorker(recalculator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.Consume(ctx, alertWorker.Handle)
	})

	logger.Info("Alert worker running",
		"queue", cfg.AMQPQueue,
		log.FieldBase, cfg.BaseCurrency)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Alert worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Alert worker shutdown complete")
}
