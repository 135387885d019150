package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"budgetwatch/internal/config"
	"budgetwatch/internal/log"
	"budgetwatch/internal/rates"
	"budgetwatch/internal/storage"
	"budgetwatch/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "refresh rates once and exit")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting rate-refresher")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.ForexAPIURL == "" {
		logger.Error("FOREX_API_URL is required for the rate refresher")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The base currency never gets a rate row, but budgets and
	// expenses denominated in it still need the currency to exist.
	if _, err := repo.EnsureCurrency(context.Background(), cfg.BaseCurrency); err != nil {
		logger.Error("Failed to seed base currency", log.FieldError, err)
		os.Exit(1)
	}

	feed := rates.NewFeed(cfg.ForexAPIURL, cfg.ForexAPIKey)
	rateStore := rates.NewStore(repo, cfg.BaseCurrency, logger)
	refresher := worker.NewRateRefresher(feed, rateStore, cfg.RefreshInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := refresher.RefreshOnce(ctx); err != nil {
			logger.Error("Rate refresh failed", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Rate refresh complete")
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return refresher.Run(ctx)
	})

	logger.Info("Rate refresher running",
		log.FieldBase, cfg.BaseCurrency,
		"interval", cfg.RefreshInterval.String())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Rate refresher stopped", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Rate refresher shutdown complete")
}
