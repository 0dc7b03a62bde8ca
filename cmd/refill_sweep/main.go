// Command refill_sweep runs one auto-refill pass over every wallet below
// the refill threshold and exits. It is meant to be run from cron when the
// server's own sweep is disabled.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"brokebuy/internal/config"
	"brokebuy/internal/logger"
	"brokebuy/internal/repositories"
	"brokebuy/internal/services/events"
	"brokebuy/internal/services/ratelimit"
	"brokebuy/internal/services/wallet"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logger.SetLevel(config.GetEnv("LOG_LEVEL", "info"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repositories.InitDB(cfg.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer repositories.CloseDB(db)
	store := repositories.NewGormStore(db)

	var publisher events.Publisher = events.LogPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	limiter := ratelimit.NewService(store, nil, ratelimit.Config{Limits: cfg.Limits})
	walletService := wallet.NewService(store, limiter, nil, publisher, nil, wallet.Config{Limits: cfg.Limits})

	result, err := walletService.SweepAutoRefill(ctx)
	if err != nil {
		logger.Fatalf("auto-refill sweep failed: %v", err)
	}
	logger.Infof("auto-refill sweep done: checked=%d refilled=%d failed=%d credited=%s",
		result.Checked, result.Refilled, result.Failed, result.Credited.StringFixed(2))
}
