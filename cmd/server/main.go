// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brokebuy/internal/config"
	"brokebuy/internal/handlers"
	"brokebuy/internal/logger"
	"brokebuy/internal/metrics"
	"brokebuy/internal/repositories"
	"brokebuy/internal/repositories/cache"
	"brokebuy/internal/repositories/memory"
	"brokebuy/internal/routes"
	"brokebuy/internal/services/abuse"
	"brokebuy/internal/services/events"
	"brokebuy/internal/services/marketplace"
	"brokebuy/internal/services/purchase"
	"brokebuy/internal/services/ratelimit"
	"brokebuy/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// main performs the following setup:
// - Loads configuration
// - Opens the store (postgres, or in-memory for local runs)
// - Connects redis for the listing lock and balance cache
// - Wires services and routes
// - Starts the auto-refill sweep and the HTTP server
func main() {
	config.LoadEnv()
	cfg := config.Load()
	logger.SetLevel(config.GetEnv("LOG_LEVEL", "info"))
	if config.IsProduction() {
		logger.UseJSON()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.HealthCheck{}

	// Store
	var store repositories.Store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using the in-memory store, data is lost on restart")
		store = memory.New()
	default:
		db, err := repositories.InitDB(cfg.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer repositories.CloseDB(db)
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatalf("Failed to get database instance: %v", err)
		}
		checks["database"] = sqlDB.PingContext
		store = repositories.NewGormStore(db)
		logger.Info("✅ Successfully connected to database with connection pooling")
	}

	// Redis backs the listing lock and the balance cache. Without it the
	// lock is process-local and balances are read from the store.
	var (
		locker       purchase.Locker = repositories.NewLocalLocker()
		balanceCache wallet.BalanceCache
	)
	if config.GetBoolEnv("REDIS_ENABLED", cfg.StoreDriver != "memory") {
		rdb := cache.NewRedisClient(cfg.Redis)
		if err := cache.Ping(ctx, rdb); err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		cacheService := cache.NewCacheService(rdb, 5*time.Minute)
		defer func() {
			if err := cacheService.Close(); err != nil {
				logger.Warnf("Failed to close Redis connection: %v", err)
			}
		}()
		checks["redis"] = cacheService.HealthCheck
		locker = repositories.NewRedisLocker(rdb, cfg.Limits.ListingLockTTL)
		balanceCache = cacheService
		logger.Info("✅ Connected to redis")
	}

	// Events
	var publisher events.Publisher = events.LogPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Warnf("Failed to close kafka writer: %v", err)
			}
		}()
		publisher = kafkaPublisher
		logger.Infof("publishing events to kafka topic %s", cfg.Kafka.Topic)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheus(registry)

	// Services
	limiter := ratelimit.NewService(store, collector, ratelimit.Config{Limits: cfg.Limits})
	walletService := wallet.NewService(store, limiter, balanceCache, publisher, collector, wallet.Config{Limits: cfg.Limits})
	abuseService := abuse.NewService(store, collector, abuse.Config{Limits: cfg.Limits})
	purchaseService := purchase.NewService(store, walletService, abuseService, locker, publisher, collector,
		purchase.Config{Limits: cfg.Limits})
	marketplaceService := marketplace.NewService(store, limiter, nil)

	go runRefillSweep(ctx, walletService, cfg.Limits.AutoRefillInterval)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "brokebuy",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Limits.TransferTimeout + 5*time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		JWTSecret:    cfg.JWTSecret,
		Wallet:       walletService,
		Purchase:     purchaseService,
		Marketplace:  marketplaceService,
		Abuse:        abuseService,
		Gatherer:     registry,
		HealthChecks: checks,
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(cfg.Limits.TransferTimeout); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Errorf("server stopped: %v", err)
	}
}

// runRefillSweep periodically refills every wallet below the threshold.
func runRefillSweep(ctx context.Context, walletService wallet.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := walletService.SweepAutoRefill(ctx)
			if err != nil {
				logger.Errorf("auto-refill sweep failed: %v", err)
				continue
			}
			logger.Infof("auto-refill sweep: checked=%d refilled=%d failed=%d",
				result.Checked, result.Refilled, result.Failed)
		}
	}
}
