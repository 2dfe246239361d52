package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chanmoly/khmart-backend/internal/alerts"
	"github.com/chanmoly/khmart-backend/internal/cron"
	"github.com/chanmoly/khmart-backend/internal/inventory"
	"github.com/chanmoly/khmart-backend/internal/orders"
	"github.com/chanmoly/khmart-backend/pkg/config"
	"github.com/chanmoly/khmart-backend/pkg/db"
	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/metrics"
	"github.com/chanmoly/khmart-backend/pkg/migrate"
	"github.com/chanmoly/khmart-backend/pkg/outbox"
	"github.com/chanmoly/khmart-backend/pkg/redis"
)

const lockKeyFormat = "khmart:cron-worker:lock:%s:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gdb := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	inventorySvc, err := inventory.NewService(inventory.NewRepository(gdb), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	alertSvc, err := alerts.NewService(alerts.NewRepository(gdb), dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create alerts service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(gdb)
	orderSvc, err := orders.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	stockAlertJob, err := cron.NewStockAlertJob(cron.StockAlertJobParams{
		Logger:  logg,
		Scanner: alertSvc,
		Metrics: metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock alert job", err)
		os.Exit(1)
	}

	orderExpiryJob, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:      logg,
		DB:          dbClient,
		Orders:      orderRepo,
		Transitions: orderSvc,
		Stock:       inventorySvc,
		Outbox:      outboxSvc,
		TTL:         cfg.Cron.PendingOrderTTL,
		Metrics:     metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order expiry job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(gdb),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	// Stock scanning and order expiry run on different cadences, so each gets
	// its own schedule and its own lock.
	stockLock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env, "stock"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock cron lock", err)
		os.Exit(1)
	}
	stockService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(stockAlertJob),
		Lock:     stockLock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.StockScanInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock cron service", err)
		os.Exit(1)
	}

	orderLock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env, "orders"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create order cron lock", err)
		os.Exit(1)
	}
	orderService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(orderExpiryJob, retentionJob),
		Lock:     orderLock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.OrderExpiryInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	metricsServer := &http.Server{
		Addr:    ":" + cfg.Cron.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		if err := metricsServer.Close(); err != nil {
			logg.Error(ctx, "error closing metrics server", err)
		}
	}()

	errCh := make(chan error, 2)
	go func() { errCh <- stockService.Run(ctx) }()
	go func() { errCh <- orderService.Run(ctx) }()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "cron worker stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env, schedule string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env, schedule)
}
