package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	alertconsumer "github.com/chanmoly/khmart-backend/internal/consumers/alerts"
	"github.com/chanmoly/khmart-backend/internal/notifications"
	"github.com/chanmoly/khmart-backend/pkg/config"
	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/outbox/idempotency"
	"github.com/chanmoly/khmart-backend/pkg/pubsub"
	"github.com/chanmoly/khmart-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "alerts-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "alerts-worker"

	logg = logger.New(logger.Options{
		ServiceName: "alerts-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.AlertsSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "alerts subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Outbox.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	consumer, err := alertconsumer.NewConsumer(notifications.NewLogStockNotifier(logg), manager, logg)
	requireResource(ctx, logg, "stock alert consumer", err)

	worker, err := alertconsumer.NewWorker(subscription, consumer, logg)
	requireResource(ctx, logg, "alerts worker", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "alerts worker ready")

	if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "alerts worker failed", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "alerts worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
