package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/chanmoly/khmart-backend/api/routes"
	"github.com/chanmoly/khmart-backend/internal/alerts"
	"github.com/chanmoly/khmart-backend/internal/cart"
	"github.com/chanmoly/khmart-backend/internal/catalog"
	"github.com/chanmoly/khmart-backend/internal/checkout"
	"github.com/chanmoly/khmart-backend/internal/inventory"
	"github.com/chanmoly/khmart-backend/internal/notifications"
	"github.com/chanmoly/khmart-backend/internal/orders"
	"github.com/chanmoly/khmart-backend/internal/otp"
	"github.com/chanmoly/khmart-backend/internal/users"
	paywaywebhook "github.com/chanmoly/khmart-backend/internal/webhooks/payway"
	"github.com/chanmoly/khmart-backend/pkg/config"
	"github.com/chanmoly/khmart-backend/pkg/db"
	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/migrate"
	"github.com/chanmoly/khmart-backend/pkg/outbox"
	"github.com/chanmoly/khmart-backend/pkg/outbox/idempotency"
	"github.com/chanmoly/khmart-backend/pkg/payway"
	"github.com/chanmoly/khmart-backend/pkg/redis"
)

// callbackIdempotencyTTL bounds how long a processed PayWay callback id is
// remembered. Gateways retry for at most a couple of days.
const callbackIdempotencyTTL = 48 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	catalogSvc, err := catalog.NewService(catalog.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	inventorySvc, err := inventory.NewService(inventory.NewRepository(gdb), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(gdb)
	cartSvc, err := cart.NewService(cartRepo, dbClient, catalogSvc, inventorySvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(gdb)
	orderSvc, err := orders.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paywayClient, err := payway.NewClient(cfg.PayWay)
	if err != nil {
		logg.Error(context.Background(), "failed to create payway client", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(dbClient, cartRepo, orderRepo, inventorySvc, paywayClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	otpSvc, err := otp.NewService(
		otp.NewRepository(gdb),
		users.NewRepository(gdb),
		notifications.NewLogSender(logg),
		redisClient,
		cfg.OTP,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create otp service", err)
		os.Exit(1)
	}

	alertSvc, err := alerts.NewService(alerts.NewRepository(gdb), dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create alerts service", err)
		os.Exit(1)
	}

	callbackGuard, err := idempotency.NewManager(redisClient, callbackIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create callback idempotency manager", err)
		os.Exit(1)
	}

	webhookSvc, err := paywaywebhook.NewService(paywaywebhook.ServiceParams{
		OrderRepo:         orderRepo,
		OrderTransitions:  orderSvc,
		Verifier:          paywayClient,
		Idempotency:       callbackGuard,
		Events:            outboxSvc,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payway webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Catalog:     catalogSvc,
			Cart:        cartSvc,
			Checkout:    checkoutSvc,
			Orders:      orderSvc,
			OTP:         otpSvc,
			Inventory:   inventorySvc,
			Alerts:      alertSvc,
			PayWayHooks: webhookSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
