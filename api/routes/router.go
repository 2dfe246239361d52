package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chanmoly/khmart-backend/api/controllers"
	webhookcontrollers "github.com/chanmoly/khmart-backend/api/controllers/webhooks"
	"github.com/chanmoly/khmart-backend/api/middleware"
	alertsvc "github.com/chanmoly/khmart-backend/internal/alerts"
	cartsvc "github.com/chanmoly/khmart-backend/internal/cart"
	catalogsvc "github.com/chanmoly/khmart-backend/internal/catalog"
	checkoutsvc "github.com/chanmoly/khmart-backend/internal/checkout"
	inventorysvc "github.com/chanmoly/khmart-backend/internal/inventory"
	ordersvc "github.com/chanmoly/khmart-backend/internal/orders"
	otpsvc "github.com/chanmoly/khmart-backend/internal/otp"
	paywaywebhook "github.com/chanmoly/khmart-backend/internal/webhooks/payway"
	"github.com/chanmoly/khmart-backend/pkg/config"
	"github.com/chanmoly/khmart-backend/pkg/db"
	"github.com/chanmoly/khmart-backend/pkg/enums"
	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/redis"
)

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Catalog     catalogsvc.Service
	Cart        cartsvc.Service
	Checkout    checkoutsvc.Service
	Orders      ordersvc.Service
	OTP         otpsvc.Service
	Inventory   inventorysvc.Service
	Alerts      alertsvc.Service
	PayWayHooks *paywaywebhook.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	passthrough := func(next http.Handler) http.Handler { return next }
	otpRequestLimit := passthrough
	otpVerifyLimit := passthrough
	idempotency := passthrough
	if p.Redis != nil {
		otpRequestLimit = middleware.AuthRateLimit(middleware.NewAuthRateLimitPolicy(
			"otp-request",
			cfg.AuthRateLimit.OTPRequestWindow,
			cfg.AuthRateLimit.OTPRequestIPLimit,
			cfg.AuthRateLimit.OTPRequestEmailLimit,
		), p.Redis, logg)
		otpVerifyLimit = middleware.AuthRateLimit(middleware.NewAuthRateLimitPolicy(
			"otp-verify",
			cfg.AuthRateLimit.OTPVerifyWindow,
			cfg.AuthRateLimit.OTPVerifyIPLimit,
			cfg.AuthRateLimit.OTPVerifyEmailLimit,
		), p.Redis, logg)
		idempotency = middleware.Idempotency(p.Redis, logg)
	}

	ready := controllers.HealthReady(cfg, logg, p.DB, nil)
	if p.Redis != nil {
		ready = controllers.HealthReady(cfg, logg, p.DB, p.Redis)
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", ready)
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payway", webhookcontrollers.PayWayWebhook(p.PayWayHooks, logg))
	})

	r.Route("/api/v1/auth/otp", func(r chi.Router) {
		r.With(otpRequestLimit).Post("/request", controllers.AuthOTPRequest(p.OTP, logg))
		r.With(otpVerifyLimit).Post("/verify", controllers.AuthOTPVerify(p.OTP, cfg.JWT, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(p.Catalog, logg))
		r.Get("/{slug}", controllers.ProductDetail(p.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(idempotency)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(p.Cart, logg))
			r.Post("/items", controllers.CartAddItem(p.Cart, logg))
			r.Patch("/items/{lineId}", controllers.CartUpdateItem(p.Cart, logg))
			r.Delete("/items/{lineId}", controllers.CartRemoveItem(p.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(p.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(p.Orders, logg))
			r.Get("/{orderNumber}", controllers.OrderDetail(p.Orders, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
			r.Post("/imports", controllers.StockImport(p.Inventory, logg))
			r.Post("/adjustments", controllers.StockAdjust(p.Inventory, logg))
			r.Put("/thresholds", controllers.StockThreshold(p.Inventory, logg))
			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", controllers.AlertList(p.Alerts, logg))
				r.Post("/scan", controllers.AlertScan(p.Alerts, logg))
			})
		})
	})

	return r
}
