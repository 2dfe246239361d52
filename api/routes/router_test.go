package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	alertsvc "github.com/chanmoly/khmart-backend/internal/alerts"
	cartsvc "github.com/chanmoly/khmart-backend/internal/cart"
	checkoutsvc "github.com/chanmoly/khmart-backend/internal/checkout"
	inventorysvc "github.com/chanmoly/khmart-backend/internal/inventory"
	pkgAuth "github.com/chanmoly/khmart-backend/pkg/auth"
	"github.com/chanmoly/khmart-backend/pkg/config"
	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/enums"
	"github.com/chanmoly/khmart-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubCatalog struct {
	products []models.Product
}

func (s stubCatalog) ListProducts(context.Context, int, int) ([]models.Product, error) {
	return s.products, nil
}

func (s stubCatalog) GetProduct(_ context.Context, slug string) (*models.Product, error) {
	for i := range s.products {
		if s.products[i].Slug == slug {
			return &s.products[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s stubCatalog) GetActiveVariant(context.Context, uuid.UUID) (*models.ProductVariant, error) {
	return nil, gorm.ErrRecordNotFound
}

type stubCart struct {
	cart *models.Cart
}

func (s stubCart) AddItem(context.Context, uuid.UUID, uuid.UUID, int) (*models.Cart, error) {
	return s.cart, nil
}

func (s stubCart) SetQuantity(context.Context, uuid.UUID, uuid.UUID, int) (*models.Cart, error) {
	return s.cart, nil
}

func (s stubCart) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*models.Cart, error) {
	return s.cart, nil
}

func (s stubCart) Get(context.Context, uuid.UUID) (*models.Cart, cartsvc.Totals, error) {
	return s.cart, cartsvc.ComputeTotals(s.cart), nil
}

type stubCheckout struct {
	result *checkoutsvc.Result
}

func (s stubCheckout) Execute(context.Context, uuid.UUID, checkoutsvc.Input) (*checkoutsvc.Result, error) {
	return s.result, nil
}

type stubOrders struct{}

func (stubOrders) ListForUser(context.Context, uuid.UUID, int, int) ([]models.Order, error) {
	return nil, nil
}

func (stubOrders) GetForUser(context.Context, uuid.UUID, string) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubOrders) MarkPaid(context.Context, *gorm.DB, *models.Order, time.Time) error { return nil }

func (stubOrders) MarkExpired(context.Context, *gorm.DB, *models.Order) error { return nil }

type stubOTP struct {
	requests int
}

func (s *stubOTP) Request(context.Context, string, enums.OTPPurpose, *string) error {
	s.requests++
	return nil
}

func (s *stubOTP) Verify(context.Context, string, enums.OTPPurpose, string) (*models.User, error) {
	return &models.User{ID: uuid.New(), Email: "shopper@example.com", Role: enums.UserRoleCustomer}, nil
}

type stubInventory struct{}

func (stubInventory) Available(context.Context, uuid.UUID, uuid.UUID) (int, error) { return 0, nil }

func (stubInventory) TotalAvailable(context.Context, uuid.UUID) (int, error) { return 0, nil }

func (stubInventory) BranchLevels(context.Context, uuid.UUID) ([]models.InventoryItem, error) {
	return nil, nil
}

func (stubInventory) DeductStock(context.Context, *gorm.DB, uuid.UUID, int) error { return nil }

func (stubInventory) RestoreStock(context.Context, *gorm.DB, uuid.UUID, int) error { return nil }

func (stubInventory) ImportStock(context.Context, inventorysvc.ImportInput) (*models.StockImport, error) {
	return &models.StockImport{ID: uuid.New()}, nil
}

func (stubInventory) AdjustStock(context.Context, inventorysvc.AdjustInput) (*models.InventoryItem, error) {
	return &models.InventoryItem{}, nil
}

func (stubInventory) SetThreshold(context.Context, uuid.UUID, uuid.UUID, int) (*models.InventoryItem, error) {
	return &models.InventoryItem{}, nil
}

type stubAlerts struct {
	result alertsvc.ScanResult
}

func (s stubAlerts) Scan(context.Context) (alertsvc.ScanResult, error) { return s.result, nil }

func (s stubAlerts) ListUnresolved(context.Context, int, int) ([]models.StockAlert, error) {
	return nil, nil
}

func testRouter(t *testing.T, otp *stubOTP) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "khmart", ExpirationMinutes: 60},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	product := models.Product{
		ID:        uuid.New(),
		Name:      "Galaxy A56",
		Slug:      "galaxy-a56",
		BasePrice: decimal.RequireFromString("549.00"),
		IsActive:  true,
	}
	order := &models.Order{ID: uuid.New(), OrderNumber: "A1B2C3D4E5F6", Status: enums.OrderStatusPending}

	return NewRouter(RouterParams{
		Config:    cfg,
		Logger:    logg,
		DB:        stubPinger{},
		Catalog:   stubCatalog{products: []models.Product{product}},
		Cart:      stubCart{cart: &models.Cart{ID: uuid.New()}},
		Checkout:  stubCheckout{result: &checkoutsvc.Result{Order: order, PaymentURL: "https://checkout.payway.com.kh/x"}},
		Orders:    stubOrders{},
		OTP:       otp,
		Inventory: stubInventory{},
		Alerts:    stubAlerts{result: alertsvc.ScanResult{AlertsCreated: 2, AlertsResolved: 1}},
	})
}

func bearerToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	cfg := config.JWTConfig{Secret: "secret", Issuer: "khmart", ExpirationMinutes: 60}
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "shopper@example.com",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthLive(t *testing.T) {
	router := testRouter(t, &stubOTP{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProductListIsPublic(t *testing.T) {
	router := testRouter(t, &stubOTP{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "galaxy-a56") {
		t.Fatalf("expected product slug in body, got %s", resp.Body.String())
	}
}

func TestCartRequiresAuth(t *testing.T) {
	router := testRouter(t, &stubOTP{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartFetchWithToken(t *testing.T) {
	router := testRouter(t, &stubOTP{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearerToken(t, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCheckoutCreatesOrder(t *testing.T) {
	router := testRouter(t, &stubOTP{})
	body := strings.NewReader(`{"shipping_address":"12 Norodom Blvd, Phnom Penh"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
	req.Header.Set("Authorization", bearerToken(t, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "payment_url") {
		t.Fatalf("expected payment_url in body, got %s", resp.Body.String())
	}
}

func TestInventoryRoutesRequireAdmin(t *testing.T) {
	router := testRouter(t, &stubOTP{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/alerts/scan", nil)
	req.Header.Set("Authorization", bearerToken(t, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAlertScanAsAdmin(t *testing.T) {
	router := testRouter(t, &stubOTP{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/alerts/scan", nil)
	req.Header.Set("Authorization", bearerToken(t, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "alerts_created") {
		t.Fatalf("expected scan counters in body, got %s", resp.Body.String())
	}
}

func TestOTPRequestAccepted(t *testing.T) {
	otp := &stubOTP{}
	router := testRouter(t, otp)
	body := strings.NewReader(`{"email":"shopper@example.com","purpose":"LOGIN"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/request", body)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", resp.Code, resp.Body.String())
	}
	if otp.requests != 1 {
		t.Fatalf("expected otp request recorded, got %d", otp.requests)
	}
}

func TestOTPVerifyMintsToken(t *testing.T) {
	router := testRouter(t, &stubOTP{})
	body := strings.NewReader(`{"email":"shopper@example.com","purpose":"LOGIN","code":"123456"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/verify", body)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "access_token") {
		t.Fatalf("expected access token in body, got %s", resp.Body.String())
	}
}
