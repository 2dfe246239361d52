package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartLines := `
CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  created_at DATETIME,
  UNIQUE (cart_id, variant_id)
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  base_price NUMERIC NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	variants := `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  color TEXT,
  storage TEXT,
  ram TEXT,
  attributes TEXT,
  base_price NUMERIC NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1
);`
	require.NoError(t, db.Exec(carts).Error)
	require.NoError(t, db.Exec(cartLines).Error)
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(variants).Error)
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubVariantLoader struct {
	variants map[uuid.UUID]*models.ProductVariant
}

func (s *stubVariantLoader) GetActiveVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	variant, ok := s.variants[id]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "variant not found")
	}
	if !variant.IsActive {
		return nil, errors.New(errors.CodeStateConflict, "variant is inactive")
	}
	return variant, nil
}

type stubStockChecker struct {
	available map[uuid.UUID]int
}

func (s *stubStockChecker) TotalAvailable(ctx context.Context, variantID uuid.UUID) (int, error) {
	return s.available[variantID], nil
}

type cartFixture struct {
	db       *gorm.DB
	svc      Service
	variants *stubVariantLoader
	stock    *stubStockChecker
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	db := setupCartTestDB(t)
	variants := &stubVariantLoader{variants: map[uuid.UUID]*models.ProductVariant{}}
	stock := &stubStockChecker{available: map[uuid.UUID]int{}}
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, variants, stock)
	require.NoError(t, err)
	return &cartFixture{db: db, svc: svc, variants: variants, stock: stock}
}

func (f *cartFixture) addVariant(t *testing.T, price string, available int) *models.ProductVariant {
	t.Helper()

	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		SKU:       uuid.NewString(),
		BasePrice: decimal.RequireFromString(price),
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(variant).Error)
	f.variants.variants[variant.ID] = variant
	f.stock.available[variant.ID] = available
	return variant
}

func TestAddItemCreatesThenIncrements(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	variant := f.addVariant(t, "549.00", 10)

	cart, err := f.svc.AddItem(ctx, userID, variant.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(decimal.RequireFromString("549.00")))

	cart, err = f.svc.AddItem(ctx, userID, variant.ID, 3)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
}

func TestAddItemRejectsOverAvailability(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	variant := f.addVariant(t, "100.00", 4)

	_, err := f.svc.AddItem(ctx, userID, variant.ID, 3)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, userID, variant.ID, 2)
	require.Error(t, err)
	appErr := errors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeInsufficientStock, appErr.Code())
	details, ok := appErr.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, variant.SKU, details["sku"])
	assert.Equal(t, 4, details["available"])

	cart, totals, err := f.svc.Get(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, totals.ItemCount)
}

func TestAddItemRejectsInactiveVariant(t *testing.T) {
	f := newCartFixture(t)
	variant := f.addVariant(t, "100.00", 10)
	variant.IsActive = false

	_, err := f.svc.AddItem(context.Background(), uuid.New(), variant.ID, 1)
	require.Error(t, err)
	assert.Equal(t, errors.CodeStateConflict, errors.As(err).Code())
}

func TestSetQuantity(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	variant := f.addVariant(t, "250.00", 6)

	cart, err := f.svc.AddItem(ctx, userID, variant.ID, 1)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	cart, err = f.svc.SetQuantity(ctx, userID, lineID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Lines[0].Quantity)

	_, err = f.svc.SetQuantity(ctx, userID, lineID, 9)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInsufficientStock, errors.As(err).Code())

	_, err = f.svc.SetQuantity(ctx, userID, lineID, 0)
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())
}

func TestSetQuantityChecksStockWhenVariantRowGone(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	variant := f.addVariant(t, "250.00", 6)

	cart, err := f.svc.AddItem(ctx, userID, variant.ID, 2)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	// Drop the variant row so the line loads without its preload, then drain
	// the stock. The availability check must still run by variant id.
	require.NoError(t, f.db.Exec(`DELETE FROM product_variants WHERE id = ?`, variant.ID).Error)
	f.stock.available[variant.ID] = 0

	_, err = f.svc.SetQuantity(ctx, userID, lineID, 50)
	require.Error(t, err)
	appErr := errors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeInsufficientStock, appErr.Code())

	cart, _, err = f.svc.Get(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestSetQuantityRejectsForeignLine(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()
	variant := f.addVariant(t, "99.00", 10)

	cart, err := f.svc.AddItem(ctx, owner, variant.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, other, f.addVariant(t, "10.00", 5).ID, 1)
	require.NoError(t, err)

	_, err = f.svc.SetQuantity(ctx, other, cart.Lines[0].ID, 2)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.As(err).Code())
}

func TestRemoveItem(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	first := f.addVariant(t, "50.00", 10)
	second := f.addVariant(t, "75.00", 10)

	_, err := f.svc.AddItem(ctx, userID, first.ID, 2)
	require.NoError(t, err)
	cart, err := f.svc.AddItem(ctx, userID, second.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)

	var removeID uuid.UUID
	for _, line := range cart.Lines {
		if line.VariantID == first.ID {
			removeID = line.ID
		}
	}

	cart, err = f.svc.RemoveItem(ctx, userID, removeID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, second.ID, cart.Lines[0].VariantID)

	_, err = f.svc.RemoveItem(ctx, userID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.As(err).Code())
}

func TestGetTotals(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	first := f.addVariant(t, "549.00", 10)
	second := f.addVariant(t, "25.50", 10)

	_, err := f.svc.AddItem(ctx, userID, first.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, userID, second.ID, 3)
	require.NoError(t, err)

	cart, totals, err := f.svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)
	assert.Equal(t, 5, totals.ItemCount)
	assert.True(t, totals.Amount.Equal(decimal.RequireFromString("1174.50")),
		"amount %s", totals.Amount)
}

func TestGetCreatesEmptyCart(t *testing.T) {
	f := newCartFixture(t)

	cart, totals, err := f.svc.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0, totals.ItemCount)
	assert.True(t, totals.Amount.IsZero())
}
