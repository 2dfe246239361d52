package inventory

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/errors"
	"github.com/chanmoly/khmart-backend/pkg/logger"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	inventoryItems := `
CREATE TABLE IF NOT EXISTS inventory_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  branch_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 0,
  reserved_quantity INTEGER NOT NULL DEFAULT 0,
  min_threshold INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME,
  UNIQUE (branch_id, variant_id)
);`
	stockImports := `
CREATE TABLE IF NOT EXISTS stock_imports (
  id TEXT PRIMARY KEY,
  branch_id TEXT NOT NULL,
  supplier_id TEXT,
  reference_number TEXT,
  total_cost NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	stockImportItems := `
CREATE TABLE IF NOT EXISTS stock_import_items (
  id TEXT PRIMARY KEY,
  stock_import_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity_received INTEGER NOT NULL,
  purchase_price NUMERIC NOT NULL
);`
	stockAdjustments := `
CREATE TABLE IF NOT EXISTS stock_adjustments (
  id TEXT PRIMARY KEY,
  branch_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  old_quantity INTEGER NOT NULL,
  new_quantity INTEGER NOT NULL,
  reason TEXT,
  created_by TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(inventoryItems).Error)
	require.NoError(t, db.Exec(stockImports).Error)
	require.NoError(t, db.Exec(stockImportItems).Error)
	require.NoError(t, db.Exec(stockAdjustments).Error)
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newInventoryService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, logg)
	require.NoError(t, err)
	return svc
}

func seedInventoryItem(t *testing.T, db *gorm.DB, branchID, variantID uuid.UUID, quantity, reserved, threshold int) *models.InventoryItem {
	t.Helper()

	item := &models.InventoryItem{
		BranchID:         branchID,
		VariantID:        variantID,
		Quantity:         quantity,
		ReservedQuantity: reserved,
		MinThreshold:     threshold,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func reloadItem(t *testing.T, db *gorm.DB, id int64) *models.InventoryItem {
	t.Helper()

	var item models.InventoryItem
	require.NoError(t, db.First(&item, "id = ?", id).Error)
	return &item
}

func TestDeductStockGreedyAcrossBranches(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	variantID := uuid.New()
	first := seedInventoryItem(t, db, uuid.New(), variantID, 3, 0, 0)
	second := seedInventoryItem(t, db, uuid.New(), variantID, 2, 0, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.DeductStock(ctx, tx, variantID, 4)
	})
	require.NoError(t, err)

	assert.Equal(t, 0, reloadItem(t, db, first.ID).Quantity)
	assert.Equal(t, 1, reloadItem(t, db, second.ID).Quantity)
}

func TestDeductStockSkipsFullyReservedRows(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	variantID := uuid.New()
	reserved := seedInventoryItem(t, db, uuid.New(), variantID, 5, 5, 0)
	open := seedInventoryItem(t, db, uuid.New(), variantID, 4, 0, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.DeductStock(ctx, tx, variantID, 3)
	})
	require.NoError(t, err)

	assert.Equal(t, 5, reloadItem(t, db, reserved.ID).Quantity)
	assert.Equal(t, 1, reloadItem(t, db, open.ID).Quantity)
}

func TestDeductStockInsufficientWritesNothing(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	variantID := uuid.New()
	first := seedInventoryItem(t, db, uuid.New(), variantID, 2, 0, 0)
	second := seedInventoryItem(t, db, uuid.New(), variantID, 1, 1, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.DeductStock(ctx, tx, variantID, 3)
	})
	require.Error(t, err)

	appErr := errors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeInsufficientStock, appErr.Code())
	details, ok := appErr.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, details["requested"])
	assert.Equal(t, 2, details["available"])

	assert.Equal(t, 2, reloadItem(t, db, first.ID).Quantity)
	assert.Equal(t, 1, reloadItem(t, db, second.ID).Quantity)
}

func TestDeductStockRejectsNonPositiveQuantity(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.DeductStock(context.Background(), tx, uuid.New(), 0)
	})
	require.Error(t, err)
	appErr := errors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeValidation, appErr.Code())
}

func TestRestoreStockTargetsLowestRow(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	variantID := uuid.New()
	first := seedInventoryItem(t, db, uuid.New(), variantID, 0, 0, 0)
	second := seedInventoryItem(t, db, uuid.New(), variantID, 7, 0, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RestoreStock(ctx, tx, variantID, 5)
	})
	require.NoError(t, err)

	assert.Equal(t, 5, reloadItem(t, db, first.ID).Quantity)
	assert.Equal(t, 7, reloadItem(t, db, second.ID).Quantity)
}

func TestRestoreStockMissingVariant(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RestoreStock(context.Background(), tx, uuid.New(), 2)
	})
	require.Error(t, err)
	appErr := errors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeNotFound, appErr.Code())
}

func TestImportStockCreatesRecordAndUpserts(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	branchID := uuid.New()
	existingVariant := uuid.New()
	newVariant := uuid.New()
	existing := seedInventoryItem(t, db, branchID, existingVariant, 10, 0, 0)

	supplierID := uuid.New()
	imp, err := svc.ImportStock(ctx, ImportInput{
		BranchID:        branchID,
		SupplierID:      &supplierID,
		ReferenceNumber: "PO-2026-0042",
		Lines: []ImportLine{
			{VariantID: existingVariant, Quantity: 5, PurchasePrice: decimal.RequireFromString("120.00")},
			{VariantID: newVariant, Quantity: 3, PurchasePrice: decimal.RequireFromString("45.50")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, imp)

	assert.True(t, imp.TotalCost.Equal(decimal.RequireFromString("736.50")),
		"total cost %s", imp.TotalCost)

	var saved models.StockImport
	require.NoError(t, db.Preload("Items").First(&saved, "id = ?", imp.ID).Error)
	assert.Len(t, saved.Items, 2)
	assert.Equal(t, "PO-2026-0042", saved.ReferenceNumber)

	assert.Equal(t, 15, reloadItem(t, db, existing.ID).Quantity)

	var created models.InventoryItem
	require.NoError(t, db.First(&created, "branch_id = ? AND variant_id = ?", branchID, newVariant).Error)
	assert.Equal(t, 3, created.Quantity)
}

func TestImportStockValidation(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	_, err := svc.ImportStock(ctx, ImportInput{BranchID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())

	_, err = svc.ImportStock(ctx, ImportInput{
		BranchID: uuid.New(),
		Lines:    []ImportLine{{VariantID: uuid.New(), Quantity: 0}},
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())
}

func TestAdjustStockWritesAuditRow(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	branchID := uuid.New()
	variantID := uuid.New()
	item := seedInventoryItem(t, db, branchID, variantID, 20, 0, 0)

	actorID := uuid.New()
	adjusted, err := svc.AdjustStock(ctx, AdjustInput{
		BranchID:    branchID,
		VariantID:   variantID,
		NewQuantity: 8,
		Reason:      "cycle count",
		ActorID:     &actorID,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, adjusted.Quantity)
	assert.Equal(t, 8, reloadItem(t, db, item.ID).Quantity)

	var adj models.StockAdjustment
	require.NoError(t, db.First(&adj, "branch_id = ? AND variant_id = ?", branchID, variantID).Error)
	assert.Equal(t, 20, adj.OldQuantity)
	assert.Equal(t, 8, adj.NewQuantity)
	assert.Equal(t, "cycle count", adj.Reason)
	require.NotNil(t, adj.CreatedBy)
	assert.Equal(t, actorID, *adj.CreatedBy)
}

func TestAdjustStockCreatesMissingItem(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	branchID := uuid.New()
	variantID := uuid.New()

	adjusted, err := svc.AdjustStock(ctx, AdjustInput{
		BranchID:    branchID,
		VariantID:   variantID,
		NewQuantity: 12,
		Reason:      "opening stock",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, adjusted.Quantity)

	var adj models.StockAdjustment
	require.NoError(t, db.First(&adj, "branch_id = ? AND variant_id = ?", branchID, variantID).Error)
	assert.Equal(t, 0, adj.OldQuantity)
	assert.Equal(t, 12, adj.NewQuantity)
}

func TestSetThreshold(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	branchID := uuid.New()
	variantID := uuid.New()
	item := seedInventoryItem(t, db, branchID, variantID, 10, 0, 0)

	updated, err := svc.SetThreshold(ctx, branchID, variantID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.MinThreshold)
	assert.Equal(t, 4, reloadItem(t, db, item.ID).MinThreshold)

	_, err = svc.SetThreshold(ctx, uuid.New(), uuid.New(), 4)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.As(err).Code())

	_, err = svc.SetThreshold(ctx, branchID, variantID, -1)
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())
}

func TestAvailableAndTotalAvailable(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	variantID := uuid.New()
	branchID := uuid.New()
	seedInventoryItem(t, db, branchID, variantID, 6, 2, 0)
	seedInventoryItem(t, db, uuid.New(), variantID, 3, 0, 0)

	available, err := svc.Available(ctx, branchID, variantID)
	require.NoError(t, err)
	assert.Equal(t, 4, available)

	missing, err := svc.Available(ctx, uuid.New(), variantID)
	require.NoError(t, err)
	assert.Equal(t, 0, missing)

	total, err := svc.TotalAvailable(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
}
