package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chanmoly/khmart-backend/pkg/db/models"
)

// Repository manages persistence for the per-branch stock ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByBranchVariant(ctx context.Context, branchID, variantID uuid.UUID) (*models.InventoryItem, error)
	ListByVariant(ctx context.Context, variantID uuid.UUID) ([]models.InventoryItem, error)
	ListByVariantForUpdate(ctx context.Context, variantID uuid.UUID) ([]models.InventoryItem, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.InventoryItem, error)
	Save(ctx context.Context, item *models.InventoryItem) error
	AddQuantity(ctx context.Context, branchID, variantID uuid.UUID, delta int) (*models.InventoryItem, error)
	CreateImport(ctx context.Context, imp *models.StockImport) error
	CreateAdjustment(ctx context.Context, adj *models.StockAdjustment) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByBranchVariant(ctx context.Context, branchID, variantID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND variant_id = ?", branchID, variantID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListByVariant(ctx context.Context, variantID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// ListByVariantForUpdate loads ledger rows for a variant in ascending id order
// and takes row locks so concurrent checkouts serialize per variant. The lock
// clause is skipped on sqlite, which has no row locks.
func (r *repository) ListByVariantForUpdate(ctx context.Context, variantID uuid.UUID) ([]models.InventoryItem, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var items []models.InventoryItem
	err := q.Where("variant_id = ?", variantID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) Save(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// AddQuantity upserts the (branch, variant) ledger row, adding delta to the
// on-hand quantity atomically.
func (r *repository) AddQuantity(ctx context.Context, branchID, variantID uuid.UUID, delta int) (*models.InventoryItem, error) {
	item := models.InventoryItem{
		BranchID:  branchID,
		VariantID: variantID,
		Quantity:  delta,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "branch_id"}, {Name: "variant_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("inventory_items.quantity + ?", delta),
			}),
		}).
		Create(&item).Error
	if err != nil {
		return nil, err
	}
	return r.FindByBranchVariant(ctx, branchID, variantID)
}

func (r *repository) CreateImport(ctx context.Context, imp *models.StockImport) error {
	return r.db.WithContext(ctx).Create(imp).Error
}

func (r *repository) CreateAdjustment(ctx context.Context, adj *models.StockAdjustment) error {
	return r.db.WithContext(ctx).Create(adj).Error
}
