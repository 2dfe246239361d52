package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/pkg/db/models"
)

// Repository persists stock alerts and streams the inventory rows the scanner
// walks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListInventoryItems(ctx context.Context, limit int, afterID int64) ([]models.InventoryItem, error)
	ActiveAlerts(ctx context.Context, inventoryItemID int64) ([]models.StockAlert, error)
	ListUnresolved(ctx context.Context, limit, offset int) ([]models.StockAlert, error)
	Create(ctx context.Context, alert *models.StockAlert) error
	Resolve(ctx context.Context, alertID uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an alerts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListInventoryItems pages through the ledger in id order so a scan visits
// every row exactly once.
func (r *repository) ListInventoryItems(ctx context.Context, limit int, afterID int64) ([]models.InventoryItem, error) {
	if limit <= 0 {
		limit = 500
	}
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *repository) ActiveAlerts(ctx context.Context, inventoryItemID int64) ([]models.StockAlert, error) {
	var alerts []models.StockAlert
	err := r.db.WithContext(ctx).
		Where("inventory_item_id = ? AND is_resolved = ?", inventoryItemID, false).
		Find(&alerts).Error
	return alerts, err
}

func (r *repository) ListUnresolved(ctx context.Context, limit, offset int) ([]models.StockAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	var alerts []models.StockAlert
	err := r.db.WithContext(ctx).
		Where("is_resolved = ?", false).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&alerts).Error
	return alerts, err
}

func (r *repository) Create(ctx context.Context, alert *models.StockAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *repository) Resolve(ctx context.Context, alertID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.StockAlert{}).
		Where("id = ? AND is_resolved = ?", alertID, false).
		Updates(map[string]any{
			"is_resolved": true,
			"resolved_at": at,
		}).Error
}
