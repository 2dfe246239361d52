package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem is the per-branch, per-variant stock ledger row. The serial
// primary key doubles as the deterministic deduction order during checkout.
type InventoryItem struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	BranchID         uuid.UUID `gorm:"column:branch_id;type:uuid;not null;uniqueIndex:ux_inventory_branch_variant"`
	VariantID        uuid.UUID `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:ux_inventory_branch_variant"`
	Quantity         int       `gorm:"column:quantity;not null;default:0"`
	ReservedQuantity int       `gorm:"column:reserved_quantity;not null;default:0"`
	MinThreshold     int       `gorm:"column:min_threshold;not null;default:0"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Available is the on-hand quantity minus what is reserved, floored at zero.
func (i InventoryItem) Available() int {
	available := i.Quantity - i.ReservedQuantity
	if available < 0 {
		return 0
	}
	return available
}
