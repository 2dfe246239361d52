package models

import (
	"time"

	"github.com/google/uuid"
)

// StockAdjustment is the audit record for an absolute quantity override.
type StockAdjustment struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID    uuid.UUID  `gorm:"column:branch_id;type:uuid;not null"`
	VariantID   uuid.UUID  `gorm:"column:variant_id;type:uuid;not null"`
	OldQuantity int        `gorm:"column:old_quantity;not null"`
	NewQuantity int        `gorm:"column:new_quantity;not null"`
	Reason      string     `gorm:"column:reason"`
	CreatedBy   *uuid.UUID `gorm:"column:created_by;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
