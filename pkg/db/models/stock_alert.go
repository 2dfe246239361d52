package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/chanmoly/khmart-backend/pkg/enums"
)

// StockAlert is a threshold alert derived from an inventory item's level.
// Historical alerts accumulate; at most one unresolved alert exists per item.
type StockAlert struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InventoryItemID int64           `gorm:"column:inventory_item_id;not null;index"`
	AlertType       enums.AlertType `gorm:"column:alert_type;not null"`
	IsResolved      bool            `gorm:"column:is_resolved;not null;default:false"`
	ResolvedAt      *time.Time      `gorm:"column:resolved_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
