package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockImport records a delivery of stock into one branch.
type StockImport struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID        uuid.UUID         `gorm:"column:branch_id;type:uuid;not null"`
	SupplierID      *uuid.UUID        `gorm:"column:supplier_id;type:uuid"`
	ReferenceNumber string            `gorm:"column:reference_number"`
	TotalCost       decimal.Decimal   `gorm:"column:total_cost;type:numeric(12,2);not null;default:0"`
	Items           []StockImportItem `gorm:"foreignKey:StockImportID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// StockImportItem is one received line within a stock import.
type StockImportItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StockImportID    uuid.UUID       `gorm:"column:stock_import_id;type:uuid;not null"`
	VariantID        uuid.UUID       `gorm:"column:variant_id;type:uuid;not null"`
	QuantityReceived int             `gorm:"column:quantity_received;not null"`
	PurchasePrice    decimal.Decimal `gorm:"column:purchase_price;type:numeric(12,2);not null"`
}
