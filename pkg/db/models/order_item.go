package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots product identity and pricing at order time so later
// catalog changes never alter historical orders.
type OrderItem struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	VariantID   uuid.UUID         `gorm:"column:variant_id;type:uuid;not null"`
	ProductName string            `gorm:"column:product_name;not null"`
	SKU         string            `gorm:"column:sku;not null"`
	Attributes  map[string]string `gorm:"column:attributes;type:jsonb;serializer:json"`
	UnitPrice   decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity    int               `gorm:"column:quantity;not null"`
	LineTotal   decimal.Decimal   `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
