package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is the purchasable configuration of a product and the unit
// of inventory and pricing.
type ProductVariant struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	SKU        string            `gorm:"column:sku;not null;uniqueIndex"`
	Color      string            `gorm:"column:color"`
	Storage    string            `gorm:"column:storage"`
	RAM        string            `gorm:"column:ram"`
	Attributes map[string]string `gorm:"column:attributes;type:jsonb;serializer:json"`
	BasePrice  decimal.Decimal   `gorm:"column:base_price;type:numeric(12,2);not null"`
	IsActive   bool              `gorm:"column:is_active;not null;default:true"`
	Product    *Product          `gorm:"foreignKey:ProductID"`
}

// DisplayAttributes returns the snapshot attribute map persisted on order items.
func (v ProductVariant) DisplayAttributes() map[string]string {
	attrs := map[string]string{}
	if v.Color != "" {
		attrs["color"] = v.Color
	}
	if v.Storage != "" {
		attrs["storage"] = v.Storage
	}
	if v.RAM != "" {
		attrs["ram"] = v.RAM
	}
	for key, value := range v.Attributes {
		attrs[key] = value
	}
	return attrs
}
