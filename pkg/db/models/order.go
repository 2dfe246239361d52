package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chanmoly/khmart-backend/pkg/enums"
)

// Order is the immutable monetary snapshot produced by checkout. Totals are
// computed once at creation and never recomputed.
type Order struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	OrderNumber     string                   `gorm:"column:order_number;not null;uniqueIndex"`
	Status          enums.OrderStatus        `gorm:"column:status;not null;default:'PENDING'"`
	Subtotal        decimal.Decimal          `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	DiscountTotal   decimal.Decimal          `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	TaxTotal        decimal.Decimal          `gorm:"column:tax_total;type:numeric(12,2);not null;default:0"`
	TotalAmount     decimal.Decimal          `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	PaymentMethod   string                   `gorm:"column:payment_method"`
	PaymentStatus   enums.OrderPaymentStatus `gorm:"column:payment_status;not null;default:'PENDING'"`
	ShippingAddress string                   `gorm:"column:shipping_address"`
	Items           []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment         *PaymentTransaction      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt          *time.Time               `gorm:"column:paid_at"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
