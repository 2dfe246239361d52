package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chanmoly/khmart-backend/pkg/enums"
)

// PaymentTransaction is the one-to-one gateway record for an order. The raw
// callback payload is kept verbatim for audit.
type PaymentTransaction struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Gateway              string              `gorm:"column:gateway;not null"`
	GatewayTransactionID string              `gorm:"column:gateway_transaction_id"`
	GatewaySignature     string              `gorm:"column:gateway_signature"`
	PaymentURL           string              `gorm:"column:payment_url"`
	Amount               decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status               enums.PaymentStatus `gorm:"column:status;not null;default:'PENDING'"`
	RawResponse          json.RawMessage     `gorm:"column:raw_response;type:jsonb"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
