package payloads

import (
	"time"

	"github.com/chanmoly/khmart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent signals a checkout that produced a pending order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

// OrderPaidEvent is emitted when a gateway callback confirms payment.
type OrderPaidEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        uuid.UUID       `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Gateway       string          `json:"gateway"`
	GatewayTranID string          `json:"gateway_tran_id"`
	PaidAt        time.Time       `json:"paid_at"`
}

// OrderExpiredEvent describes a pending order cancelled by the expiry job.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	ExpiredAt   time.Time `json:"expired_at"`
}

// StockAlertRaisedEvent is emitted when the scanner opens a new alert.
type StockAlertRaisedEvent struct {
	AlertID         uuid.UUID       `json:"alert_id"`
	InventoryItemID int64           `json:"inventory_item_id"`
	BranchID        uuid.UUID       `json:"branch_id"`
	VariantID       uuid.UUID       `json:"variant_id"`
	AlertType       enums.AlertType `json:"alert_type"`
	Available       int             `json:"available"`
	Threshold       int             `json:"threshold"`
}
