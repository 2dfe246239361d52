package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/chanmoly/khmart-backend/internal/cart"
	"github.com/chanmoly/khmart-backend/pkg/db/models"
)

type productResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Description string            `json:"description,omitempty"`
	BasePrice   decimal.Decimal   `json:"base_price"`
	Variants    []variantResponse `json:"variants,omitempty"`
}

type variantResponse struct {
	ID         uuid.UUID         `json:"id"`
	SKU        string            `json:"sku"`
	Attributes map[string]string `json:"attributes,omitempty"`
	BasePrice  decimal.Decimal   `json:"base_price"`
}

func newProductResponse(product models.Product) productResponse {
	resp := productResponse{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		BasePrice:   product.BasePrice,
	}
	for _, variant := range product.Variants {
		if !variant.IsActive {
			continue
		}
		resp.Variants = append(resp.Variants, variantResponse{
			ID:         variant.ID,
			SKU:        variant.SKU,
			Attributes: variant.DisplayAttributes(),
			BasePrice:  variant.BasePrice,
		})
	}
	return resp
}

func newProductListResponse(products []models.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, product := range products {
		out = append(out, newProductResponse(product))
	}
	return out
}

type cartResponse struct {
	ID     uuid.UUID          `json:"id"`
	Lines  []cartLineResponse `json:"lines"`
	Totals cartsvc.Totals     `json:"totals"`
}

type cartLineResponse struct {
	ID          uuid.UUID         `json:"id"`
	VariantID   uuid.UUID         `json:"variant_id"`
	SKU         string            `json:"sku,omitempty"`
	ProductName string            `json:"product_name,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Quantity    int               `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	LineTotal   decimal.Decimal   `json:"line_total"`
}

func newCartResponse(cart *models.Cart) cartResponse {
	resp := cartResponse{Lines: []cartLineResponse{}, Totals: cartsvc.ComputeTotals(cart)}
	if cart == nil {
		return resp
	}
	resp.ID = cart.ID
	for _, line := range cart.Lines {
		item := cartLineResponse{
			ID:        line.ID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		}
		if line.Variant != nil {
			item.SKU = line.Variant.SKU
			item.Attributes = line.Variant.DisplayAttributes()
			if line.Variant.Product != nil {
				item.ProductName = line.Variant.Product.Name
			}
		}
		resp.Lines = append(resp.Lines, item)
	}
	return resp
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	DiscountTotal   decimal.Decimal     `json:"discount_total"`
	TaxTotal        decimal.Decimal     `json:"tax_total"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	PaymentMethod   string              `json:"payment_method,omitempty"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	Items           []orderItemResponse `json:"items"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	VariantID   uuid.UUID         `json:"variant_id"`
	ProductName string            `json:"product_name"`
	SKU         string            `json:"sku"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Quantity    int               `json:"quantity"`
	LineTotal   decimal.Decimal   `json:"line_total"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{Items: []orderItemResponse{}}
	if order == nil {
		return resp
	}
	resp.ID = order.ID
	resp.OrderNumber = order.OrderNumber
	resp.Status = order.Status.String()
	resp.PaymentStatus = string(order.PaymentStatus)
	resp.Subtotal = order.Subtotal
	resp.DiscountTotal = order.DiscountTotal
	resp.TaxTotal = order.TaxTotal
	resp.TotalAmount = order.TotalAmount
	resp.PaymentMethod = order.PaymentMethod
	resp.ShippingAddress = order.ShippingAddress
	resp.PaidAt = order.PaidAt
	resp.CreatedAt = order.CreatedAt
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Attributes:  item.Attributes,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		})
	}
	return resp
}

func newOrderListResponse(orders []models.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return out
}

type alertResponse struct {
	ID              uuid.UUID  `json:"id"`
	InventoryItemID int64      `json:"inventory_item_id"`
	AlertType       string     `json:"alert_type"`
	IsResolved      bool       `json:"is_resolved"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func newAlertListResponse(alerts []models.StockAlert) []alertResponse {
	out := make([]alertResponse, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, alertResponse{
			ID:              alert.ID,
			InventoryItemID: alert.InventoryItemID,
			AlertType:       string(alert.AlertType),
			IsResolved:      alert.IsResolved,
			ResolvedAt:      alert.ResolvedAt,
			CreatedAt:       alert.CreatedAt,
		})
	}
	return out
}
