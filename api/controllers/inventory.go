package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chanmoly/khmart-backend/api/responses"
	"github.com/chanmoly/khmart-backend/api/validators"
	alertsvc "github.com/chanmoly/khmart-backend/internal/alerts"
	inventorysvc "github.com/chanmoly/khmart-backend/internal/inventory"
	"github.com/chanmoly/khmart-backend/pkg/db/models"
	pkgerrors "github.com/chanmoly/khmart-backend/pkg/errors"
	"github.com/chanmoly/khmart-backend/pkg/logger"
)

type stockImportRequest struct {
	BranchID        uuid.UUID                `json:"branch_id" validate:"required"`
	SupplierID      *uuid.UUID               `json:"supplier_id,omitempty"`
	ReferenceNumber string                   `json:"reference_number" validate:"omitempty,max=64"`
	Lines           []stockImportLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type stockImportLineRequest struct {
	VariantID     uuid.UUID       `json:"variant_id" validate:"required"`
	Quantity      int             `json:"quantity" validate:"required,min=1"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

type stockImportResponse struct {
	ID              uuid.UUID       `json:"id"`
	BranchID        uuid.UUID       `json:"branch_id"`
	SupplierID      *uuid.UUID      `json:"supplier_id,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	ItemCount       int             `json:"item_count"`
	CreatedAt       time.Time       `json:"created_at"`
}

type stockAdjustRequest struct {
	BranchID    uuid.UUID `json:"branch_id" validate:"required"`
	VariantID   uuid.UUID `json:"variant_id" validate:"required"`
	NewQuantity int       `json:"new_quantity" validate:"min=0"`
	Reason      string    `json:"reason" validate:"required,max=255"`
}

type thresholdRequest struct {
	BranchID     uuid.UUID `json:"branch_id" validate:"required"`
	VariantID    uuid.UUID `json:"variant_id" validate:"required"`
	MinThreshold int       `json:"min_threshold" validate:"min=0"`
}

type inventoryItemResponse struct {
	ID           int64     `json:"id"`
	BranchID     uuid.UUID `json:"branch_id"`
	VariantID    uuid.UUID `json:"variant_id"`
	Quantity     int       `json:"quantity"`
	Reserved     int       `json:"reserved_quantity"`
	Available    int       `json:"available"`
	MinThreshold int       `json:"min_threshold"`
}

func newInventoryItemResponse(item *models.InventoryItem) inventoryItemResponse {
	return inventoryItemResponse{
		ID:           item.ID,
		BranchID:     item.BranchID,
		VariantID:    item.VariantID,
		Quantity:     item.Quantity,
		Reserved:     item.ReservedQuantity,
		Available:    item.Available(),
		MinThreshold: item.MinThreshold,
	}
}

// StockImport receives a delivery into a branch.
func StockImport(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload stockImportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]inventorysvc.ImportLine, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, inventorysvc.ImportLine{
				VariantID:     line.VariantID,
				Quantity:      line.Quantity,
				PurchasePrice: line.PurchasePrice,
			})
		}

		record, err := svc.ImportStock(r.Context(), inventorysvc.ImportInput{
			BranchID:        payload.BranchID,
			SupplierID:      payload.SupplierID,
			ReferenceNumber: validators.SanitizeString(payload.ReferenceNumber, 64),
			Lines:           lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, stockImportResponse{
			ID:              record.ID,
			BranchID:        record.BranchID,
			SupplierID:      record.SupplierID,
			ReferenceNumber: record.ReferenceNumber,
			TotalCost:       record.TotalCost,
			ItemCount:       len(record.Items),
			CreatedAt:       record.CreatedAt,
		})
	}
}

// StockAdjust overrides a ledger row to an absolute quantity with an audit trail.
func StockAdjust(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload stockAdjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var actor *uuid.UUID
		if userID, err := userIDFromContext(r); err == nil {
			actor = &userID
		}

		item, err := svc.AdjustStock(r.Context(), inventorysvc.AdjustInput{
			BranchID:    payload.BranchID,
			VariantID:   payload.VariantID,
			NewQuantity: payload.NewQuantity,
			Reason:      validators.SanitizeString(payload.Reason, 255),
			ActorID:     actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newInventoryItemResponse(item))
	}
}

// StockThreshold sets the low stock alert threshold for one ledger row.
func StockThreshold(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload thresholdRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.SetThreshold(r.Context(), payload.BranchID, payload.VariantID, payload.MinThreshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newInventoryItemResponse(item))
	}
}

// AlertScan runs the stock alert scanner on demand.
func AlertScan(svc alertsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
			return
		}

		result, err := svc.Scan(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AlertList returns unresolved stock alerts.
func AlertList(svc alertsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		alerts, err := svc.ListUnresolved(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAlertListResponse(alerts))
	}
}
