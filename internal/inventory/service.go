package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/errors"
	"github.com/chanmoly/khmart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns stock levels. All writes that move quantities run inside the
// caller's transaction or open one of their own.
type Service interface {
	Available(ctx context.Context, branchID, variantID uuid.UUID) (int, error)
	TotalAvailable(ctx context.Context, variantID uuid.UUID) (int, error)
	BranchLevels(ctx context.Context, branchID uuid.UUID) ([]models.InventoryItem, error)
	DeductStock(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error
	RestoreStock(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error
	ImportStock(ctx context.Context, input ImportInput) (*models.StockImport, error)
	AdjustStock(ctx context.Context, input AdjustInput) (*models.InventoryItem, error)
	SetThreshold(ctx context.Context, branchID, variantID uuid.UUID, threshold int) (*models.InventoryItem, error)
}

// ImportLine is one received variant within a stock import.
type ImportLine struct {
	VariantID     uuid.UUID
	Quantity      int
	PurchasePrice decimal.Decimal
}

// ImportInput describes a delivery of stock into one branch.
type ImportInput struct {
	BranchID        uuid.UUID
	SupplierID      *uuid.UUID
	ReferenceNumber string
	Lines           []ImportLine
}

// AdjustInput overrides a ledger row to an absolute quantity with an audit trail.
type AdjustInput struct {
	BranchID    uuid.UUID
	VariantID   uuid.UUID
	NewQuantity int
	Reason      string
	ActorID     *uuid.UUID
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService wires the inventory service.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) Available(ctx context.Context, branchID, variantID uuid.UUID) (int, error) {
	item, err := s.repo.FindByBranchVariant(ctx, branchID, variantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, errors.Wrap(errors.CodeInternal, err, "loading inventory item")
	}
	return item.Available(), nil
}

func (s *service) TotalAvailable(ctx context.Context, variantID uuid.UUID) (int, error) {
	items, err := s.repo.ListByVariant(ctx, variantID)
	if err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "listing inventory items")
	}
	total := 0
	for _, item := range items {
		total += item.Available()
	}
	return total, nil
}

func (s *service) BranchLevels(ctx context.Context, branchID uuid.UUID) ([]models.InventoryItem, error) {
	if branchID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "branch id is required")
	}
	items, err := s.repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing branch inventory")
	}
	return items, nil
}

// DeductStock walks the variant's ledger rows in ascending id order and takes
// from each until the requested quantity is covered. Rows are locked for the
// duration of the surrounding transaction. Nothing is written unless the full
// quantity can be deducted.
func (s *service) DeductStock(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error {
	if tx == nil {
		return errors.New(errors.CodeInternal, "transaction required")
	}
	if quantity <= 0 {
		return errors.New(errors.CodeValidation, "quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	items, err := repo.ListByVariantForUpdate(ctx, variantID)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "locking inventory rows")
	}

	available := 0
	for _, item := range items {
		available += item.Available()
	}
	if available < quantity {
		return errors.New(errors.CodeInsufficientStock, "not enough stock for variant").
			WithDetails(map[string]any{
				"variant_id": variantID.String(),
				"requested":  quantity,
				"available":  available,
			})
	}

	remaining := quantity
	for i := range items {
		if remaining == 0 {
			break
		}
		take := items[i].Available()
		if take == 0 {
			continue
		}
		if take > remaining {
			take = remaining
		}
		items[i].Quantity -= take
		if err := repo.Save(ctx, &items[i]); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "saving inventory deduction")
		}
		remaining -= take
	}
	return nil
}

// RestoreStock returns quantity to the variant's lowest-id ledger row. Used
// when a pending order expires and its deduction is rolled forward.
func (s *service) RestoreStock(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error {
	if tx == nil {
		return errors.New(errors.CodeInternal, "transaction required")
	}
	if quantity <= 0 {
		return errors.New(errors.CodeValidation, "quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	items, err := repo.ListByVariantForUpdate(ctx, variantID)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "locking inventory rows")
	}
	if len(items) == 0 {
		return errors.New(errors.CodeNotFound, "no inventory row for variant")
	}

	items[0].Quantity += quantity
	if err := repo.Save(ctx, &items[0]); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "saving inventory restore")
	}
	return nil
}

func (s *service) ImportStock(ctx context.Context, input ImportInput) (*models.StockImport, error) {
	if input.BranchID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "branch id is required")
	}
	if len(input.Lines) == 0 {
		return nil, errors.New(errors.CodeValidation, "at least one import line is required")
	}
	for _, line := range input.Lines {
		if line.VariantID == uuid.Nil {
			return nil, errors.New(errors.CodeValidation, "variant id is required on every line")
		}
		if line.Quantity <= 0 {
			return nil, errors.New(errors.CodeValidation, "line quantity must be positive")
		}
	}

	imp := &models.StockImport{
		ID:              uuid.New(),
		BranchID:        input.BranchID,
		SupplierID:      input.SupplierID,
		ReferenceNumber: input.ReferenceNumber,
	}

	total := decimal.Zero
	for _, line := range input.Lines {
		total = total.Add(line.PurchasePrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		imp.Items = append(imp.Items, models.StockImportItem{
			ID:               uuid.New(),
			StockImportID:    imp.ID,
			VariantID:        line.VariantID,
			QuantityReceived: line.Quantity,
			PurchasePrice:    line.PurchasePrice,
		})
	}
	imp.TotalCost = total

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateImport(ctx, imp); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "creating stock import")
		}
		for _, line := range input.Lines {
			if _, err := repo.AddQuantity(ctx, input.BranchID, line.VariantID, line.Quantity); err != nil {
				return errors.Wrap(errors.CodeInternal, err, "incrementing stock")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"import_id": imp.ID.String(),
			"branch_id": input.BranchID.String(),
			"lines":     len(input.Lines),
		})
		s.logg.Info(logCtx, "stock import received")
	}
	return imp, nil
}

func (s *service) AdjustStock(ctx context.Context, input AdjustInput) (*models.InventoryItem, error) {
	if input.BranchID == uuid.Nil || input.VariantID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "branch id and variant id are required")
	}
	if input.NewQuantity < 0 {
		return nil, errors.New(errors.CodeValidation, "quantity cannot be negative")
	}

	var adjusted *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByBranchVariant(ctx, input.BranchID, input.VariantID)
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return errors.Wrap(errors.CodeInternal, err, "loading inventory item")
			}
			item, err = repo.AddQuantity(ctx, input.BranchID, input.VariantID, 0)
			if err != nil {
				return errors.Wrap(errors.CodeInternal, err, "creating inventory item")
			}
		}

		adj := &models.StockAdjustment{
			BranchID:    input.BranchID,
			VariantID:   input.VariantID,
			OldQuantity: item.Quantity,
			NewQuantity: input.NewQuantity,
			Reason:      input.Reason,
			CreatedBy:   input.ActorID,
		}
		adj.ID = uuid.New()
		if err := repo.CreateAdjustment(ctx, adj); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "recording adjustment")
		}

		item.Quantity = input.NewQuantity
		if err := repo.Save(ctx, item); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "saving adjusted quantity")
		}
		adjusted = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

func (s *service) SetThreshold(ctx context.Context, branchID, variantID uuid.UUID, threshold int) (*models.InventoryItem, error) {
	if branchID == uuid.Nil || variantID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "branch id and variant id are required")
	}
	if threshold < 0 {
		return nil, errors.New(errors.CodeValidation, "threshold cannot be negative")
	}

	item, err := s.repo.FindByBranchVariant(ctx, branchID, variantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "inventory item not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading inventory item")
	}
	item.MinThreshold = threshold
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "saving threshold")
	}
	return item, nil
}
