package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type variantLoader interface {
	GetActiveVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

type stockChecker interface {
	TotalAvailable(ctx context.Context, variantID uuid.UUID) (int, error)
}

// Totals summarizes a cart for API responses.
type Totals struct {
	ItemCount int             `json:"item_count"`
	Amount    decimal.Decimal `json:"amount"`
}

// Service manages the per-user cart. Every mutation re-checks availability so
// a line never asks for more than the ledger can cover at add time.
type Service interface {
	AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) (*models.Cart, error)
	SetQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (*models.Cart, error)
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, Totals, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	variants variantLoader
	stock    stockChecker
}

// NewService wires a cart service with its collaborators.
func NewService(repo Repository, tx txRunner, variants variantLoader, stock stockChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if variants == nil {
		return nil, fmt.Errorf("variant loader required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock checker required")
	}
	return &service{repo: repo, tx: tx, variants: variants, stock: stock}, nil
}

// AddItem creates or increments the line for variantID. The current quantity
// is read before the atomic upsert, so two concurrent adds can both pass the
// availability check; checkout re-validates every line under its own
// transaction before any stock moves.
func (s *service) AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}

	variant, err := s.variants.GetActiveVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "loading cart")
		}

		current := 0
		for _, line := range cart.Lines {
			if line.VariantID == variantID {
				current = line.Quantity
				break
			}
		}
		if err := s.checkAvailability(ctx, variant.ID, variant.SKU, current+quantity); err != nil {
			return err
		}

		line := &models.CartLine{
			ID:        uuid.New(),
			CartID:    cart.ID,
			VariantID: variantID,
			Quantity:  quantity,
			UnitPrice: variant.BasePrice,
		}
		if err := repo.UpsertLine(ctx, line); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "upserting cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByUser(ctx, userID)
}

func (s *service) SetQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}

	line, err := s.ownedLine(ctx, userID, lineID)
	if err != nil {
		return nil, err
	}
	sku := line.VariantID.String()
	if line.Variant != nil {
		sku = line.Variant.SKU
	}
	if err := s.checkAvailability(ctx, line.VariantID, sku, quantity); err != nil {
		return nil, err
	}

	line.Quantity = quantity
	if err := s.repo.SaveLine(ctx, line); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "saving cart line")
	}
	return s.repo.FindByUser(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (*models.Cart, error) {
	if _, err := s.ownedLine(ctx, userID, lineID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLine(ctx, lineID); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "deleting cart line")
	}
	return s.repo.FindByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, Totals, error) {
	if userID == uuid.Nil {
		return nil, Totals{}, errors.New(errors.CodeValidation, "user id is required")
	}
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, Totals{}, errors.Wrap(errors.CodeInternal, err, "loading cart")
	}
	return cart, ComputeTotals(cart), nil
}

// ComputeTotals sums quantity and qty times unit price over the cart's lines.
func ComputeTotals(cart *models.Cart) Totals {
	totals := Totals{Amount: decimal.Zero}
	if cart == nil {
		return totals
	}
	for _, line := range cart.Lines {
		totals.ItemCount += line.Quantity
		totals.Amount = totals.Amount.Add(
			line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return totals
}

func (s *service) ownedLine(ctx context.Context, userID, lineID uuid.UUID) (*models.CartLine, error) {
	if userID == uuid.Nil || lineID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id and line id are required")
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "cart line not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading cart")
	}

	line, err := s.repo.FindLine(ctx, lineID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "cart line not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading cart line")
	}
	if line.CartID != cart.ID {
		return nil, errors.New(errors.CodeNotFound, "cart line not found")
	}
	return line, nil
}

func (s *service) checkAvailability(ctx context.Context, variantID uuid.UUID, sku string, requested int) error {
	available, err := s.stock.TotalAvailable(ctx, variantID)
	if err != nil {
		return err
	}
	if requested > available {
		return errors.New(errors.CodeInsufficientStock, "not enough stock for variant").
			WithDetails(map[string]any{
				"sku":       sku,
				"requested": requested,
				"available": available,
			})
	}
	return nil
}
