package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/enums"
	"github.com/chanmoly/khmart-backend/pkg/errors"
)

// Service serves the owner-scoped order read surface and the status
// transitions reconciliation and expiry apply.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	GetForUser(ctx context.Context, userID uuid.UUID, orderNumber string) (*models.Order, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, order *models.Order, paidAt time.Time) error
	MarkExpired(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type service struct {
	repo Repository
}

// NewService wires an orders service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	orders, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing orders")
	}
	return orders, nil
}

func (s *service) GetForUser(ctx context.Context, userID uuid.UUID, orderNumber string) (*models.Order, error) {
	if userID == uuid.Nil || orderNumber == "" {
		return nil, errors.New(errors.CodeValidation, "user id and order number are required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading order")
	}
	if order.UserID != userID {
		return nil, errors.New(errors.CodeNotFound, "order not found")
	}
	return order, nil
}

// MarkPaid moves the order to PAID inside the caller's transaction. Applying
// it to an already paid order is a no-op so webhook retries stay idempotent.
func (s *service) MarkPaid(ctx context.Context, tx *gorm.DB, order *models.Order, paidAt time.Time) error {
	if order == nil {
		return errors.New(errors.CodeInternal, "order required")
	}
	if order.Status == enums.OrderStatusPaid {
		return nil
	}
	if order.Status != enums.OrderStatusPending {
		return errors.New(errors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	order.Status = enums.OrderStatusPaid
	order.PaymentStatus = enums.OrderPaymentPaid
	order.PaidAt = &paidAt
	if err := s.repo.WithTx(tx).Save(ctx, order); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "saving paid order")
	}
	return nil
}

// MarkExpired cancels a pending order inside the caller's transaction. The
// expiry job restores the deducted stock before calling this.
func (s *service) MarkExpired(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order == nil {
		return errors.New(errors.CodeInternal, "order required")
	}
	if order.Status != enums.OrderStatusPending {
		return errors.New(errors.CodeStateConflict, "order is not pending").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	order.Status = enums.OrderStatusCancelled
	order.PaymentStatus = enums.OrderPaymentFailed
	if err := s.repo.WithTx(tx).Save(ctx, order); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "saving expired order")
	}
	return nil
}
