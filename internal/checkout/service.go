package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/internal/cart"
	"github.com/chanmoly/khmart-backend/internal/orders"
	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/enums"
	"github.com/chanmoly/khmart-backend/pkg/errors"
	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/outbox"
	"github.com/chanmoly/khmart-backend/pkg/outbox/payloads"
	"github.com/chanmoly/khmart-backend/pkg/payway"
)

const orderNumberAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockDeductor interface {
	TotalAvailable(ctx context.Context, variantID uuid.UUID) (int, error)
	DeductStock(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error
}

type redirectBuilder interface {
	BuildRedirect(tranID string, amount decimal.Decimal, now time.Time) (payway.Redirect, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Input carries the buyer-provided checkout payload.
type Input struct {
	ShippingAddress string
	PaymentMethod   string
}

// Result is the committed order plus the gateway redirect the buyer follows.
type Result struct {
	Order      *models.Order
	PaymentURL string
}

// Service converts a cart into a PENDING order, deducts stock and prepares
// the gateway redirect, all inside one transaction.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error)
}

type service struct {
	tx        txRunner
	cartRepo  cart.Repository
	orderRepo orders.Repository
	stock     stockDeductor
	gateway   redirectBuilder
	events    eventEmitter
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the checkout engine with its collaborators.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	orderRepo orders.Repository,
	stock stockDeductor,
	gateway redirectBuilder,
	events eventEmitter,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock deductor required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway redirect builder required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		tx:        tx,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		stock:     stock,
		gateway:   gateway,
		events:    events,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return nil, errors.New(errors.CodeValidation, "shipping address is required")
	}
	paymentMethod := strings.TrimSpace(input.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = "payway"
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		userCart, err := cartRepo.FindByUserForUpdate(ctx, userID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New(errors.CodeEmptyCart, "cart is empty")
			}
			return errors.Wrap(errors.CodeInternal, err, "locking cart")
		}
		if len(userCart.Lines) == 0 {
			return errors.New(errors.CodeEmptyCart, "cart is empty")
		}

		for _, line := range userCart.Lines {
			if err := s.checkLine(ctx, line); err != nil {
				return err
			}
		}

		orderNumber, err := s.newOrderNumber(ctx, orderRepo)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		items := make([]models.OrderItem, 0, len(userCart.Lines))
		itemCount := 0
		for _, line := range userCart.Lines {
			lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			subtotal = subtotal.Add(lineTotal)
			itemCount += line.Quantity

			item := models.OrderItem{
				ID:        uuid.New(),
				VariantID: line.VariantID,
				UnitPrice: line.UnitPrice,
				Quantity:  line.Quantity,
				LineTotal: lineTotal,
			}
			if line.Variant != nil {
				item.SKU = line.Variant.SKU
				item.Attributes = line.Variant.DisplayAttributes()
				if line.Variant.Product != nil {
					item.ProductName = line.Variant.Product.Name
				}
			}
			items = append(items, item)
		}

		discountTotal := decimal.Zero
		taxTotal := decimal.Zero
		total := subtotal.Sub(discountTotal).Add(taxTotal)

		redirect, err := s.gateway.BuildRedirect(orderNumber, total, s.now())
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "building gateway redirect")
		}

		order := &models.Order{
			ID:              uuid.New(),
			UserID:          userID,
			OrderNumber:     orderNumber,
			Status:          enums.OrderStatusPending,
			Subtotal:        subtotal,
			DiscountTotal:   discountTotal,
			TaxTotal:        taxTotal,
			TotalAmount:     total,
			PaymentMethod:   paymentMethod,
			PaymentStatus:   enums.OrderPaymentPending,
			ShippingAddress: input.ShippingAddress,
			Items:           items,
			Payment: &models.PaymentTransaction{
				ID:                   uuid.New(),
				Gateway:              paymentMethod,
				GatewayTransactionID: redirect.TranID,
				GatewaySignature:     redirect.Hash,
				PaymentURL:           redirect.PaymentURL,
				Amount:               total,
				Status:               enums.PaymentStatusPending,
			},
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "creating order")
		}

		for _, line := range userCart.Lines {
			if err := s.stock.DeductStock(ctx, tx, line.VariantID, line.Quantity); err != nil {
				return err
			}
		}

		if err := cartRepo.DeleteLines(ctx, userCart.ID); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "clearing cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      userID,
				TotalAmount: order.TotalAmount,
				ItemCount:   itemCount,
			},
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "queueing order event")
		}

		result = &Result{Order: order, PaymentURL: redirect.PaymentURL}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     result.Order.ID.String(),
			"order_number": result.Order.OrderNumber,
			"total":        result.Order.TotalAmount.String(),
		})
		s.logg.Info(logCtx, "checkout completed")
	}
	return result, nil
}

func (s *service) checkLine(ctx context.Context, line models.CartLine) error {
	available, err := s.stock.TotalAvailable(ctx, line.VariantID)
	if err != nil {
		return err
	}
	if line.Quantity > available {
		sku := line.VariantID.String()
		if line.Variant != nil {
			sku = line.Variant.SKU
		}
		return errors.New(errors.CodeInsufficientStock, "not enough stock for variant").
			WithDetails(map[string]any{
				"sku":       sku,
				"requested": line.Quantity,
				"available": available,
			})
	}
	return nil
}

// newOrderNumber returns a 12-character uppercase hex token unique across
// orders. The unique index on order_number backstops the lookup.
func (s *service) newOrderNumber(ctx context.Context, repo orders.Repository) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		candidate := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
		exists, err := repo.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", errors.Wrap(errors.CodeInternal, err, "checking order number")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errors.New(errors.CodeInternal, "could not allocate order number")
}
