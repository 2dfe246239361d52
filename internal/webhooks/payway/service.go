package paywaywebhook

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/internal/orders"
	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/enums"
	pkgerrors "github.com/chanmoly/khmart-backend/pkg/errors"
	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/outbox"
	"github.com/chanmoly/khmart-backend/pkg/outbox/payloads"
)

// statusApproved is PayWay's code for a successful payment.
const statusApproved = "0"

const idempotencyConsumer = "payway-callback"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type callbackVerifier interface {
	VerifyCallback(tranID, reqTime, amount, hash string) bool
}

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

type orderTransitions interface {
	MarkPaid(ctx context.Context, tx *gorm.DB, order *models.Order, paidAt time.Time) error
}

type eventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Callback is the payload PayWay posts back after a payment attempt.
type Callback struct {
	TranID  string
	ReqTime string
	Amount  string
	Status  string
	APV     string
	Hash    string
	Raw     json.RawMessage
}

// ServiceParams collects the reconciliation dependencies.
type ServiceParams struct {
	OrderRepo         orders.Repository
	OrderTransitions  orderTransitions
	Verifier          callbackVerifier
	Idempotency       idempotencyGuard
	Events            eventEmitter
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service applies PayWay callbacks to orders and payment transactions.
type Service struct {
	orderRepo   orders.Repository
	transitions orderTransitions
	verifier    callbackVerifier
	idem        idempotencyGuard
	events      eventEmitter
	txRunner    txRunner
	logg        *logger.Logger
	now         func() time.Time
}

// NewService validates the dependency set and returns a reconciliation service.
func NewService(params ServiceParams) (*Service, error) {
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repo required")
	}
	if params.OrderTransitions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order transitions required")
	}
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "callback verifier required")
	}
	if params.Idempotency == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event emitter required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		orderRepo:   params.OrderRepo,
		transitions: params.OrderTransitions,
		verifier:    params.Verifier,
		idem:        params.Idempotency,
		events:      params.Events,
		txRunner:    params.TransactionRunner,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// Reconcile verifies the callback signature, then applies the gateway verdict
// to the order inside one transaction. Approved callbacks move the order to
// PAID; anything else records the failure on the payment transaction and
// surfaces a rejection. Duplicate deliveries are dropped.
func (s *Service) Reconcile(ctx context.Context, cb Callback) error {
	if cb.TranID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tran_id is required")
	}
	if !s.verifier.VerifyCallback(cb.TranID, cb.ReqTime, cb.Amount, cb.Hash) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "callback signature mismatch")
	}

	eventID := cb.TranID + ":" + cb.Status
	processed, err := s.idem.CheckAndMarkProcessed(ctx, idempotencyConsumer, eventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking callback idempotency")
	}
	if processed {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"tran_id": cb.TranID, "status": cb.Status})
			s.logg.Info(logCtx, "duplicate payway callback dropped")
		}
		return nil
	}

	err = s.apply(ctx, cb)
	if err != nil {
		// Allow the gateway to retry after a transient failure.
		if delErr := s.idem.Delete(ctx, idempotencyConsumer, eventID); delErr != nil && s.logg != nil {
			s.logg.Warn(ctx, "releasing callback idempotency key failed")
		}
		return err
	}

	if cb.Status != statusApproved {
		return pkgerrors.New(pkgerrors.CodePaymentRejected, "payment was not approved").
			WithDetails(map[string]any{"tran_id": cb.TranID, "status": cb.Status})
	}
	return nil
}

func (s *Service) apply(ctx context.Context, cb Callback) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.FindByOrderNumberForUpdate(ctx, cb.TranID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
					WithDetails(map[string]any{"tran_id": cb.TranID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		if order.Payment == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "order has no payment transaction")
		}

		if cb.Status != statusApproved {
			order.Payment.Status = enums.PaymentStatusFailed
			order.Payment.RawResponse = cb.Raw
			if err := repo.SavePayment(ctx, order.Payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving failed payment")
			}
			return nil
		}

		paidAt := s.now().UTC()
		if err := s.transitions.MarkPaid(ctx, tx, order, paidAt); err != nil {
			return err
		}

		order.Payment.Status = enums.PaymentStatusSuccess
		order.Payment.RawResponse = cb.Raw
		if err := repo.SavePayment(ctx, order.Payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving successful payment")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				TotalAmount:   order.TotalAmount,
				Gateway:       order.Payment.Gateway,
				GatewayTranID: cb.TranID,
				PaidAt:        paidAt,
			},
		}
		if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing order paid event")
		}

		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_number": order.OrderNumber,
				"tran_id":      cb.TranID,
			})
			s.logg.Info(logCtx, "order reconciled as paid")
		}
		return nil
	})
}
