package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/internal/orders"
	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/enums"
	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/metrics"
	"github.com/chanmoly/khmart-backend/pkg/outbox"
	"github.com/chanmoly/khmart-backend/pkg/outbox/payloads"
)

const defaultPendingOrderTTL = 24 * time.Hour

const expiryBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockRestorer interface {
	RestoreStock(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error
}

type orderExpirer interface {
	MarkExpired(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

// OrderExpiryJobParams configure the pending order expiry sweep.
type OrderExpiryJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Orders      orders.Repository
	Transitions orderExpirer
	Stock       stockRestorer
	Outbox      outboxEmitter
	TTL         time.Duration
	Metrics     *metrics.CronJobMetrics
}

// NewOrderExpiryJob builds the cron job that cancels stale PENDING orders and
// puts their stock back.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Transitions == nil {
		return nil, fmt.Errorf("order transitions required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderExpiryJob{
		logg:        params.Logger,
		db:          params.DB,
		orders:      params.Orders,
		transitions: params.Transitions,
		stock:       params.Stock,
		outbox:      params.Outbox,
		ttl:         ttl,
		metrics:     params.Metrics,
		now:         time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg        *logger.Logger
	db          txRunner
	orders      orders.Repository
	transitions orderExpirer
	stock       stockRestorer
	outbox      outboxEmitter
	ttl         time.Duration
	metrics     *metrics.CronJobMetrics
	now         func() time.Time
}

func (j *orderExpiryJob) Name() string { return "pending-order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.orders.ListPendingBefore(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	expired := 0
	var errs []error
	for _, order := range stale {
		if err := j.expireOrder(ctx, order); err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.OrderNumber, err))
			continue
		}
		expired++
	}

	if j.metrics != nil {
		j.metrics.AddItemsProcessed(j.Name(), expired)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"orders_expired": expired,
		"orders_failed":  len(errs),
	})
	j.logg.Info(logCtx, "pending order expiry sweep complete")
	return multierr.Combine(errs...)
}

// expireOrder restores each item's stock and cancels the order in one
// transaction, so a crash never releases stock twice.
func (j *orderExpiryJob) expireOrder(ctx context.Context, order models.Order) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)

		// Re-read under the transaction; a payment may have landed since the sweep query.
		current, err := repo.FindByOrderNumberForUpdate(ctx, order.OrderNumber)
		if err != nil {
			return err
		}
		if current.Status != enums.OrderStatusPending {
			return nil
		}

		for _, item := range order.Items {
			if err := j.stock.RestoreStock(ctx, tx, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		if err := j.transitions.MarkExpired(ctx, tx, current); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Data: payloads.OrderExpiredEvent{
				OrderID:     current.ID,
				OrderNumber: current.OrderNumber,
				UserID:      current.UserID,
				ExpiredAt:   j.now().UTC(),
			},
		}
		return j.outbox.EmitIfNotExists(ctx, tx, event)
	})
}
