package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/enums"
	"github.com/chanmoly/khmart-backend/pkg/errors"
	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/outbox"
	"github.com/chanmoly/khmart-backend/pkg/outbox/payloads"
)

const scanPageSize = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ScanResult counts what one scan pass changed.
type ScanResult struct {
	AlertsCreated  int `json:"alerts_created"`
	AlertsResolved int `json:"alerts_resolved"`
}

// Service derives threshold alerts from the stock ledger. Scanning twice in a
// row without stock movement changes nothing.
type Service interface {
	Scan(ctx context.Context) (ScanResult, error)
	ListUnresolved(ctx context.Context, limit, offset int) ([]models.StockAlert, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	events eventEmitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the alert scanner.
func NewService(repo Repository, tx txRunner, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("alerts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, tx: tx, events: events, logg: logg, now: time.Now}, nil
}

func (s *service) Scan(ctx context.Context) (ScanResult, error) {
	result := ScanResult{}
	afterID := int64(0)

	for {
		items, err := s.repo.ListInventoryItems(ctx, scanPageSize, afterID)
		if err != nil {
			return result, errors.Wrap(errors.CodeInternal, err, "listing inventory items")
		}
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			created, resolved, err := s.scanItem(ctx, item)
			if err != nil {
				return result, err
			}
			result.AlertsCreated += created
			result.AlertsResolved += resolved
			afterID = item.ID
		}
		if len(items) < scanPageSize {
			break
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"alerts_created":  result.AlertsCreated,
			"alerts_resolved": result.AlertsResolved,
		})
		s.logg.Info(logCtx, "stock alert scan finished")
	}
	return result, nil
}

// scanItem reconciles one ledger row against its active alerts inside its own
// transaction so a mid-scan failure never leaves a half-applied item.
func (s *service) scanItem(ctx context.Context, item models.InventoryItem) (created, resolved int, err error) {
	desired := desiredAlertType(item)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		active, err := repo.ActiveAlerts(ctx, item.ID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "loading active alerts")
		}

		hasDesired := false
		for _, alert := range active {
			if desired != "" && alert.AlertType == desired {
				hasDesired = true
				continue
			}
			if err := repo.Resolve(ctx, alert.ID, s.now().UTC()); err != nil {
				return errors.Wrap(errors.CodeInternal, err, "resolving alert")
			}
			resolved++
		}

		if desired == "" || hasDesired {
			return nil
		}

		alert := &models.StockAlert{
			ID:              uuid.New(),
			InventoryItemID: item.ID,
			AlertType:       desired,
		}
		if err := repo.Create(ctx, alert); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "creating alert")
		}
		created++

		event := outbox.DomainEvent{
			EventType:     enums.EventStockAlertRaised,
			AggregateType: enums.AggregateStockAlert,
			AggregateID:   alert.ID,
			Data: payloads.StockAlertRaisedEvent{
				AlertID:         alert.ID,
				InventoryItemID: item.ID,
				BranchID:        item.BranchID,
				VariantID:       item.VariantID,
				AlertType:       desired,
				Available:       item.Available(),
				Threshold:       item.MinThreshold,
			},
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "queueing alert event")
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, resolved, nil
}

func (s *service) ListUnresolved(ctx context.Context, limit, offset int) ([]models.StockAlert, error) {
	alerts, err := s.repo.ListUnresolved(ctx, limit, offset)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing alerts")
	}
	return alerts, nil
}

// desiredAlertType classifies the row: out of stock beats low, and a zero
// threshold disables low-stock alerts for the row.
func desiredAlertType(item models.InventoryItem) enums.AlertType {
	available := item.Available()
	if available <= 0 {
		return enums.AlertTypeOutOfStock
	}
	if item.MinThreshold > 0 && available <= item.MinThreshold {
		return enums.AlertTypeLow
	}
	return ""
}
