package notifications

import (
	"context"

	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/outbox/payloads"
)

// StockNotifier delivers stock alert notices to operations staff. The default
// implementation only logs; deployments plug in email or chat providers.
type StockNotifier interface {
	NotifyStockAlert(ctx context.Context, alert payloads.StockAlertRaisedEvent) error
}

type logStockNotifier struct {
	logg *logger.Logger
}

// NewLogStockNotifier returns a StockNotifier that records alerts in the
// service log.
func NewLogStockNotifier(logg *logger.Logger) StockNotifier {
	return &logStockNotifier{logg: logg}
}

func (s *logStockNotifier) NotifyStockAlert(ctx context.Context, alert payloads.StockAlertRaisedEvent) error {
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"alert_id":   alert.AlertID,
			"branch_id":  alert.BranchID,
			"variant_id": alert.VariantID,
			"alert_type": alert.AlertType,
			"available":  alert.Available,
			"threshold":  alert.Threshold,
		})
		s.logg.Info(logCtx, "stock alert raised")
	}
	return nil
}
