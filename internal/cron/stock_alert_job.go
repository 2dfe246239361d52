package cron

import (
	"context"
	"fmt"

	"github.com/chanmoly/khmart-backend/internal/alerts"
	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/metrics"
)

type stockScanner interface {
	Scan(ctx context.Context) (alerts.ScanResult, error)
}

// StockAlertJobParams configure the scheduled stock alert scan.
type StockAlertJobParams struct {
	Logger  *logger.Logger
	Scanner stockScanner
	Metrics *metrics.CronJobMetrics
}

// NewStockAlertJob builds the cron job that runs the alert scanner.
func NewStockAlertJob(params StockAlertJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Scanner == nil {
		return nil, fmt.Errorf("scanner required")
	}
	return &stockAlertJob{
		logg:    params.Logger,
		scanner: params.Scanner,
		metrics: params.Metrics,
	}, nil
}

type stockAlertJob struct {
	logg    *logger.Logger
	scanner stockScanner
	metrics *metrics.CronJobMetrics
}

func (j *stockAlertJob) Name() string { return "stock-alert-scan" }

func (j *stockAlertJob) Run(ctx context.Context) error {
	result, err := j.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("stock alert scan: %w", err)
	}
	if j.metrics != nil {
		j.metrics.AddItemsProcessed(j.Name(), result.AlertsCreated+result.AlertsResolved)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"alerts_created":  result.AlertsCreated,
		"alerts_resolved": result.AlertsResolved,
	})
	j.logg.Info(logCtx, "stock alert scan cycle complete")
	return nil
}
