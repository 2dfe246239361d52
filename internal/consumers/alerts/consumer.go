package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chanmoly/khmart-backend/pkg/enums"
	"github.com/chanmoly/khmart-backend/pkg/logger"
	"github.com/chanmoly/khmart-backend/pkg/outbox"
	"github.com/chanmoly/khmart-backend/pkg/outbox/payloads"
	"github.com/chanmoly/khmart-backend/pkg/outbox/registry"
)

const consumerName = "stock-alerts"

type notifier interface {
	NotifyStockAlert(ctx context.Context, alert payloads.StockAlertRaisedEvent) error
}

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// Consumer forwards stock alert events to a notifier while honoring Redis
// idempotency. Events of other types are acknowledged untouched.
type Consumer struct {
	notifier notifier
	manager  idempotencyGuard
	decoders *registry.DecoderRegistry
	logg     *logger.Logger
}

// NewConsumer builds a stock alert consumer.
func NewConsumer(sink notifier, manager idempotencyGuard, logg *logger.Logger) (*Consumer, error) {
	if sink == nil {
		return nil, fmt.Errorf("stock notifier required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventStockAlertRaised, 1, func(payload json.RawMessage) (interface{}, error) {
		var alert payloads.StockAlertRaisedEvent
		if err := json.Unmarshal(payload, &alert); err != nil {
			return nil, err
		}
		return alert, nil
	})

	return &Consumer{notifier: sink, manager: manager, decoders: decoders, logg: logg}, nil
}

// Process delivers one stock alert envelope. Returning an error asks the
// subscriber to redeliver the message.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if eventType != enums.EventStockAlertRaised {
		c.logg.Info(logCtx, "event not handled by stock alert consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, consumerName, envelope.EventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode stock alert payload", err)
		_ = c.manager.Delete(ctx, consumerName, envelope.EventID)
		return fmt.Errorf("decode stock alert payload: %w", err)
	}
	alert, ok := decoded.(payloads.StockAlertRaisedEvent)
	if !ok {
		_ = c.manager.Delete(ctx, consumerName, envelope.EventID)
		return fmt.Errorf("unexpected payload type %T for %s", decoded, eventType)
	}

	if err := c.notifier.NotifyStockAlert(ctx, alert); err != nil {
		c.logg.Error(logCtx, "failed to deliver stock alert", err)
		_ = c.manager.Delete(ctx, consumerName, envelope.EventID)
		return err
	}

	c.logg.Info(logCtx, "stock alert delivered")
	return nil
}
