package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/gdsakelaris/software-marketplace-v2/internal/service"
)

// NoopPublisher - no-op реализация PaymentEventPublisher
// Используется, когда Kafka не сконфигурирована (локальная разработка, тесты)
type NoopPublisher struct {
	logger *zap.Logger
}

// NewNoopPublisher создаёт no-op publisher
func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

// PublishPaymentEvent ничего не публикует, только логирует
func (p *NoopPublisher) PublishPaymentEvent(ctx context.Context, event service.PaymentEvent) error {
	p.logger.Debug("noop publisher: payment event not published",
		zap.String("event_type", event.Type),
		zap.String("payment_intent_id", event.PaymentIntentID),
	)
	return nil
}
