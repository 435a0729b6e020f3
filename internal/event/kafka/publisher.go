package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/gdsakelaris/software-marketplace-v2/internal/service"
)

// PaymentEventPublisher реализует service.PaymentEventPublisher используя Kafka
// События из webhook пути публикуются только для observability:
// подписчики (алертинг, аналитика) не участвуют в выдаче заказов
type PaymentEventPublisher struct {
	logger *zap.Logger
	writer *kafka.Writer
	topic  string
}

// NewPaymentEventPublisher создаёт новый Kafka publisher для событий оплаты
func NewPaymentEventPublisher(logger *zap.Logger, brokers []string, topic string) *PaymentEventPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &PaymentEventPublisher{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Close закрывает Kafka writer
func (p *PaymentEventPublisher) Close() error {
	return p.writer.Close()
}

// PublishPaymentEvent публикует событие оплаты в Kafka
// Ключ сообщения - payment intent ID, чтобы события одной оплаты
// попадали в одну партицию и сохраняли порядок
func (p *PaymentEventPublisher) PublishPaymentEvent(ctx context.Context, event service.PaymentEvent) error {
	payload := map[string]interface{}{
		"event_id":          uuid.New().String(),
		"event_type":        event.Type,
		"event_version":     1,
		"occurred_at":       time.Now().UTC().Format(time.RFC3339),
		"gateway_event_id":  event.EventID,
		"payment_intent_id": event.PaymentIntentID,
		"amount":            event.Amount,
	}

	valueBytes, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal payment event",
			zap.Error(err),
			zap.String("gateway_event_id", event.EventID),
		)
		return err
	}

	message := kafka.Message{
		Key:   []byte(event.PaymentIntentID),
		Value: valueBytes,
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.logger.Error("failed to publish payment event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("payment_intent_id", event.PaymentIntentID),
		)
		return err
	}

	p.logger.Info("payment event published",
		zap.String("topic", p.topic),
		zap.String("event_type", event.Type),
		zap.String("payment_intent_id", event.PaymentIntentID),
	)

	return nil
}
