package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Типы событий Stripe, которые сервис различает
// Остальные типы принимаются и игнорируются без ошибки
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// WebhookService обрабатывает асинхронные уведомления платёжного шлюза
// Путь webhook - чистый observability hook: он никогда не пишет в ledger заказов
// Авторитетный переход состояния - клиентский ConfirmPayment, а не push уведомление
type WebhookService struct {
	logger    *zap.Logger
	verifier  WebhookVerifier
	publisher PaymentEventPublisher
}

// NewWebhookService создаёт новый обработчик webhook уведомлений
func NewWebhookService(logger *zap.Logger, verifier WebhookVerifier, publisher PaymentEventPublisher) *WebhookService {
	return &WebhookService{
		logger:    logger,
		verifier:  verifier,
		publisher: publisher,
	}
}

// HandleEvent проверяет подпись уведомления и диспетчеризует его по типу
// payload - это сырые байты тела запроса, ровно как они пришли по сети:
// подпись считается по байтам, и пересериализованный JSON её сломает
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := s.verifier.VerifyEvent(payload, signatureHeader)
	if err != nil {
		s.logger.Warn("webhook verification failed", zap.Error(err))
		return err
	}

	switch event.Type {
	case EventPaymentSucceeded:
		s.logger.Info("payment intent succeeded",
			zap.String("event_id", event.ID),
			zap.String("payment_intent_id", event.PaymentIntentID),
			zap.Int64("amount", event.Amount),
		)
		s.publish(ctx, event)
	case EventPaymentFailed:
		s.logger.Info("payment intent failed",
			zap.String("event_id", event.ID),
			zap.String("payment_intent_id", event.PaymentIntentID),
		)
		s.publish(ctx, event)
	default:
		s.logger.Debug("unhandled webhook event type",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
		)
	}

	return nil
}

// publish отправляет событие оплаты в observability topic
// Ошибка публикации не влияет на ответ webhook: шлюз получит 200 и не будет
// ретраить доставку из-за проблем нашего topic
func (s *WebhookService) publish(ctx context.Context, event WebhookEvent) {
	err := s.publisher.PublishPaymentEvent(ctx, PaymentEvent{
		EventID:         event.ID,
		Type:            event.Type,
		PaymentIntentID: event.PaymentIntentID,
		Amount:          event.Amount,
	})
	if err != nil {
		s.logger.Error("failed to publish payment event",
			zap.Error(err),
			zap.String("event_id", event.ID),
		)
	}
}

// UnverifiedVerifier реализует WebhookVerifier без проверки подписи
// Используется только для локальной разработки без webhook secret:
// это осознанный security downgrade, а не поддерживаемый production режим
type UnverifiedVerifier struct {
	logger *zap.Logger
}

// NewUnverifiedVerifier создаёт verifier, принимающий тело запроса на веру
func NewUnverifiedVerifier(logger *zap.Logger) *UnverifiedVerifier {
	logger.Warn("webhook secret is not configured, webhook signatures will NOT be verified")
	return &UnverifiedVerifier{logger: logger}
}

// VerifyEvent парсит событие без проверки подписи
func (v *UnverifiedVerifier) VerifyEvent(payload []byte, signatureHeader string) (WebhookEvent, error) {
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID     string `json:"id"`
				Amount int64  `json:"amount"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: malformed event payload", ErrSignature)
	}

	return WebhookEvent{
		ID:              raw.ID,
		Type:            raw.Type,
		PaymentIntentID: raw.Data.Object.ID,
		Amount:          raw.Data.Object.Amount,
	}, nil
}
