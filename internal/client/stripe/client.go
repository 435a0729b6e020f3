package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	stripesdk "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/gdsakelaris/software-marketplace-v2/internal/service"
)

// Gateway реализует service.PaymentGateway поверх Stripe SDK
// Обёртка переводит типы Stripe в доменные, чтобы service слой
// не зависел от SDK (тот же приём, что и с другими внешними клиентами)
type Gateway struct {
	logger *zap.Logger
	api    *client.API
}

// NewGateway создаёт новый Stripe gateway с указанным secret key
func NewGateway(logger *zap.Logger, secretKey string) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &Gateway{
		logger: logger,
		api:    api,
	}
}

// CreateIntent создаёт payment intent в Stripe
func (g *Gateway) CreateIntent(ctx context.Context, input service.CreateIntentInput) (service.PaymentIntent, error) {
	params := &stripesdk.PaymentIntentParams{
		Params: stripesdk.Params{
			Context: ctx,
		},
		Amount:      stripesdk.Int64(input.Amount),
		Currency:    stripesdk.String(input.Currency),
		Description: stripesdk.String(input.Description),
	}
	for key, value := range input.Metadata {
		params.AddMetadata(key, value)
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return service.PaymentIntent{}, fmt.Errorf("stripe create payment intent: %w", err)
	}

	g.logger.Debug("stripe payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", intent.Amount),
	)

	return toDomain(intent), nil
}

// GetIntent получает payment intent из Stripe по ID
func (g *Gateway) GetIntent(ctx context.Context, id string) (service.PaymentIntent, error) {
	params := &stripesdk.PaymentIntentParams{
		Params: stripesdk.Params{
			Context: ctx,
		},
	}

	intent, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return service.PaymentIntent{}, fmt.Errorf("stripe retrieve payment intent: %w", err)
	}

	return toDomain(intent), nil
}

func toDomain(intent *stripesdk.PaymentIntent) service.PaymentIntent {
	return service.PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
		Amount:       intent.Amount,
		Metadata:     intent.Metadata,
	}
}

// WebhookVerifier реализует service.WebhookVerifier через проверку подписи Stripe
// Подпись считается по сырым байтам тела запроса и shared secret
type WebhookVerifier struct {
	logger *zap.Logger
	secret string
}

// NewWebhookVerifier создаёт verifier с указанным webhook secret
func NewWebhookVerifier(logger *zap.Logger, secret string) *WebhookVerifier {
	return &WebhookVerifier{
		logger: logger,
		secret: secret,
	}
}

// VerifyEvent проверяет подпись Stripe-Signature и разбирает событие
// Возвращает service.ErrSignature при любом несовпадении подписи
func (v *WebhookVerifier) VerifyEvent(payload []byte, signatureHeader string) (service.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, v.secret)
	if err != nil {
		return service.WebhookEvent{}, fmt.Errorf("%w: %v", service.ErrSignature, err)
	}

	// Для payment_intent.* событий data.object - это сам intent
	var object struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
	}
	if len(event.Data.Raw) > 0 {
		if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
			v.logger.Warn("failed to decode webhook event object",
				zap.Error(err),
				zap.String("event_id", event.ID),
			)
		}
	}

	return service.WebhookEvent{
		ID:              event.ID,
		Type:            string(event.Type),
		PaymentIntentID: object.ID,
		Amount:          object.Amount,
	}, nil
}
