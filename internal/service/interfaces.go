package service

import (
	"context"
	"time"
)

// PaymentIntent — доменное представление payment intent из платёжного шлюза
// Сервис читает только эти поля; сам intent живёт и мутируется на стороне шлюза
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Metadata     map[string]string
}

// IntentStatusSucceeded — единственный статус intent, при котором выдаётся заказ
const IntentStatusSucceeded = "succeeded"

// Ключи metadata, которые сервис записывает при создании intent
// и читает при подтверждении оплаты
const (
	MetadataProductID   = "productId"
	MetadataProductName = "productName"
)

// CreateIntentInput содержит параметры создания payment intent
type CreateIntentInput struct {
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PaymentGateway --dir=. --output=./mocks --outpkg=mocks

// PaymentGateway определяет интерфейс платёжного шлюза
// Использует доменные типы вместо типов Stripe SDK - это делает service
// независимым от конкретного шлюза и позволяет подменять его в тестах
type PaymentGateway interface {
	// CreateIntent резервирует оплату на указанную сумму
	CreateIntent(ctx context.Context, input CreateIntentInput) (PaymentIntent, error)

	// GetIntent получает текущее состояние payment intent по ID
	GetIntent(ctx context.Context, id string) (PaymentIntent, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ObjectStorage --dir=. --output=./mocks --outpkg=mocks

// ObjectStorage определяет интерфейс object storage с подписанными URL
type ObjectStorage interface {
	// SignedDownloadURL выдаёт временный URL для скачивания объекта
	// URL действителен в течение ttl; повторный вызов с теми же аргументами
	// возвращает другой, но равноценный URL
	SignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// WebhookEvent — доменное представление верифицированного webhook события
type WebhookEvent struct {
	ID              string
	Type            string
	PaymentIntentID string
	Amount          int64
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=WebhookVerifier --dir=. --output=./mocks --outpkg=mocks

// WebhookVerifier проверяет подлинность webhook уведомлений платёжного шлюза
type WebhookVerifier interface {
	// VerifyEvent проверяет подпись по сырым байтам тела запроса
	// Возвращает ErrSignature при несовпадении подписи
	VerifyEvent(payload []byte, signatureHeader string) (WebhookEvent, error)
}

// PaymentEvent — событие оплаты для observability (лог/алертинг/метрики)
// Публикация события не является авторитетным изменением состояния заказа
type PaymentEvent struct {
	EventID         string
	Type            string
	PaymentIntentID string
	Amount          int64
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PaymentEventPublisher --dir=. --output=./mocks --outpkg=mocks

// PaymentEventPublisher определяет интерфейс публикации событий оплаты
type PaymentEventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEvent) error
}
