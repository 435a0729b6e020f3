package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gdsakelaris/software-marketplace-v2/internal/repository"
)

// CheckoutService содержит бизнес-логику покупки цифрового товара:
// создание payment intent, подтверждение оплаты, запись заказа и выдача
// подписанного URL для скачивания
// Зависит от интерфейсов, а не от конкретных SDK клиентов и репозиториев
type CheckoutService struct {
	logger      *zap.Logger
	products    repository.ProductRepository
	orders      repository.OrderRepository
	gateway     PaymentGateway
	storage     ObjectStorage
	currency    string
	downloadTTL time.Duration
}

// NewCheckoutService создаёт новый экземпляр CheckoutService
// Принимает интерфейсы как зависимости - это позволяет легко подменять их в тестах
func NewCheckoutService(
	logger *zap.Logger,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	gateway PaymentGateway,
	storage ObjectStorage,
	currency string,
	downloadTTL time.Duration,
) *CheckoutService {
	return &CheckoutService{
		logger:      logger,
		products:    products,
		orders:      orders,
		gateway:     gateway,
		storage:     storage,
		currency:    currency,
		downloadTTL: downloadTTL,
	}
}

// ListProducts возвращает все товары каталога
func (s *CheckoutService) ListProducts(ctx context.Context) ([]repository.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		s.logger.Error("failed to list products", zap.Error(err))
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct получает товар по ID
// Возвращает repository.ErrNotFound, если товар не найден
func (s *CheckoutService) GetProduct(ctx context.Context, productID string) (repository.Product, error) {
	if productID == "" {
		return repository.Product{}, fmt.Errorf("%w: product ID is required", ErrValidation)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to get product", zap.Error(err), zap.String("product_id", productID))
		}
		return repository.Product{}, err
	}
	return product, nil
}

// CreatePaymentIntentInput содержит входные данные для создания payment intent
type CreatePaymentIntentInput struct {
	ProductID string
}

// CreatePaymentIntentOutput содержит результат создания payment intent
type CreatePaymentIntentOutput struct {
	ClientSecret    string
	PaymentIntentID string
}

// CreatePaymentIntent резервирует оплату на цену товара
// Локально ничего не записывает: единственный side effect живёт в платёжном шлюзе
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, input CreatePaymentIntentInput) (*CreatePaymentIntentOutput, error) {
	if input.ProductID == "" {
		return nil, fmt.Errorf("%w: product ID is required", ErrValidation)
	}

	// Цена берётся из каталога на момент запроса, клиентская сумма не принимается
	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to get product for intent", zap.Error(err), zap.String("product_id", input.ProductID))
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	intent, err := s.gateway.CreateIntent(ctx, CreateIntentInput{
		Amount:      product.Price,
		Currency:    s.currency,
		Description: fmt.Sprintf("Purchase of %s", product.Name),
		Metadata: map[string]string{
			MetadataProductID:   product.ID,
			MetadataProductName: product.Name,
		},
	})
	if err != nil {
		s.logger.Error("failed to create payment intent",
			zap.Error(err),
			zap.String("product_id", product.ID),
			zap.Int64("amount", product.Price),
		)
		return nil, fmt.Errorf("payment gateway error: %w", err)
	}

	s.logger.Info("payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("product_id", product.ID),
		zap.Int64("amount", product.Price),
	)

	return &CreatePaymentIntentOutput{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

// ConfirmPaymentInput содержит входные данные для подтверждения оплаты
type ConfirmPaymentInput struct {
	PaymentIntentID string
}

// ConfirmPaymentOutput содержит результат подтверждения оплаты
// DownloadURL пуст, если у товара нет скачиваемого файла
type ConfirmPaymentOutput struct {
	DownloadURL string
	OrderID     string
	ProductName string
}

// ConfirmPayment проверяет статус оплаты в шлюзе, записывает заказ в ledger
// и выдаёт подписанный URL для скачивания
// Операция идемпотентна: повторное подтверждение той же оплаты переиспользует
// существующий заказ и выдаёт свежий URL (conditional insert по payment intent ID)
func (s *CheckoutService) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*ConfirmPaymentOutput, error) {
	if input.PaymentIntentID == "" {
		return nil, fmt.Errorf("%w: payment intent ID is required", ErrValidation)
	}

	// 1. Проверяем состояние оплаты в шлюзе
	intent, err := s.gateway.GetIntent(ctx, input.PaymentIntentID)
	if err != nil {
		s.logger.Error("failed to retrieve payment intent",
			zap.Error(err),
			zap.String("payment_intent_id", input.PaymentIntentID),
		)
		return nil, fmt.Errorf("payment gateway error: %w", err)
	}

	if intent.Status != IntentStatusSucceeded {
		s.logger.Warn("payment not completed",
			zap.String("payment_intent_id", intent.ID),
			zap.String("status", intent.Status),
		)
		return nil, ErrPaymentIncomplete
	}

	// 2. Перечитываем товар из каталога: objectKey мог измениться
	// с момента создания intent, metadata хранит только id и имя
	productID := intent.Metadata[MetadataProductID]
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("product missing at confirmation",
				zap.String("product_id", productID),
				zap.String("payment_intent_id", intent.ID),
			)
			return nil, err
		}
		s.logger.Error("failed to get product at confirmation", zap.Error(err), zap.String("product_id", productID))
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	// 3. Записываем заказ insert-if-absent по payment intent ID
	order := repository.Order{
		OrderID:         newOrderID(),
		ProductID:       product.ID,
		ProductName:     product.Name,
		PaymentIntentID: intent.ID,
		Amount:          intent.Amount,
		Status:          repository.StatusCompleted,
		CreatedAt:       time.Now().UnixMilli(),
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			// Оплата уже подтверждалась - возвращаем существующий заказ
			existing, getErr := s.orders.GetByPaymentIntentID(ctx, intent.ID)
			if getErr != nil {
				s.logger.Error("failed to load existing order",
					zap.Error(getErr),
					zap.String("payment_intent_id", intent.ID),
				)
				// ErrNotFound здесь - рассогласование ledger (conditional insert
				// сказал "есть", чтение говорит "нет"), а не отсутствие товара.
				// Не пробрасываем sentinel, чтобы HTTP слой не ответил 404
				return nil, fmt.Errorf("failed to load existing order: %v", getErr)
			}
			s.logger.Info("payment already confirmed, reusing order",
				zap.String("order_id", existing.OrderID),
				zap.String("payment_intent_id", intent.ID),
			)
			order = existing
		} else {
			s.logger.Error("failed to save order", zap.Error(err), zap.String("payment_intent_id", intent.ID))
			return nil, fmt.Errorf("failed to save order: %w", err)
		}
	} else {
		s.logger.Info("order created",
			zap.String("order_id", order.OrderID),
			zap.String("product_id", product.ID),
			zap.String("payment_intent_id", intent.ID),
			zap.Int64("amount", order.Amount),
		)
	}

	// 4. Подписанный URL выдаётся заново при каждом подтверждении:
	// URL дешёвый и ограничен по времени, дублировать его безопасно
	var downloadURL string
	if product.HasDownload() {
		downloadURL, err = s.storage.SignedDownloadURL(ctx, product.ObjectKey, s.downloadTTL)
		if err != nil {
			s.logger.Error("failed to sign download url",
				zap.Error(err),
				zap.String("object_key", product.ObjectKey),
				zap.String("order_id", order.OrderID),
			)
			return nil, fmt.Errorf("failed to sign download url: %w", err)
		}
	}

	return &ConfirmPaymentOutput{
		DownloadURL: downloadURL,
		OrderID:     order.OrderID,
		ProductName: product.Name,
	}, nil
}

// newOrderID генерирует ID заказа: timestamp + случайный суффикс
// Уникальность без центрального sequence при конкурентных записях
func newOrderID() string {
	return fmt.Sprintf("order_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
