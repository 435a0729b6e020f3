package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/gdsakelaris/software-marketplace-v2/internal/repository"
	"github.com/gdsakelaris/software-marketplace-v2/internal/service"
)

// Handler содержит HTTP-обработчики Storefront Service
// Зависит от service слоя, но не знает о деталях реализации (Stripe, DynamoDB, S3)
type Handler struct {
	logger   *zap.Logger
	checkout *service.CheckoutService
	webhook  *service.WebhookService
}

// NewHandler создаёт новый HTTP handler
func NewHandler(logger *zap.Logger, checkout *service.CheckoutService, webhook *service.WebhookService) *Handler {
	return &Handler{
		logger:   logger,
		checkout: checkout,
		webhook:  webhook,
	}
}

// Product представляет товар в HTTP ответе
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Features    []string `json:"features"`
	Category    string   `json:"category"`
	Version     string   `json:"version"`
	FileSize    string   `json:"fileSize"`
}

func toHTTPProduct(p repository.Product) Product {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Features:    features,
		Category:    p.Category,
		Version:     p.Version,
		FileSize:    p.FileSize,
	}
}

// GetProducts обрабатывает GET /products - список всех товаров
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.checkout.ListProducts(ctx)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}

	httpProducts := make([]Product, 0, len(products))
	for _, p := range products {
		httpProducts = append(httpProducts, toHTTPProduct(p))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": httpProducts,
	})
}

// GetProductByID обрабатывает GET /products/{id} - товар по ID
func (h *Handler) GetProductByID(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	product, err := h.checkout.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Error("failed to get product", zap.Error(err), zap.String("product_id", id))
		writeError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"product": toHTTPProduct(product),
	})
}

// CreatePaymentIntentRequest представляет HTTP запрос на создание payment intent
type CreatePaymentIntentRequest struct {
	ProductID *string `json:"productId"`
}

// CreatePaymentIntent обрабатывает POST /create-payment-intent
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody CreatePaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if reqBody.ProductID == nil || *reqBody.ProductID == "" {
		writeError(w, http.StatusBadRequest, "Product ID is required")
		return
	}

	result, err := h.checkout.CreatePaymentIntent(ctx, service.CreatePaymentIntentInput{
		ProductID: *reqBody.ProductID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "Product ID is required")
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "Product not found")
		default:
			h.logger.Error("failed to create payment intent", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to create payment intent")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"clientSecret":    result.ClientSecret,
		"paymentIntentId": result.PaymentIntentID,
	})
}

// ConfirmPaymentRequest представляет HTTP запрос на подтверждение оплаты
type ConfirmPaymentRequest struct {
	PaymentIntentID *string `json:"paymentIntentId"`
}

// ConfirmPayment обрабатывает POST /confirm-payment
// Единственный endpoint, который выдаёт ссылку на скачивание
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if reqBody.PaymentIntentID == nil || *reqBody.PaymentIntentID == "" {
		writeError(w, http.StatusBadRequest, "Payment Intent ID is required")
		return
	}

	result, err := h.checkout.ConfirmPayment(ctx, service.ConfirmPaymentInput{
		PaymentIntentID: *reqBody.PaymentIntentID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "Payment Intent ID is required")
		case errors.Is(err, service.ErrPaymentIncomplete):
			writeError(w, http.StatusBadRequest, "Payment not completed")
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "Product not found")
		default:
			h.logger.Error("failed to confirm payment", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to confirm payment")
		}
		return
	}

	// downloadUrl: null, если у товара нет скачиваемого файла
	var downloadURL any
	if result.DownloadURL != "" {
		downloadURL = result.DownloadURL
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"downloadUrl": downloadURL,
		"orderId":     result.OrderID,
		"productName": result.ProductName,
	})
}

// StripeWebhook обрабатывает POST /webhook/stripe
// Тело запроса передаётся в verifier байт-в-байт: подпись Stripe считается
// по сырому payload, и любая пересериализация её сломает
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Webhook error")
		return
	}

	signature := r.Header.Get("Stripe-Signature")

	if err := h.webhook.HandleEvent(ctx, payload, signature); err != nil {
		// Любая ошибка webhook (подпись, malformed payload) - 400,
		// чтобы Stripe пометил доставку как неуспешную
		writeError(w, http.StatusBadRequest, "Webhook error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"received": true,
	})
}
