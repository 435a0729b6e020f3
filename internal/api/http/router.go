package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	platformhealth "github.com/gdsakelaris/software-marketplace-v2/platform/health/http"
)

// NewRouter создаёт и настраивает HTTP роутер Storefront Service
// corsOrigin - единственный разрешённый origin ("*" разрешает все)
// readiness - функция готовности сервиса для health endpoint
func NewRouter(handler *Handler, corsOrigin string, readiness func() bool) chi.Router {
	router := chi.NewRouter()

	// CORS применяется единообразно ко всем маршрутам
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Stripe-Signature"},
		AllowCredentials: corsOrigin != "*",
	}))

	// Каталог
	router.Get("/products", handler.GetProducts)
	router.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		handler.GetProductByID(w, r, id)
	})

	// Checkout workflow
	router.Post("/create-payment-intent", handler.CreatePaymentIntent)
	router.Post("/confirm-payment", handler.ConfirmPayment)

	// Stripe webhook: handler сам читает сырое тело для проверки подписи
	router.Post("/webhook/stripe", handler.StripeWebhook)

	// Health
	router.Get("/health", platformhealth.Handler(readiness))

	// 404 в том же envelope, что и остальные ответы
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})

	return router
}
