package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gdsakelaris/software-marketplace-v2/internal/repository"
)

// ProductRepository реализует repository.ProductRepository в памяти
// Используется для разработки и тестирования
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]repository.Product
	// order сохраняет порядок добавления, чтобы List был детерминированным
	order []string
}

// NewProductRepository создаёт новый in-memory каталог с указанными товарами
func NewProductRepository(products ...repository.Product) *ProductRepository {
	r := &ProductRepository{
		products: make(map[string]repository.Product),
	}
	for _, p := range products {
		r.products[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r
}

// GetByID получает товар по ID из памяти
func (r *ProductRepository) GetByID(ctx context.Context, id string) (repository.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists {
		return repository.Product{}, repository.ErrNotFound
	}

	return product, nil
}

// List возвращает все товары в порядке добавления
func (r *ProductRepository) List(ctx context.Context) ([]repository.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]repository.Product, 0, len(r.order))
	for _, id := range r.order {
		products = append(products, r.products[id])
	}
	return products, nil
}

// OrderRepository реализует repository.OrderRepository в памяти
// Хранит заказы по payment intent ID — тот же ключ идемпотентности,
// что и в DynamoDB реализации
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]repository.Order // payment intent ID -> order
}

// NewOrderRepository создаёт новый in-memory ledger заказов
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]repository.Order),
	}
}

// Insert сохраняет заказ, если для его PaymentIntentID ещё нет записи
// Защищён мьютексом, поэтому гонка двух одинаковых подтверждений
// разрешается так же, как conditional write в DynamoDB
func (r *OrderRepository) Insert(ctx context.Context, order repository.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.PaymentIntentID]; exists {
		return repository.ErrAlreadyExists
	}

	if order.CreatedAt == 0 {
		order.CreatedAt = time.Now().UnixMilli()
	}

	r.orders[order.PaymentIntentID] = order
	return nil
}

// GetByPaymentIntentID получает заказ по payment intent ID из памяти
func (r *OrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (repository.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[paymentIntentID]
	if !exists {
		return repository.Order{}, repository.ErrNotFound
	}

	return order, nil
}
