package repository

import (
	"context"
	"errors"
)

// Product представляет доменную модель товара из каталога
// Это бизнес-сущность, не привязанная к HTTP или DynamoDB
type Product struct {
	ID          string
	Name        string
	Description string
	// Price в минимальных единицах валюты (центах), всегда >= 0
	Price    int64
	ImageURL string
	Features []string
	// ObjectKey путь к файлу товара в object storage
	// Пустая строка означает, что у товара нет скачиваемого файла
	ObjectKey string
	Category  string
	Version   string
	FileSize  string
	CreatedAt int64 // Unix timestamp в миллисекундах
	UpdatedAt int64
}

// HasDownload сообщает, есть ли у товара файл для скачивания
func (p Product) HasDownload() bool {
	return p.ObjectKey != ""
}

// Order представляет доменную модель заказа
// Заказ создаётся ровно один раз после успешной оплаты и больше не изменяется
type Order struct {
	OrderID         string
	ProductID       string
	ProductName     string
	PaymentIntentID string
	// Amount фактически оплаченная сумма в центах (из payment intent)
	Amount    int64
	Status    string
	CreatedAt int64 // Unix timestamp в миллисекундах
}

// StatusCompleted — единственный статус, который этот workflow записывает:
// заказ появляется в ledger только после подтверждённой оплаты
const StatusCompleted = "completed"

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ProductRepository --dir=. --output=./mocks --outpkg=mocks

// ProductRepository определяет интерфейс для чтения каталога товаров
// Каталог для этого сервиса read-only: записи создаются seed-скриптами
type ProductRepository interface {
	// GetByID получает товар по ID
	// Возвращает ErrNotFound, если товар не найден
	GetByID(ctx context.Context, id string) (Product, error)

	// List возвращает все товары каталога
	List(ctx context.Context) ([]Product, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=OrderRepository --dir=. --output=./mocks --outpkg=mocks

// OrderRepository определяет интерфейс для работы с ledger заказов
// Ledger ключуется по payment intent ID — это естественный ключ идемпотентности:
// повторное подтверждение той же оплаты не должно создавать второй заказ
type OrderRepository interface {
	// Insert сохраняет заказ, только если для его PaymentIntentID ещё нет записи
	// Возвращает ErrAlreadyExists, если заказ для этого payment intent уже создан
	Insert(ctx context.Context, order Order) error

	// GetByPaymentIntentID получает заказ по payment intent ID
	// Возвращает ErrNotFound, если заказ не найден
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (Order, error)
}

// ErrNotFound возвращается, когда запись не найдена в хранилище
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists возвращается при попытке вставить заказ для payment intent,
// по которому заказ уже существует
var ErrAlreadyExists = errors.New("order already exists")
