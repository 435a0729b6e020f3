package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/gdsakelaris/software-marketplace-v2/internal/repository"
)

// productItem - представление товара в DynamoDB
// Имена атрибутов совпадают со схемой таблицы products
type productItem struct {
	ID          string   `dynamodbav:"id"`
	Name        string   `dynamodbav:"name"`
	Description string   `dynamodbav:"description"`
	Price       int64    `dynamodbav:"price"`
	ImageURL    string   `dynamodbav:"imageUrl"`
	Features    []string `dynamodbav:"features"`
	S3Key       string   `dynamodbav:"s3Key,omitempty"`
	Category    string   `dynamodbav:"category"`
	Version     string   `dynamodbav:"version"`
	FileSize    string   `dynamodbav:"fileSize"`
	CreatedAt   int64    `dynamodbav:"createdAt"`
	UpdatedAt   int64    `dynamodbav:"updatedAt"`
}

func (i productItem) toDomain() repository.Product {
	return repository.Product{
		ID:          i.ID,
		Name:        i.Name,
		Description: i.Description,
		Price:       i.Price,
		ImageURL:    i.ImageURL,
		Features:    i.Features,
		ObjectKey:   i.S3Key,
		Category:    i.Category,
		Version:     i.Version,
		FileSize:    i.FileSize,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// orderItem - представление заказа в DynamoDB
// Partition key таблицы orders - payment_intent_id: это ключ идемпотентности,
// conditional write по нему гарантирует не больше одного заказа на оплату
type orderItem struct {
	PaymentIntentID string `dynamodbav:"payment_intent_id"`
	OrderID         string `dynamodbav:"order_id"`
	ProductID       string `dynamodbav:"product_id"`
	ProductName     string `dynamodbav:"product_name"`
	Amount          int64  `dynamodbav:"amount"`
	Status          string `dynamodbav:"status"`
	CreatedAt       int64  `dynamodbav:"created_at"`
}

func (i orderItem) toDomain() repository.Order {
	return repository.Order{
		OrderID:         i.OrderID,
		ProductID:       i.ProductID,
		ProductName:     i.ProductName,
		PaymentIntentID: i.PaymentIntentID,
		Amount:          i.Amount,
		Status:          i.Status,
		CreatedAt:       i.CreatedAt,
	}
}

// ProductRepository реализует repository.ProductRepository используя DynamoDB
type ProductRepository struct {
	client *dynamodb.Client
	table  string
}

// NewProductRepository создаёт новый DynamoDB репозиторий каталога
func NewProductRepository(client *dynamodb.Client, table string) *ProductRepository {
	return &ProductRepository{
		client: client,
		table:  table,
	}
}

// GetByID получает товар по ID из DynamoDB (GetItem по partition key)
func (r *ProductRepository) GetByID(ctx context.Context, id string) (repository.Product, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return repository.Product{}, fmt.Errorf("dynamodb get product: %w", err)
	}
	if out.Item == nil {
		return repository.Product{}, repository.ErrNotFound
	}

	var item productItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return repository.Product{}, fmt.Errorf("unmarshal product item: %w", err)
	}

	return item.toDomain(), nil
}

// List возвращает все товары каталога (Scan)
// Каталог небольшой, поэтому Scan с пагинацией здесь уместен
func (r *ProductRepository) List(ctx context.Context) ([]repository.Product, error) {
	products := make([]repository.Product, 0)

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan products: %w", err)
		}

		var items []productItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal product items: %w", err)
		}
		for _, item := range items {
			products = append(products, item.toDomain())
		}
	}

	return products, nil
}

// OrderRepository реализует repository.OrderRepository используя DynamoDB
type OrderRepository struct {
	client *dynamodb.Client
	table  string
}

// NewOrderRepository создаёт новый DynamoDB ledger заказов
func NewOrderRepository(client *dynamodb.Client, table string) *OrderRepository {
	return &OrderRepository{
		client: client,
		table:  table,
	}
}

// Insert сохраняет заказ с условием attribute_not_exists(payment_intent_id)
// ConditionalCheckFailed означает, что заказ для этой оплаты уже записан
func (r *OrderRepository) Insert(ctx context.Context, order repository.Order) error {
	item, err := attributevalue.MarshalMap(orderItem{
		PaymentIntentID: order.PaymentIntentID,
		OrderID:         order.OrderID,
		ProductID:       order.ProductID,
		ProductName:     order.ProductName,
		Amount:          order.Amount,
		Status:          order.Status,
		CreatedAt:       order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(payment_intent_id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("dynamodb put order: %w", err)
	}

	return nil
}

// GetByPaymentIntentID получает заказ по payment intent ID (GetItem по partition key)
func (r *OrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (repository.Order, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"payment_intent_id": &types.AttributeValueMemberS{Value: paymentIntentID},
		},
	})
	if err != nil {
		return repository.Order{}, fmt.Errorf("dynamodb get order: %w", err)
	}
	if out.Item == nil {
		return repository.Order{}, repository.ErrNotFound
	}

	var item orderItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return repository.Order{}, fmt.Errorf("unmarshal order item: %w", err)
	}

	return item.toDomain(), nil
}
