//go:build integration

package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gdsakelaris/software-marketplace-v2/internal/repository"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()

	// Поднимаем DynamoDB Local контейнер через testcontainers
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "amazon/dynamodb-local:2.5.2",
			ExposedPorts: []string{"8000/tcp"},
			WaitingFor:   wait.ForListeningPort("8000/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() {
		err := container.Terminate(ctx) //останавливаем контейнер и удаляем его
		require.NoError(t, err)
	}()

	// Endpoint(...) собирает правильный адрес (включая реальный порт, который может быть не 8000)
	endpoint, err := container.Endpoint(ctx, "http")
	require.NoError(t, err)

	// DynamoDB Local принимает любые статические credentials
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
	)
	require.NoError(t, err)

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	// Ждём готовности DynamoDB через ListTables с retry
	var pingErr error
	for i := 0; i < 10; i++ {
		_, pingErr = client.ListTables(ctx, &dynamodb.ListTablesInput{})
		if pingErr == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, pingErr, "Failed to reach DynamoDB Local after retries")

	// Создаём таблицы по той же схеме, что и в production:
	// products с partition key id, orders с partition key payment_intent_id
	createTable(ctx, t, client, "products", "id")
	createTable(ctx, t, client, "orders", "payment_intent_id")

	productRepo := NewProductRepository(client, "products")
	orderRepo := NewOrderRepository(client, "orders")

	// Сидируем каталог напрямую через PutItem
	seedProduct(ctx, t, client, productItem{
		ID:          "p1",
		Name:        "Code2Text Pro",
		Description: "Converts codebases to text",
		Price:       2999,
		Features:    []string{"fast", "offline"},
		S3Key:       "products/p1.zip",
		Category:    "Developer Tools",
		Version:     "1.0.0",
		FileSize:    "12 MB",
	})
	seedProduct(ctx, t, client, productItem{
		ID:       "p2",
		Name:     "Consulting Session",
		Price:    9900,
		Category: "Services",
	})

	t.Run("GetByID", func(t *testing.T) {
		got, err := productRepo.GetByID(ctx, "p1")
		require.NoError(t, err)

		require.Equal(t, "p1", got.ID)
		require.Equal(t, "Code2Text Pro", got.Name)
		require.Equal(t, int64(2999), got.Price)
		require.Equal(t, "products/p1.zip", got.ObjectKey)
		require.Equal(t, []string{"fast", "offline"}, got.Features)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		_, err := productRepo.GetByID(ctx, "missing")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		products, err := productRepo.List(ctx)
		require.NoError(t, err)
		require.Len(t, products, 2)

		ids := []string{products[0].ID, products[1].ID}
		require.ElementsMatch(t, []string{"p1", "p2"}, ids)
	})

	t.Run("Insert and GetByPaymentIntentID", func(t *testing.T) {
		order := repository.Order{
			OrderID:         "order_1700000000000_abcd1234",
			ProductID:       "p1",
			ProductName:     "Code2Text Pro",
			PaymentIntentID: "pi_1",
			Amount:          2999,
			Status:          repository.StatusCompleted,
			CreatedAt:       1700000000000,
		}

		err := orderRepo.Insert(ctx, order)
		require.NoError(t, err)

		got, err := orderRepo.GetByPaymentIntentID(ctx, "pi_1")
		require.NoError(t, err)
		require.Equal(t, order, got)
	})

	t.Run("Insert_Duplicate", func(t *testing.T) {
		first := repository.Order{
			OrderID:         "order_1700000000000_first000",
			ProductID:       "p1",
			ProductName:     "Code2Text Pro",
			PaymentIntentID: "pi_2",
			Amount:          2999,
			Status:          repository.StatusCompleted,
			CreatedAt:       1700000000000,
		}
		require.NoError(t, orderRepo.Insert(ctx, first))

		// Повторная запись с тем же payment intent ID должна упасть
		// на ConditionExpression и превратиться в ErrAlreadyExists
		second := first
		second.OrderID = "order_1700000000001_second00"
		second.CreatedAt = 1700000000001

		err := orderRepo.Insert(ctx, second)
		require.ErrorIs(t, err, repository.ErrAlreadyExists)

		// В ledger остался первый заказ
		got, err := orderRepo.GetByPaymentIntentID(ctx, "pi_2")
		require.NoError(t, err)
		require.Equal(t, first.OrderID, got.OrderID)
		require.Equal(t, first.CreatedAt, got.CreatedAt)
	})

	t.Run("GetByPaymentIntentID_NotFound", func(t *testing.T) {
		_, err := orderRepo.GetByPaymentIntentID(ctx, "pi_missing")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})
}

// createTable создаёт таблицу с одним string partition key
func createTable(ctx context.Context, t *testing.T, client *dynamodb.Client, table, key string) {
	t.Helper()

	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(key), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(key), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	require.NoError(t, err, "Failed to create table %s", table)
}

func seedProduct(ctx context.Context, t *testing.T, client *dynamodb.Client, item productItem) {
	t.Helper()

	av, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)

	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String("products"),
		Item:      av,
	})
	require.NoError(t, err)
}
