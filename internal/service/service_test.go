package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gdsakelaris/software-marketplace-v2/internal/repository"
)

// Hand-written моки (testify/mock), чтобы тесты не зависели от сгенерированного кода

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (repository.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context) ([]repository.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Product), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Insert(ctx context.Context, order repository.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (repository.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	return args.Get(0).(repository.Order), args.Error(1)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, input CreateIntentInput) (PaymentIntent, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(PaymentIntent), args.Error(1)
}

func (m *MockPaymentGateway) GetIntent(ctx context.Context, id string) (PaymentIntent, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(PaymentIntent), args.Error(1)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) SignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func newTestService(products *MockProductRepository, orders *MockOrderRepository, gateway *MockPaymentGateway, storage *MockObjectStorage) *CheckoutService {
	return NewCheckoutService(zap.NewNop(), products, orders, gateway, storage, "usd", time.Hour)
}

var testProduct = repository.Product{
	ID:        "p1",
	Name:      "Code2Text Pro",
	Price:     2999,
	ObjectKey: "products/p1.zip",
	Category:  "Developer Tools",
}

func TestCheckoutService_CreatePaymentIntent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		productID      string
		product        repository.Product
		productError   error
		gatewayIntent  PaymentIntent
		gatewayError   error
		expectedError  error
		errorContains  string
		expectGateway  bool
	}{
		{
			name:      "success: intent amount equals stored price",
			productID: "p1",
			product:   testProduct,
			gatewayIntent: PaymentIntent{
				ID:           "pi_1",
				ClientSecret: "pi_1_secret_abc",
				Status:       "requires_payment_method",
				Amount:       2999,
			},
			expectGateway: true,
		},
		{
			name:          "error: empty product ID fails before gateway call",
			productID:     "",
			expectedError: ErrValidation,
			expectGateway: false,
		},
		{
			name:          "error: unknown product",
			productID:     "missing",
			productError:  repository.ErrNotFound,
			expectedError: repository.ErrNotFound,
			expectGateway: false,
		},
		{
			name:          "error: gateway failure surfaces as upstream error",
			productID:     "p1",
			product:       testProduct,
			gatewayError:  errors.New("stripe is down"),
			errorContains: "payment gateway error",
			expectGateway: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mockProducts := new(MockProductRepository)
			mockOrders := new(MockOrderRepository)
			mockGateway := new(MockPaymentGateway)
			mockStorage := new(MockObjectStorage)

			if tt.productID != "" {
				mockProducts.On("GetByID", ctx, tt.productID).
					Return(tt.product, tt.productError).Once()
			}

			if tt.expectGateway {
				mockGateway.On("CreateIntent", ctx, mock.MatchedBy(func(input CreateIntentInput) bool {
					// Сумма берётся из каталога без изменений
					return input.Amount == tt.product.Price &&
						input.Currency == "usd" &&
						input.Metadata[MetadataProductID] == tt.product.ID &&
						input.Metadata[MetadataProductName] == tt.product.Name
				})).Return(tt.gatewayIntent, tt.gatewayError).Once()
			}

			svc := newTestService(mockProducts, mockOrders, mockGateway, mockStorage)

			// Act
			result, err := svc.CreatePaymentIntent(ctx, CreatePaymentIntentInput{ProductID: tt.productID})

			// Assert
			if tt.expectedError != nil || tt.errorContains != "" {
				require.Error(t, err)
				if tt.expectedError != nil {
					require.ErrorIs(t, err, tt.expectedError)
				}
				if tt.errorContains != "" {
					require.Contains(t, err.Error(), tt.errorContains)
				}
				require.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.gatewayIntent.ClientSecret, result.ClientSecret)
				require.Equal(t, tt.gatewayIntent.ID, result.PaymentIntentID)
			}

			if !tt.expectGateway {
				mockGateway.AssertNotCalled(t, "CreateIntent")
			}
			// CreatePaymentIntent никогда не пишет в ledger
			mockOrders.AssertNotCalled(t, "Insert")
			mockGateway.AssertExpectations(t)
			mockProducts.AssertExpectations(t)
		})
	}
}

func succeededIntent() PaymentIntent {
	return PaymentIntent{
		ID:     "pi_1",
		Status: IntentStatusSucceeded,
		Amount: 2999,
		Metadata: map[string]string{
			MetadataProductID:   "p1",
			MetadataProductName: "Code2Text Pro",
		},
	}
}

func TestCheckoutService_ConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("success: order written and download url signed", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		mockOrders := new(MockOrderRepository)
		mockGateway := new(MockPaymentGateway)
		mockStorage := new(MockObjectStorage)

		mockGateway.On("GetIntent", ctx, "pi_1").Return(succeededIntent(), nil).Once()
		mockProducts.On("GetByID", ctx, "p1").Return(testProduct, nil).Once()
		mockOrders.On("Insert", ctx, mock.MatchedBy(func(order repository.Order) bool {
			return order.ProductID == "p1" &&
				order.ProductName == "Code2Text Pro" &&
				order.PaymentIntentID == "pi_1" &&
				order.Amount == 2999 &&
				order.Status == repository.StatusCompleted &&
				order.OrderID != "" &&
				order.CreatedAt > 0
		})).Return(nil).Once()
		mockStorage.On("SignedDownloadURL", ctx, "products/p1.zip", time.Hour).
			Return("https://s3.example.com/products/p1.zip?signed", nil).Once()

		svc := newTestService(mockProducts, mockOrders, mockGateway, mockStorage)

		result, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{PaymentIntentID: "pi_1"})

		require.NoError(t, err)
		require.Equal(t, "https://s3.example.com/products/p1.zip?signed", result.DownloadURL)
		require.Equal(t, "Code2Text Pro", result.ProductName)
		require.NotEmpty(t, result.OrderID)
		mockOrders.AssertExpectations(t)
		mockStorage.AssertExpectations(t)
	})

	t.Run("success: product without file still creates order, empty url", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		mockOrders := new(MockOrderRepository)
		mockGateway := new(MockPaymentGateway)
		mockStorage := new(MockObjectStorage)

		noFile := testProduct
		noFile.ObjectKey = ""

		mockGateway.On("GetIntent", ctx, "pi_1").Return(succeededIntent(), nil).Once()
		mockProducts.On("GetByID", ctx, "p1").Return(noFile, nil).Once()
		mockOrders.On("Insert", ctx, mock.AnythingOfType("repository.Order")).Return(nil).Once()

		svc := newTestService(mockProducts, mockOrders, mockGateway, mockStorage)

		result, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{PaymentIntentID: "pi_1"})

		require.NoError(t, err)
		require.Empty(t, result.DownloadURL)
		mockOrders.AssertExpectations(t)
		mockStorage.AssertNotCalled(t, "SignedDownloadURL")
	})

	t.Run("error: empty payment intent ID fails before gateway call", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		mockOrders := new(MockOrderRepository)
		mockGateway := new(MockPaymentGateway)
		mockStorage := new(MockObjectStorage)

		svc := newTestService(mockProducts, mockOrders, mockGateway, mockStorage)

		result, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{PaymentIntentID: ""})

		require.ErrorIs(t, err, ErrValidation)
		require.Nil(t, result)
		mockGateway.AssertNotCalled(t, "GetIntent")
	})

	t.Run("error: payment not succeeded, ledger untouched", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		mockOrders := new(MockOrderRepository)
		mockGateway := new(MockPaymentGateway)
		mockStorage := new(MockObjectStorage)

		pending := succeededIntent()
		pending.Status = "requires_payment_method"
		mockGateway.On("GetIntent", ctx, "pi_1").Return(pending, nil).Once()

		svc := newTestService(mockProducts, mockOrders, mockGateway, mockStorage)

		result, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{PaymentIntentID: "pi_1"})

		require.ErrorIs(t, err, ErrPaymentIncomplete)
		require.Nil(t, result)
		mockOrders.AssertNotCalled(t, "Insert")
		mockProducts.AssertNotCalled(t, "GetByID")
	})

	t.Run("error: product removed between intent and confirmation", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		mockOrders := new(MockOrderRepository)
		mockGateway := new(MockPaymentGateway)
		mockStorage := new(MockObjectStorage)

		mockGateway.On("GetIntent", ctx, "pi_1").Return(succeededIntent(), nil).Once()
		mockProducts.On("GetByID", ctx, "p1").Return(repository.Product{}, repository.ErrNotFound).Once()

		svc := newTestService(mockProducts, mockOrders, mockGateway, mockStorage)

		_, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{PaymentIntentID: "pi_1"})

		require.ErrorIs(t, err, repository.ErrNotFound)
		mockOrders.AssertNotCalled(t, "Insert")
	})

	t.Run("idempotent: repeated confirmation reuses existing order", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		mockOrders := new(MockOrderRepository)
		mockGateway := new(MockPaymentGateway)
		mockStorage := new(MockObjectStorage)

		existing := repository.Order{
			OrderID:         "order_1700000000000_abcd1234",
			ProductID:       "p1",
			ProductName:     "Code2Text Pro",
			PaymentIntentID: "pi_1",
			Amount:          2999,
			Status:          repository.StatusCompleted,
			CreatedAt:       1700000000000,
		}

		mockGateway.On("GetIntent", ctx, "pi_1").Return(succeededIntent(), nil).Once()
		mockProducts.On("GetByID", ctx, "p1").Return(testProduct, nil).Once()
		mockOrders.On("Insert", ctx, mock.AnythingOfType("repository.Order")).
			Return(repository.ErrAlreadyExists).Once()
		mockOrders.On("GetByPaymentIntentID", ctx, "pi_1").Return(existing, nil).Once()
		// URL выдаётся заново: он ограничен по времени и его дублирование безопасно
		mockStorage.On("SignedDownloadURL", ctx, "products/p1.zip", time.Hour).
			Return("https://s3.example.com/products/p1.zip?signed-again", nil).Once()

		svc := newTestService(mockProducts, mockOrders, mockGateway, mockStorage)

		result, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{PaymentIntentID: "pi_1"})

		require.NoError(t, err)
		require.Equal(t, existing.OrderID, result.OrderID)
		require.Equal(t, "https://s3.example.com/products/p1.zip?signed-again", result.DownloadURL)
		mockOrders.AssertExpectations(t)
	})

	t.Run("error: existing order missing after insert conflict is not a 404", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		mockOrders := new(MockOrderRepository)
		mockGateway := new(MockPaymentGateway)
		mockStorage := new(MockObjectStorage)

		// Insert сказал "уже есть", а чтение - "нет": рассогласование ledger,
		// оно не должно выглядеть для клиента как отсутствие товара
		mockGateway.On("GetIntent", ctx, "pi_1").Return(succeededIntent(), nil).Once()
		mockProducts.On("GetByID", ctx, "p1").Return(testProduct, nil).Once()
		mockOrders.On("Insert", ctx, mock.AnythingOfType("repository.Order")).
			Return(repository.ErrAlreadyExists).Once()
		mockOrders.On("GetByPaymentIntentID", ctx, "pi_1").
			Return(repository.Order{}, repository.ErrNotFound).Once()

		svc := newTestService(mockProducts, mockOrders, mockGateway, mockStorage)

		result, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{PaymentIntentID: "pi_1"})

		require.Error(t, err)
		require.NotErrorIs(t, err, repository.ErrNotFound)
		require.Contains(t, err.Error(), "failed to load existing order")
		require.Nil(t, result)
		mockStorage.AssertNotCalled(t, "SignedDownloadURL")
	})

	t.Run("error: ledger write failure", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		mockOrders := new(MockOrderRepository)
		mockGateway := new(MockPaymentGateway)
		mockStorage := new(MockObjectStorage)

		mockGateway.On("GetIntent", ctx, "pi_1").Return(succeededIntent(), nil).Once()
		mockProducts.On("GetByID", ctx, "p1").Return(testProduct, nil).Once()
		mockOrders.On("Insert", ctx, mock.AnythingOfType("repository.Order")).
			Return(errors.New("dynamodb unavailable")).Once()

		svc := newTestService(mockProducts, mockOrders, mockGateway, mockStorage)

		_, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{PaymentIntentID: "pi_1"})

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to save order")
		mockStorage.AssertNotCalled(t, "SignedDownloadURL")
	})

	t.Run("error: url signing failure after order write", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		mockOrders := new(MockOrderRepository)
		mockGateway := new(MockPaymentGateway)
		mockStorage := new(MockObjectStorage)

		mockGateway.On("GetIntent", ctx, "pi_1").Return(succeededIntent(), nil).Once()
		mockProducts.On("GetByID", ctx, "p1").Return(testProduct, nil).Once()
		mockOrders.On("Insert", ctx, mock.AnythingOfType("repository.Order")).Return(nil).Once()
		mockStorage.On("SignedDownloadURL", ctx, "products/p1.zip", time.Hour).
			Return("", errors.New("s3 unavailable")).Once()

		svc := newTestService(mockProducts, mockOrders, mockGateway, mockStorage)

		_, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{PaymentIntentID: "pi_1"})

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to sign download url")
	})
}

func TestCheckoutService_GetProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		mockProducts.On("GetByID", ctx, "p1").Return(testProduct, nil).Once()

		svc := newTestService(mockProducts, new(MockOrderRepository), new(MockPaymentGateway), new(MockObjectStorage))

		product, err := svc.GetProduct(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, testProduct, product)
	})

	t.Run("error: empty id", func(t *testing.T) {
		mockProducts := new(MockProductRepository)
		svc := newTestService(mockProducts, new(MockOrderRepository), new(MockPaymentGateway), new(MockObjectStorage))

		_, err := svc.GetProduct(ctx, "")
		require.ErrorIs(t, err, ErrValidation)
		mockProducts.AssertNotCalled(t, "GetByID")
	})
}
