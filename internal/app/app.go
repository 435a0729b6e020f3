package app

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	httpapi "github.com/gdsakelaris/software-marketplace-v2/internal/api/http"
	s3client "github.com/gdsakelaris/software-marketplace-v2/internal/client/s3"
	stripeclient "github.com/gdsakelaris/software-marketplace-v2/internal/client/stripe"
	"github.com/gdsakelaris/software-marketplace-v2/internal/config"
	"github.com/gdsakelaris/software-marketplace-v2/internal/event"
	eventkafka "github.com/gdsakelaris/software-marketplace-v2/internal/event/kafka"
	"github.com/gdsakelaris/software-marketplace-v2/internal/repository/dynamo"
	"github.com/gdsakelaris/software-marketplace-v2/internal/service"
	platformlogging "github.com/gdsakelaris/software-marketplace-v2/platform/logging"
	platformshutdown "github.com/gdsakelaris/software-marketplace-v2/platform/shutdown"
)

// App содержит все зависимости для запуска и корректного shutdown Storefront Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Storefront Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "storefront",
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("op", op))
	logger.Info("Building Storefront service", zap.String("http_addr", cfg.HTTPAddr))

	// AWS клиенты (DynamoDB для каталога и ledger, S3 для подписанных URL)
	logger.Info("Loading AWS config", zap.String("region", cfg.AWSRegion))
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, err
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	s3Client := awss3.NewFromConfig(awsCfg)

	productRepo := dynamo.NewProductRepository(dynamoClient, cfg.ProductsTable)
	orderRepo := dynamo.NewOrderRepository(dynamoClient, cfg.OrdersTable)

	// Stripe gateway
	gateway := stripeclient.NewGateway(logger, cfg.StripeSecretKey)

	var verifier service.WebhookVerifier
	if cfg.StripeWebhookSecret != "" {
		verifier = stripeclient.NewWebhookVerifier(logger, cfg.StripeWebhookSecret)
	} else {
		// Без secret подписи не проверяются - допустимо только локально
		verifier = service.NewUnverifiedVerifier(logger)
	}

	// S3 signer для ссылок на скачивание
	storage := s3client.NewSigner(logger, s3Client, cfg.S3Bucket)

	// Kafka publisher для observability событий (опционально)
	var publisher service.PaymentEventPublisher
	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)

	if len(cfg.KafkaBrokers) > 0 {
		logger.Info("Connecting payment event publisher to Kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaPaymentEventTopic),
		)
		kafkaPublisher := eventkafka.NewPaymentEventPublisher(logger, cfg.KafkaBrokers, cfg.KafkaPaymentEventTopic)
		shutdownMgr.Add("kafka_writer", platformshutdown.CloseWriter(kafkaPublisher))
		publisher = kafkaPublisher
	} else {
		publisher = event.NewNoopPublisher(logger)
	}

	// Service слой
	checkoutService := service.NewCheckoutService(
		logger,
		productRepo,
		orderRepo,
		gateway,
		storage,
		cfg.Currency,
		cfg.DownloadTTL,
	)
	webhookService := service.NewWebhookService(logger, verifier, publisher)

	// Readiness: каталог доступен = сервис готов принимать трафик
	readiness := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := dynamoClient.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(cfg.ProductsTable),
		})
		return err == nil
	}

	// HTTP слой
	handler := httpapi.NewHandler(logger, checkoutService, webhookService)
	router := httpapi.NewRouter(handler, cfg.CORSOrigin, readiness)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return &App{
		logger:      logger,
		httpServer:  httpServer,
		shutdownMgr: shutdownMgr,
	}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Storefront service", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("Health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("Storefront service stopped")
	return nil
}
