package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// Env представляет окружение приложения
type Env string

const (
	// EnvLocal - локальное окружение (для разработки на хосте)
	EnvLocal Env = "local"
	// EnvDocker - Docker окружение (для запуска в контейнерах)
	EnvDocker Env = "docker"
)

// Config содержит конфигурацию Storefront Service
type Config struct {
	AppEnv   Env
	HTTPAddr string

	// AWS
	AWSRegion     string
	ProductsTable string
	OrdersTable   string
	S3Bucket      string

	// Stripe
	StripeSecretKey string
	// StripeWebhookSecret пуст = подписи webhook не проверяются (только local)
	StripeWebhookSecret string

	// Checkout
	Currency    string
	DownloadTTL time.Duration

	// HTTP
	CORSOrigin string

	// Kafka (опционально: пустой список брокеров отключает публикацию событий)
	KafkaBrokers           []string
	KafkaPaymentEventTopic string

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения
// Читает APP_ENV и устанавливает дефолты в зависимости от окружения
func Load() (Config, error) {
	cfg := Config{}

	appEnvStr := getString("APP_ENV", string(EnvLocal))
	appEnv := Env(appEnvStr)
	if appEnv != EnvLocal && appEnv != EnvDocker {
		return Config{}, fmt.Errorf("invalid APP_ENV: %s (must be 'local' or 'docker')", appEnvStr)
	}
	cfg.AppEnv = appEnv

	// HTTP_ADDR
	if cfg.AppEnv == EnvLocal {
		cfg.HTTPAddr = getString("HTTP_ADDR", "127.0.0.1:3001")
	} else {
		cfg.HTTPAddr = getString("HTTP_ADDR", "0.0.0.0:3001")
	}

	// AWS
	cfg.AWSRegion = getString("AWS_REGION", "us-east-1")
	cfg.ProductsTable = getString("DYNAMODB_PRODUCTS_TABLE", "products")
	cfg.OrdersTable = getString("DYNAMODB_ORDERS_TABLE", "orders")
	cfg.S3Bucket = getString("S3_BUCKET_NAME", "")

	// Stripe
	cfg.StripeSecretKey = getString("STRIPE_SECRET_KEY", "")
	cfg.StripeWebhookSecret = getString("STRIPE_WEBHOOK_SECRET", "")

	// Checkout
	cfg.Currency = getString("CURRENCY", "usd")
	downloadTTLStr := getString("DOWNLOAD_URL_TTL", "1h")
	downloadTTL, err := time.ParseDuration(downloadTTLStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DOWNLOAD_URL_TTL: %w", err)
	}
	cfg.DownloadTTL = downloadTTL

	// CORS_ORIGIN
	cfg.CORSOrigin = getString("CORS_ORIGIN", "*")

	// Kafka
	if brokers := getString("KAFKA_BROKERS", ""); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if b := strings.TrimSpace(broker); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	cfg.KafkaPaymentEventTopic = getString("KAFKA_PAYMENT_EVENTS_TOPIC", "storefront.payment.events")

	// SHUTDOWN_TIMEOUT
	shutdownTimeoutStr := getString("SHUTDOWN_TIMEOUT", "5s")
	shutdownTimeout, err := time.ParseDuration(shutdownTimeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout = shutdownTimeout

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.ProductsTable == "" {
		return fmt.Errorf("DYNAMODB_PRODUCTS_TABLE is required")
	}
	if c.OrdersTable == "" {
		return fmt.Errorf("DYNAMODB_ORDERS_TABLE is required")
	}
	if c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET_NAME is required")
	}
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.Currency == "" {
		return fmt.Errorf("CURRENCY is required")
	}
	if c.DownloadTTL <= 0 {
		return fmt.Errorf("DOWNLOAD_URL_TTL must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// Log выводит конфигурацию в лог (с маскировкой секретов)
func (c Config) Log() {
	log.Printf("Config loaded:")
	log.Printf("  APP_ENV: %s", c.AppEnv)
	log.Printf("  HTTP_ADDR: %s", c.HTTPAddr)
	log.Printf("  AWS_REGION: %s", c.AWSRegion)
	log.Printf("  DYNAMODB_PRODUCTS_TABLE: %s", c.ProductsTable)
	log.Printf("  DYNAMODB_ORDERS_TABLE: %s", c.OrdersTable)
	log.Printf("  S3_BUCKET_NAME: %s", c.S3Bucket)
	log.Printf("  STRIPE_SECRET_KEY: %s", maskSecret(c.StripeSecretKey))
	log.Printf("  STRIPE_WEBHOOK_SECRET: %s", maskSecret(c.StripeWebhookSecret))
	log.Printf("  CURRENCY: %s", c.Currency)
	log.Printf("  DOWNLOAD_URL_TTL: %s", c.DownloadTTL)
	log.Printf("  CORS_ORIGIN: %s", c.CORSOrigin)
	log.Printf("  KAFKA_BROKERS: %s", strings.Join(c.KafkaBrokers, ","))
	log.Printf("  KAFKA_PAYMENT_EVENTS_TOPIC: %s", c.KafkaPaymentEventTopic)
	log.Printf("  SHUTDOWN_TIMEOUT: %s", c.ShutdownTimeout)
}

// getString читает переменную окружения или возвращает дефолт
func getString(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// maskSecret маскирует секрет для безопасного логирования
// Показывает только префикс, чтобы можно было отличить test/live ключи
func maskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}
