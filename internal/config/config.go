package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	ServiceName    = "order-service"
	ServiceVersion = "0.1.0"
)

const (
	OrderRequestedTopic = "OrderRequested"
	OrderPlacedTopic    = "OrderPlaced"
	NotificationTopic   = "Notifications"
	GroupID             = "order-service-group"
	BatchTimeout        = 10 * time.Millisecond
	BatchSize           = 100
)

const (
	LogsPath      = "/otlp/v1/logs"   // Grafana Cloud OTLP path
	TracesPath    = "/otlp/v1/traces" // Grafana Cloud OTLP path
	ExportTimeout = 30 * time.Second
	MaxQueueSize  = 2048
)

type Config struct {
	DatabaseURL    string
	KafkaBroker    string
	RedisAddr      string // optional; empty disables the product cache
	ImageDir       string
	ImageBaseURL   string
	OtelEndpoint   string // optional; empty disables OTLP export
	OtelAuthHeader string
}

// LoadEnv loads .env.local when APP_ENV is "local" so local runs do not
// need exported variables.
func LoadEnv() {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development"
		os.Setenv("APP_ENV", appEnv)
	}

	if appEnv == "local" {
		if err := godotenv.Load(".env.local"); err != nil {
			log.Printf("Warning: .env.local file not found, or error loading: %v. Relying on system environment variables.", err)
		}
	}
}

func LoadConfig() (*Config, error) {
	LoadEnv()

	config := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		KafkaBroker:    os.Getenv("KAFKA_BROKER"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		ImageDir:       os.Getenv("IMAGE_DIR"),
		ImageBaseURL:   os.Getenv("IMAGE_BASE_URL"),
		OtelEndpoint:   os.Getenv("OTEL_ENDPOINT"),
		OtelAuthHeader: os.Getenv("OTEL_AUTH_HEADER"),
	}

	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if config.KafkaBroker == "" {
		return nil, fmt.Errorf("KAFKA_BROKER environment variable is required")
	}
	if config.ImageDir == "" {
		config.ImageDir = "images"
	}
	if config.ImageBaseURL == "" {
		config.ImageBaseURL = "/images"
	}

	return config, nil
}
