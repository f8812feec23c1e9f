package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string
	AppPort string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	// Stripe is optional: when the secret key is empty the checkout flow
	// falls back to the simulated payment path.
	StripeSecretKey     string
	StripeWebhookSecret string

	// Object storage for product images (public bucket).
	StorageURL        string
	StorageBucket     string
	StorageServiceKey string

	RedisAddr    string
	KafkaBrokers string
	KafkaTopic   string

	JWTSecret string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:  os.Getenv("APP_ENV"),
		AppPort: os.Getenv("APP_PORT"),

		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		StorageURL:        os.Getenv("STORAGE_URL"),
		StorageBucket:     os.Getenv("STORAGE_BUCKET"),
		StorageServiceKey: os.Getenv("STORAGE_SERVICE_KEY"),

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   os.Getenv("KAFKA_TOPIC"),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.StorageBucket == "" {
		cfg.StorageBucket = "product-images"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "orders.events"
	}

	return cfg
}
