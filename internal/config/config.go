package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Mail     MailConfig
	Checkout CheckoutConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Path string
}

type GatewayConfig struct {
	APIKey        string
	WebhookSecret string
	BaseURL       string
	Environment   string // "test" or "live"
	ReturnURL     string
}

type MailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type CheckoutConfig struct {
	FeeRate          float64       // platform cut of each sale
	CartIdleTTL      time.Duration // idle carts older than this are swept
	StuckCheckoutTTL time.Duration // checkout flags older than this are force-cleared
	SweepInterval    time.Duration
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "marketplace.db"),
		},
		Gateway: GatewayConfig{
			APIKey:        getEnv("GATEWAY_API_KEY", ""),
			WebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", ""),
			BaseURL:       getEnv("GATEWAY_BASE_URL", "https://api.payment-gateway.test"),
			Environment:   getEnv("GATEWAY_ENVIRONMENT", "test"),
			ReturnURL:     getEnv("GATEWAY_RETURN_URL", "http://localhost:8080/checkout/return"),
		},
		Mail: MailConfig{
			APIKey:    getEnv("MAIL_API_KEY", ""),
			FromEmail: getEnv("MAIL_FROM_EMAIL", "noreply@bookings.example.com"),
			FromName:  getEnv("MAIL_FROM_NAME", "Booking Marketplace"),
		},
		Checkout: CheckoutConfig{
			FeeRate:          getEnvAsFloat("PLATFORM_FEE_RATE", 0.13),
			CartIdleTTL:      getEnvAsDuration("CART_IDLE_TTL", 20*time.Minute),
			StuckCheckoutTTL: getEnvAsDuration("STUCK_CHECKOUT_TTL", 60*time.Minute),
			SweepInterval:    getEnvAsDuration("CART_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
