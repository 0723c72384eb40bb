package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Payment gateway and fee configuration
	Payment PaymentConfig

	// RabbitMQ notification transport
	Messaging MessagingConfig

	// Redis webhook dedup cache and rate limit counters
	Redis RedisConfig

	// Public endpoint rate limits
	RateLimit RateLimitConfig

	// OpenTelemetry export
	Tracing TracingConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
	FrontendURL string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	Driver             string // "pgx" or "postgres"
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// PaymentConfig holds Omise and platform fee configuration
type PaymentConfig struct {
	Enabled               bool
	PlatformFeePercentage decimal.Decimal
	DefaultCurrency       string
	PublicKey             string
	SecretKey             string // never exposed to clients
	SourceType            string // Omise source type used for hosted checkout
	ReturnURL             string
	SweepSchedule         string // cron spec with seconds field
	SweepAfter            time.Duration
}

// MessagingConfig holds RabbitMQ configuration
type MessagingConfig struct {
	URL            string
	NotifyExchange string
}

// RedisConfig holds the optional dedup cache and rate limit counter configuration
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	WebhookDedupTTL time.Duration
}

// RateLimitConfig holds per-IP request budgets. Limits apply only when Redis is configured.
type RateLimitConfig struct {
	Enabled         bool
	BookingRequests int
	BookingWindow   time.Duration
	LoginAttempts   int
	LoginWindow     time.Duration
}

// TracingConfig holds OTLP exporter configuration
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Driver:             getEnv("DATABASE_DRIVER", "pgx"),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Payment: PaymentConfig{
			Enabled:               getEnvAsBool("PAYMENTS_ENABLED", true),
			PlatformFeePercentage: getEnvAsDecimal("PLATFORM_FEE_PERCENTAGE", decimal.NewFromInt(5)),
			DefaultCurrency:       strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
			PublicKey:             getEnv("OMISE_PUBLIC_KEY", ""),
			SecretKey:             getEnv("OMISE_SECRET_KEY", ""),
			SourceType:            getEnv("OMISE_SOURCE_TYPE", "promptpay"),
			ReturnURL:             getEnv("PAYMENT_RETURN_URL", ""),
			SweepSchedule:         getEnv("PAYMENT_SWEEP_SCHEDULE", "0 */10 * * * *"),
			SweepAfter:            time.Duration(getEnvAsInt("PAYMENT_SWEEP_AFTER_MINUTES", 30)) * time.Minute,
		},
		Messaging: MessagingConfig{
			URL:            getEnv("RABBITMQ_URL", ""),
			NotifyExchange: getEnv("NOTIFY_EXCHANGE", "booking.events"),
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_URL", ""),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			WebhookDedupTTL: time.Duration(getEnvAsInt("WEBHOOK_DEDUP_TTL", 86400)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:         getEnvAsBool("RATE_LIMIT_ENABLED", true),
			BookingRequests: getEnvAsInt("BOOKING_RATE_LIMIT", 20),
			BookingWindow:   time.Duration(getEnvAsInt("BOOKING_RATE_WINDOW", 600)) * time.Second,
			LoginAttempts:   getEnvAsInt("LOGIN_RATE_LIMIT", 10),
			LoginWindow:     time.Duration(getEnvAsInt("LOGIN_RATE_WINDOW", 900)) * time.Second,
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "booking-engine"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Database.Driver != "pgx" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be 'pgx' or 'postgres')", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	pct := c.Payment.PlatformFeePercentage
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("PLATFORM_FEE_PERCENTAGE must be between 0 and 100, got %s", pct)
	}

	if c.Payment.Enabled {
		if c.Payment.PublicKey == "" {
			return fmt.Errorf("OMISE_PUBLIC_KEY is required when payments are enabled")
		}
		if c.Payment.SecretKey == "" {
			return fmt.Errorf("OMISE_SECRET_KEY is required when payments are enabled")
		}
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		log.Printf("Invalid decimal value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
