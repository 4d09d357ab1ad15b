package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Shopify  ShopifyConfig
	Mail     MailConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Username string
	Password string
	Name     string
}

// ShopifyConfig holds Shopify Admin API credentials and session-token settings
type ShopifyConfig struct {
	APISecret   string // app client secret, signs embedded-app session tokens
	AccessToken string // Admin API access token for the shop
	APIVersion  string
}

// MailConfig holds welcome-email settings; email sending is disabled when the
// API key is empty.
type MailConfig struct {
	ResendAPIKey string
	Sender       string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int

	// Per-IP requests per minute for the public storefront endpoints.
	SubscribeRPM int
	AnalyticsRPM int

	// Days of raw analytics events to keep before pruning.
	AnalyticsRetentionDays int
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}

	// Database configuration
	var err error
	if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.Database.Username, err = requireEnv("DB_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.Database.Name, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}

	// Shopify configuration
	if cfg.Shopify.APISecret, err = requireEnv("SHOPIFY_API_SECRET"); err != nil {
		return nil, err
	}
	if cfg.Shopify.AccessToken, err = requireEnv("SHOPIFY_ACCESS_TOKEN"); err != nil {
		return nil, err
	}
	cfg.Shopify.APIVersion = getEnvWithDefault("SHOPIFY_API_VERSION", "2024-10")

	// Mail configuration (optional)
	cfg.Mail.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	cfg.Mail.Sender = getEnvWithDefault("DEFAULT_EMAIL_SENDER_ADDRESS", "discounts@popup-server.app")

	// Server configuration
	serverPort, err := requireEnv("SERVER_PORT")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}

	if cfg.Server.SubscribeRPM, err = intEnvWithDefault("SUBSCRIBE_RATE_LIMIT_RPM", 10); err != nil {
		return nil, err
	}
	if cfg.Server.AnalyticsRPM, err = intEnvWithDefault("ANALYTICS_RATE_LIMIT_RPM", 120); err != nil {
		return nil, err
	}
	if cfg.Server.AnalyticsRetentionDays, err = intEnvWithDefault("ANALYTICS_RETENTION_DAYS", 90); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.Username, c.Password, c.Host, c.Name)
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// intEnvWithDefault retrieves an integer environment variable or returns a
// default value
func intEnvWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return parsed, nil
}
