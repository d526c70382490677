package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Gateway  GatewayConfig
	Fare     FareConfig
	Poller   PollerConfig
	Checkout CheckoutConfig
	Kafka    KafkaConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BackendConfig holds the ride platform API client configuration.
type BackendConfig struct {
	BaseURL string
	Token   string
	UserID  string
	Timeout time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// GatewayConfig holds payment gateway configuration.
type GatewayConfig struct {
	Provider  string
	StripeKey string
	KeyID     string
	Currency  string
}

// FareConfig holds fare pricing and estimator configuration.
type FareConfig struct {
	BaseFare    float64
	MinimumFare float64
	BookingFee  float64
	QuietWindow time.Duration
}

// PollerConfig holds booking status sync configuration.
type PollerConfig struct {
	Interval time.Duration
}

// CheckoutConfig holds checkout orchestration configuration.
type CheckoutConfig struct {
	VerifyTimeout time.Duration
	LockTTL       time.Duration
}

// KafkaConfig holds checkout event publishing configuration.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:9000/api"),
			Token:   getEnv("BACKEND_TOKEN", ""),
			UserID:  getEnv("BACKEND_USER_ID", ""),
			Timeout: getDurationEnv("BACKEND_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "carpool-checkout"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Gateway: GatewayConfig{
			Provider:  getEnv("GATEWAY_PROVIDER", "hosted"),
			StripeKey: getEnv("STRIPE_API_KEY", ""),
			KeyID:     getEnv("GATEWAY_KEY_ID", ""),
			Currency:  getEnv("GATEWAY_CURRENCY", "INR"),
		},
		Fare: FareConfig{
			BaseFare:    getFloatEnv("FARE_BASE", 40.0),
			MinimumFare: getFloatEnv("FARE_MINIMUM", 50.0),
			BookingFee:  getFloatEnv("FARE_BOOKING_FEE", 20.0),
			QuietWindow: getDurationEnv("FARE_QUIET_WINDOW", 800*time.Millisecond),
		},
		Poller: PollerConfig{
			Interval: getDurationEnv("POLL_INTERVAL", 15*time.Second),
		},
		Checkout: CheckoutConfig{
			VerifyTimeout: getDurationEnv("CHECKOUT_VERIFY_TIMEOUT", 10*time.Second),
			LockTTL:       getDurationEnv("CHECKOUT_LOCK_TTL", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: getSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_CHECKOUT_TOPIC", "checkout-events"),
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
