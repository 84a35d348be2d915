package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service
type Config struct {
	Port     int
	LogLevel string
	Env      string
	DB       DBConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Platform PlatformConfig
	Mailer   MailerConfig
}

// DBConfig holds the database configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// KafkaConfig holds the Kafka broker and topic configuration
type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	PayoutsTopic  string
	ConsumerGroup string
}

// RedisConfig holds the Redis connection configuration
type RedisConfig struct {
	Addr string
}

// AuthConfig holds token verification settings; issuance happens upstream
type AuthConfig struct {
	JWTSecret string
}

// PlatformConfig centralizes the marketplace business settings that were
// previously scattered as literals: payout minimum, fee percentage, currency.
type PlatformConfig struct {
	MinPayoutAmount float64
	PlatformFeePct  float64
	WalletCurrency  string
}

// MailerConfig holds the mail gateway settings for the notification dispatcher
type MailerConfig struct {
	BaseURL string
	Enabled bool
}

// Load reads the configuration from the environment, with a .env file as fallback
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))

	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))

	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	minPayout, err := strconv.ParseFloat(getEnv("MIN_PAYOUT_AMOUNT", "100"), 64)

	if err != nil {
		return nil, fmt.Errorf("invalid MIN_PAYOUT_AMOUNT: %w", err)
	}

	feePct, err := strconv.ParseFloat(getEnv("PLATFORM_FEE_PCT", "5"), 64)

	if err != nil {
		return nil, fmt.Errorf("invalid PLATFORM_FEE_PCT: %w", err)
	}

	if feePct < 0 || feePct >= 100 {
		return nil, fmt.Errorf("PLATFORM_FEE_PCT must be in [0, 100): got %v", feePct)
	}

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("APP_ENV", "development"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "marketplace"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
			OrdersTopic:   getEnv("KAFKA_ORDERS_TOPIC", "marketplace.orders"),
			PayoutsTopic:  getEnv("KAFKA_PAYOUTS_TOPIC", "marketplace.payouts"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "marketplace-notifications"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		},
		Platform: PlatformConfig{
			MinPayoutAmount: minPayout,
			PlatformFeePct:  feePct,
			WalletCurrency:  getEnv("WALLET_CURRENCY", "USD"),
		},
		Mailer: MailerConfig{
			BaseURL: getEnv("MAILER_BASE_URL", "http://localhost:8025"),
			Enabled: getEnv("MAILER_ENABLED", "true") == "true",
		},
	}, nil
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
