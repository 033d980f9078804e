package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Stream      StreamConfig
	Delivery    DeliveryConfig
	Batch       BatchConfig
	Vendor      VendorConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
	Metrics     MetricsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// StreamConfig describes the order event log consumed via Redis Streams.
type StreamConfig struct {
	Key        string
	Group      string
	Consumer   string
	ReadCount  int
	BlockTime  time.Duration
	RetryDelay time.Duration
}

// DeliveryConfig controls the delivery queue processor poller.
type DeliveryConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	MaxAttempts     int
	ProcessingLease time.Duration
}

// BatchConfig controls the batch update aggregator poller.
type BatchConfig struct {
	PollInterval time.Duration
	ClaimLimit   int
	Capacity     int
}

// VendorConfig tunes the simulated message vendor.
type VendorConfig struct {
	SuccessRate      float64
	MinLatency       time.Duration
	MaxLatency       time.Duration
	CallbackURL      string
	CallbackMinDelay time.Duration
	CallbackMaxDelay time.Duration
	CallbackEnabled  bool
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// MetricsConfig configures the standalone scrape endpoint for worker
// processes that carry no API server.
type MetricsConfig struct {
	Address string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "crm-backend"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "crm_db"),
			User:            getString("DB_USER", "crm_user"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Stream: StreamConfig{
			Key:        getString("ORDER_STREAM_KEY", "order_stream"),
			Group:      getString("ORDER_STREAM_GROUP", "order_consumer_group"),
			Consumer:   getString("ORDER_STREAM_CONSUMER", "consumer-1"),
			ReadCount:  getInt("ORDER_STREAM_READ_COUNT", 1),
			BlockTime:  getDuration("ORDER_STREAM_BLOCK_TIME", 5*time.Second),
			RetryDelay: getDuration("ORDER_STREAM_RETRY_DELAY", time.Second),
		},
		Delivery: DeliveryConfig{
			PollInterval:    getDuration("DELIVERY_POLL_INTERVAL", 5*time.Second),
			BatchSize:       getInt("DELIVERY_BATCH_SIZE", 50),
			MaxAttempts:     getInt("DELIVERY_MAX_ATTEMPTS", 3),
			ProcessingLease: getDuration("DELIVERY_PROCESSING_LEASE", 5*time.Minute),
		},
		Batch: BatchConfig{
			PollInterval: getDuration("BATCH_POLL_INTERVAL", 10*time.Second),
			ClaimLimit:   getInt("BATCH_CLAIM_LIMIT", 5),
			Capacity:     getInt("BATCH_CAPACITY", 100),
		},
		Vendor: VendorConfig{
			SuccessRate:      getFloat("VENDOR_SUCCESS_RATE", 0.9),
			MinLatency:       getDuration("VENDOR_MIN_LATENCY", 100*time.Millisecond),
			MaxLatency:       getDuration("VENDOR_MAX_LATENCY", 300*time.Millisecond),
			CallbackURL:      getString("VENDOR_CALLBACK_URL", "http://localhost:8080/api/v1/delivery-receipt"),
			CallbackMinDelay: getDuration("VENDOR_CALLBACK_MIN_DELAY", 500*time.Millisecond),
			CallbackMaxDelay: getDuration("VENDOR_CALLBACK_MAX_DELAY", 1500*time.Millisecond),
			CallbackEnabled:  getBool("VENDOR_CALLBACK_ENABLED", true),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
		Metrics: MetricsConfig{
			Address: getString("METRICS_ADDRESS", ":9091"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Address joins the configured HTTP host and port.
func (c *Config) Address() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
