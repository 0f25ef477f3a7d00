package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Pricing  PricingConfig
	Notify   NotifyConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `validate:"required"`
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL           string
	Host          string `validate:"required_without=URL"`
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string `validate:"omitempty,oneof=disable require verify-ca verify-full"`
	MigrationsDir string
}

// KafkaConfig holds Kafka configuration. Empty Brokers disables Kafka.
type KafkaConfig struct {
	Brokers   []string
	Topic     string `validate:"required_with=Brokers"`
	PushTopic string `validate:"required_with=Brokers"`
	PushGroup string
}

// RedisConfig holds the optional live price mirror configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int           `validate:"gte=0"`
	TTL      time.Duration `validate:"gte=0"`
}

// PricingConfig holds acquisition and conversion settings
type PricingConfig struct {
	Metal          string        `validate:"required"`
	Currency       string        `validate:"required,len=3"`
	Premium        float64       `validate:"gt=0"`
	FetchInterval  time.Duration `validate:"gte=1s"`
	RateTTL        time.Duration `validate:"gt=0"`
	RateURL        string        `validate:"required,url"`
	SourcesFile    string
	DefaultUSDRate float64 `validate:"gt=0"`
}

// NotifyConfig selects and configures the push backend
type NotifyConfig struct {
	Backend     string `validate:"oneof=log apns kafka"`
	APNsKeyFile string `validate:"required_if=Backend apns"`
	APNsKeyID   string `validate:"required_if=Backend apns"`
	APNsTeamID  string `validate:"required_if=Backend apns"`
	APNsTopic   string `validate:"required_if=Backend apns"`
	APNsProd    bool
	Timeout     time.Duration `validate:"gt=0"`
}

// LogConfig configures the zap logger and optional file rotation
type LogConfig struct {
	Level      string `validate:"oneof=debug info warn error"`
	Console    bool
	FileName   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Load reads configuration from environment variables, after loading a .env file if present
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:           getEnv("DATABASE_URL", ""),
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "goldprice"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "db/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers:   splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:     getEnv("KAFKA_TOPIC", "gold-price-events"),
			PushTopic: getEnv("KAFKA_PUSH_TOPIC", "gold-push-requests"),
			PushGroup: getEnv("KAFKA_PUSH_GROUP", "gold-push-worker"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       cast.ToInt(getEnv("REDIS_DB", "0")),
			TTL:      getDuration("REDIS_PRICE_TTL", 30*time.Minute),
		},
		Pricing: PricingConfig{
			Metal:          getEnv("METAL", "gold"),
			Currency:       strings.ToUpper(getEnv("TARGET_CURRENCY", "INR")),
			Premium:        getFloat("INR_DIGITAL_GOLD_PREMIUM", 1.12),
			FetchInterval:  getDuration("FETCH_INTERVAL", 5*time.Minute),
			RateTTL:        getDuration("EXCHANGE_RATE_TTL", time.Hour),
			RateURL:        getEnv("EXCHANGE_RATE_URL", "https://api.exchangerate-api.com/v4/latest"),
			SourcesFile:    getEnv("SOURCES_FILE", ""),
			DefaultUSDRate: getFloat("DEFAULT_EXCHANGE_RATE", 83.0),
		},
		Notify: NotifyConfig{
			Backend:     getEnv("NOTIFY_BACKEND", "log"),
			APNsKeyFile: getEnv("APNS_KEY_FILE", ""),
			APNsKeyID:   getEnv("APNS_KEY_ID", ""),
			APNsTeamID:  getEnv("APNS_TEAM_ID", ""),
			APNsTopic:   getEnv("APNS_TOPIC", ""),
			APNsProd:    cast.ToBool(getEnv("APNS_PRODUCTION", "false")),
			Timeout:     getDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Console:    cast.ToBool(getEnv("LOG_CONSOLE", "false")),
			FileName:   getEnv("LOG_FILE", ""),
			MaxSize:    cast.ToInt(getEnv("LOG_MAX_SIZE_MB", "100")),
			MaxBackups: cast.ToInt(getEnv("LOG_MAX_BACKUPS", "5")),
			MaxAge:     cast.ToInt(getEnv("LOG_MAX_AGE_DAYS", "30")),
			Compress:   cast.ToBool(getEnv("LOG_COMPRESS", "true")),
		},
	}
}

// Validate checks the configuration before the first cycle runs
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// KafkaEnabled reports whether any brokers are configured
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := cast.ToFloat64E(getEnv(key, ""))
	if err != nil || v == 0 {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := cast.ToDurationE(raw)
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
