package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetDurationEnv returns a time.Duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetDecimalEnv returns a monetary environment variable or a default value.
func GetDecimalEnv(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

// Limits holds the business caps of the exchange core. All monetary
// values are in whole currency units.
type Limits struct {
	DailyCreditCap   decimal.Decimal
	BalanceCap       decimal.Decimal
	MaxTopUpsPerDay  int
	RefillThreshold  decimal.Decimal
	RefillTarget     decimal.Decimal
	MaxRefillsPerDay int

	MessageWindow        time.Duration
	MaxMessagesPerWindow int
	ListingWindow        time.Duration
	MaxListingsPerWindow int

	AbuseWindow         time.Duration
	RapidWindow         time.Duration
	RapidTradeThreshold int
	EnforceAbuseCheck   bool

	TransferTimeout    time.Duration
	ListingLockTTL     time.Duration
	AutoRefillInterval time.Duration
}

// DefaultLimits returns the reference limits.
func DefaultLimits() Limits {
	return Limits{
		DailyCreditCap:   decimal.NewFromInt(10000),
		BalanceCap:       decimal.NewFromInt(50000),
		MaxTopUpsPerDay:  2,
		RefillThreshold:  decimal.NewFromInt(20000),
		RefillTarget:     decimal.NewFromInt(50000),
		MaxRefillsPerDay: 3,

		MessageWindow:        10 * time.Second,
		MaxMessagesPerWindow: 3,
		ListingWindow:        24 * time.Hour,
		MaxListingsPerWindow: 3,

		AbuseWindow:         7 * 24 * time.Hour,
		RapidWindow:         24 * time.Hour,
		RapidTradeThreshold: 3,
		EnforceAbuseCheck:   true,

		TransferTimeout:    10 * time.Second,
		ListingLockTTL:     15 * time.Second,
		AutoRefillInterval: 10 * time.Minute,
	}
}

// DBConfig holds the postgres connection settings.
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// KafkaConfig holds the event publisher settings. An empty broker list
// disables kafka and events are only logged.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Config is the full service configuration.
type Config struct {
	Port        string
	StoreDriver string
	JWTSecret   string
	CORSOrigins string
	DB          DBConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Limits      Limits
}

// Load reads the configuration from the environment.
func Load() Config {
	d := DefaultLimits()

	var brokers []string
	for _, b := range strings.Split(GetEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return Config{
		Port:        GetEnv("PORT", "3000"),
		StoreDriver: GetEnv("STORE_DRIVER", "postgres"),
		JWTSecret:   GetEnv("JWT_SECRET", "brokebuy"),
		CORSOrigins: GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		DB: DBConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "brokebuy"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   GetEnv("KAFKA_TOPIC", "marketplace.notifications"),
		},
		Limits: Limits{
			DailyCreditCap:   GetDecimalEnv("WALLET_DAILY_CREDIT_CAP", d.DailyCreditCap),
			BalanceCap:       GetDecimalEnv("WALLET_BALANCE_CAP", d.BalanceCap),
			MaxTopUpsPerDay:  GetIntEnv("WALLET_MAX_TOPUPS_PER_DAY", d.MaxTopUpsPerDay),
			RefillThreshold:  GetDecimalEnv("WALLET_REFILL_THRESHOLD", d.RefillThreshold),
			RefillTarget:     GetDecimalEnv("WALLET_REFILL_TARGET", d.RefillTarget),
			MaxRefillsPerDay: GetIntEnv("WALLET_MAX_REFILLS_PER_DAY", d.MaxRefillsPerDay),

			MessageWindow:        GetDurationEnv("RATE_MESSAGE_WINDOW", d.MessageWindow),
			MaxMessagesPerWindow: GetIntEnv("RATE_MAX_MESSAGES", d.MaxMessagesPerWindow),
			ListingWindow:        GetDurationEnv("RATE_LISTING_WINDOW", d.ListingWindow),
			MaxListingsPerWindow: GetIntEnv("RATE_MAX_LISTINGS", d.MaxListingsPerWindow),

			AbuseWindow:         GetDurationEnv("ABUSE_WINDOW", d.AbuseWindow),
			RapidWindow:         GetDurationEnv("ABUSE_RAPID_WINDOW", d.RapidWindow),
			RapidTradeThreshold: GetIntEnv("ABUSE_RAPID_THRESHOLD", d.RapidTradeThreshold),
			EnforceAbuseCheck:   GetBoolEnv("ABUSE_ENFORCE", d.EnforceAbuseCheck),

			TransferTimeout:    GetDurationEnv("TRANSFER_TIMEOUT", d.TransferTimeout),
			ListingLockTTL:     GetDurationEnv("LISTING_LOCK_TTL", d.ListingLockTTL),
			AutoRefillInterval: GetDurationEnv("AUTO_REFILL_INTERVAL", d.AutoRefillInterval),
		},
	}
}
