package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	AppPort   string
	LogLevel  string
	LogFormat string

	Store   StoreConfig
	Kafka   KafkaConfig
	Gemini  GeminiConfig
	Account AccountConfig
	Loan    LoanConfig
}

type StoreConfig struct {
	Driver        string
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	DatabaseURL   string
	PGDriver      string // "postgres" (lib/pq) or "pgx"
}

type KafkaConfig struct {
	Brokers []string // empty disables publishing
	Topic   string
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

type AccountConfig struct {
	DisplayName    string
	SeedBalance    decimal.Decimal
	WelcomeBonus   decimal.Decimal
	CreditLimit    decimal.Decimal
	BiometricDelay time.Duration
}

type LoanConfig struct {
	Min        decimal.Decimal
	Step       decimal.Decimal
	AnnualRate decimal.Decimal
	TermMonths int
}

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	p := parser{errs: &errs}

	cfg := &Config{
		AppPort:   getEnv("APP_PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		Store: StoreConfig{
			Driver:        strings.ToLower(getEnv("STORE_DRIVER", DriverFile)),
			DataDir:       getEnv("DATA_DIR", "./data"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       p.intVar("REDIS_DB", 0),
			RedisPrefix:   getEnv("REDIS_PREFIX", "goldpayments"),
			DatabaseURL:   os.Getenv("DATABASE_URL"),
			PGDriver:      strings.ToLower(getEnv("PG_DRIVER", "postgres")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "transaction_recorded"),
		},
		Gemini: GeminiConfig{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			Model:       getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
			Temperature: p.floatVar("ASSISTANT_TEMPERATURE", 0.3),
			Timeout:     p.durationVar("ASSISTANT_TIMEOUT", 20*time.Second),
		},
		Account: AccountConfig{
			DisplayName:    getEnv("DISPLAY_NAME", "A. Stark"),
			SeedBalance:    p.decimalVar("SEED_BALANCE", "0"),
			WelcomeBonus:   p.decimalVar("WELCOME_BONUS", "1000.00"),
			CreditLimit:    p.decimalVar("CREDIT_LIMIT", "50000.00"),
			BiometricDelay: p.durationVar("BIOMETRIC_DELAY", 2*time.Second),
		},
		Loan: LoanConfig{
			Min:        p.decimalVar("LOAN_MIN", "500"),
			Step:       p.decimalVar("LOAN_STEP", "500"),
			AnnualRate: p.decimalVar("LOAN_ANNUAL_RATE", "0.25"),
			TermMonths: p.intVar("LOAN_TERM_MONTHS", 12),
		},
	}

	switch cfg.Store.Driver {
	case DriverFile, DriverRedis, DriverMemory:
	case DriverPostgres:
		if cfg.Store.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when STORE_DRIVER=postgres")
		}
		if cfg.Store.PGDriver != "postgres" && cfg.Store.PGDriver != "pgx" {
			errs = append(errs, fmt.Sprintf("PG_DRIVER: unknown driver %q", cfg.Store.PGDriver))
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER: unknown driver %q", cfg.Store.Driver))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
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

// parser collects every malformed variable so Load can report them together.
type parser struct {
	errs *[]string
}

func (p parser) fail(key, v string, err error) {
	*p.errs = append(*p.errs, fmt.Sprintf("%s=%q: %v", key, v, err))
}

func (p parser) intVar(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p parser) floatVar(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return float32(f)
}

func (p parser) durationVar(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

func (p parser) decimalVar(key, fallback string) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return decimal.RequireFromString(fallback)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.fail(key, v, err)
		return decimal.RequireFromString(fallback)
	}
	return d
}
