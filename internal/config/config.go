// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/auth"
	"github.com/jason-s-yu/stakes/internal/database"
	"github.com/jason-s-yu/stakes/internal/ledger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is everything the server reads from the environment.
type Config struct {
	Port         string
	StoreBackend string
	DatabaseURL  string

	RedisAddr  string
	RedisDB    int
	RedisQueue string

	TokenTTL       time.Duration
	PrivateKeyPath string
	PublicKeyPath  string

	Fees   ledger.Fees
	Admins []uuid.UUID

	PaymentWebhookSecret string

	ReaperInterval    time.Duration
	ReaperConcurrency int
	WaitingTTL        time.Duration
	AbandonedTTL      time.Duration
}

// Load reads the environment, which godotenv has already seeded from .env.
func Load() (*Config, error) {
	c := &Config{
		Port:                 getEnv("PORT", "8080"),
		StoreBackend:         getEnv("STORE_BACKEND", BackendPostgres),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisQueue:           os.Getenv("HISTORIAN_QUEUE_NAME"),
		PrivateKeyPath:       os.Getenv("JWT_PRIVATE_KEY_PATH"),
		PublicKeyPath:        os.Getenv("JWT_PUBLIC_KEY_PATH"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		Fees:                 ledger.DefaultFees(),
	}

	c.DatabaseURL = os.Getenv("DATABASE_URL")
	if c.DatabaseURL == "" {
		c.DatabaseURL = database.ConnStringFromParts(
			os.Getenv("POSTGRES_USER"),
			os.Getenv("POSTGRES_PASSWORD"),
			getEnv("PG_HOST", "localhost"),
			getEnv("PG_PORT", "5432"),
			getEnv("POSTGRES_DB", "postgres"),
		)
	}
	if c.StoreBackend != BackendPostgres && c.StoreBackend != BackendMemory {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q", BackendPostgres, BackendMemory)
	}

	var err error
	if c.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if c.ReaperConcurrency, err = getEnvInt("REAPER_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if c.TokenTTL, err = auth.ParseTokenTTL(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		return nil, err
	}
	if c.ReaperInterval, err = getEnvDuration("REAPER_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if c.WaitingTTL, err = getEnvDuration("WAITING_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if c.AbandonedTTL, err = getEnvDuration("ABANDONED_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if c.Fees.PlatformPercent, err = getEnvPercent("PLATFORM_FEE_PERCENT", c.Fees.PlatformPercent); err != nil {
		return nil, err
	}
	if c.Fees.TeamPercent, err = getEnvPercent("TEAM_FEE_PERCENT", c.Fees.TeamPercent); err != nil {
		return nil, err
	}
	if c.Admins, err = parseIDs(os.Getenv("ADMIN_USER_IDS")); err != nil {
		return nil, err
	}
	return c, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func getEnvPercent(key string, def decimal.Decimal) (decimal.Decimal, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("%s must be between 0 and 100", key)
	}
	return d, nil
}

func parseIDs(s string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_USER_IDS: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
