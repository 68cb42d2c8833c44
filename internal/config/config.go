package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-promo/internal/money"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	CurrencyCode       string

	// Delivery pricing: orders strictly above the threshold ship free,
	// anything at or below it pays the flat fee. Minor units.
	DeliveryFreeThreshold money.Amount
	DeliveryFlatFee       money.Amount

	CatalogCacheTTL time.Duration
	ComboCacheTTL   time.Duration
	CartTTL         time.Duration
	IdempotencyTTL  time.Duration

	RateLimitWindow time.Duration
	RateLimitMax    int

	LogFormat string
	LogLevel  string

	MetricsBucketsCSV    string
	TracingEndpoint      string
	TracingExporter      string
	TracingSamplingRatio float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	threshold, err := parseAmount(k.String("DELIVERY_FREE_THRESHOLD"), "999.00")
	if err != nil {
		return nil, fmt.Errorf("DELIVERY_FREE_THRESHOLD: %w", err)
	}
	fee, err := parseAmount(k.String("DELIVERY_FLAT_FEE"), "60.00")
	if err != nil {
		return nil, fmt.Errorf("DELIVERY_FLAT_FEE: %w", err)
	}

	cfg := &Config{
		AppEnv:                valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                  valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:           k.String("DATABASE_URL"),
		RedisURL:              k.String("REDIS_URL"),
		CORSAllowedOrigins:    splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:          valueOrDefault(k.String("CURRENCY_CODE"), "BDT"),
		DeliveryFreeThreshold: threshold,
		DeliveryFlatFee:       fee,
		CatalogCacheTTL:       parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		ComboCacheTTL:         parseDuration(k.String("COMBO_CACHE_TTL"), "2m"),
		CartTTL:               parseDuration(k.String("CART_TTL"), "168h"),
		IdempotencyTTL:        parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitWindow:       parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:          intOrDefault(k, "RATE_LIMIT_MAX", 120),
		LogFormat:             valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:              valueOrDefault(k.String("LOG_LEVEL"), "info"),
		MetricsBucketsCSV:     k.String("METRICS_BUCKETS_MS"),
		TracingEndpoint:       k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracingExporter:       valueOrDefault(k.String("TRACING_EXPORTER"), "otlp"),
		TracingSamplingRatio:  floatOrDefault(k, "TRACING_SAMPLING_RATIO", 1),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.DeliveryFlatFee < 0 || cfg.DeliveryFreeThreshold < 0 {
		return nil, errors.New("delivery amounts must not be negative")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func parseAmount(value, fallback string) (money.Amount, error) {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	return money.ParseDecimal(base)
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func intOrDefault(k *koanf.Koanf, key string, fallback int) int {
	if strings.TrimSpace(k.String(key)) == "" {
		return fallback
	}
	if v := k.Int(key); v > 0 {
		return v
	}
	return fallback
}

func floatOrDefault(k *koanf.Koanf, key string, fallback float64) float64 {
	if strings.TrimSpace(k.String(key)) == "" {
		return fallback
	}
	if v := k.Float64(key); v > 0 {
		return v
	}
	return fallback
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
