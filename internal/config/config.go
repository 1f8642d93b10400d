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
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Tenant resolution
	ShopRootDomain string
	StoreHeader    string
	DefaultStore   string

	// PIX payload defaults
	PixMerchantCity string
	PixTxIDPrefix   string
	PixQRSize       int

	// Checkout
	ReservationTTL time.Duration
	IdempotencyTTL time.Duration

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int

	// Logging
	LogFormat string
	LogLevel  string

	// Observability
	MetricsNamespace string
	TraceEndpoint    string
	TraceExporter    string
	TraceSampling    float64
	BucketsCSV       string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		ShopRootDomain: strings.TrimSpace(k.String("SHOP_ROOT_DOMAIN")),
		StoreHeader:    valueOrDefault(k.String("STORE_HEADER"), "X-Store"),
		DefaultStore:   strings.TrimSpace(k.String("DEFAULT_STORE")),

		PixMerchantCity: valueOrDefault(k.String("PIX_MERCHANT_CITY"), "SAO PAULO"),
		PixTxIDPrefix:   valueOrDefault(k.String("PIX_TXID_PREFIX"), "LJ"),
		PixQRSize:       intOrDefault(k.String("PIX_QR_SIZE"), 256),

		ReservationTTL: parseDuration(k.String("RESERVATION_TTL"), "30m"),
		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		RateLimitRPS:   intOrDefault(k.String("RATE_LIMIT_RPS"), 20),
		RateLimitBurst: intOrDefault(k.String("RATE_LIMIT_BURST"), 40),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "lojinha"),
		TraceEndpoint:    strings.TrimSpace(k.String("OBS_TRACE_ENDPOINT")),
		TraceExporter:    valueOrDefault(k.String("OBS_TRACE_EXPORTER"), "otlp"),
		TraceSampling:    floatOrDefault(k.String("OBS_TRACE_SAMPLING"), 1),
		BucketsCSV:       strings.TrimSpace(k.String("OBS_HTTP_BUCKETS_MS")),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
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

func intOrDefault(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var out int
	if _, err := fmt.Sscanf(trimmed, "%d", &out); err != nil || out <= 0 {
		return fallback
	}
	return out
}

func floatOrDefault(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var out float64
	if _, err := fmt.Sscanf(trimmed, "%g", &out); err != nil || out <= 0 {
		return fallback
	}
	return out
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
