package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
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
	RedisURL           string
	SessionSecret      string
	CORSAllowedOrigins []string

	LogFormat string
	LogLevel  string

	MetricsNamespace   string
	MetricsBucketsMS   string
	TracingExporter    string
	TracingEndpoint    string
	TracingSampleRatio float64

	BackendBaseURL string
	BackendTimeout time.Duration

	GeocoderBaseURL      string
	GeocoderCountryCodes string
	GeocoderLimit        int
	GeocoderDebounce     time.Duration
	GeocoderMinQuery     int
	GeocoderRatePerMin   int

	TaxRate       float64
	FallbackPrice float64
	CurrencyCode  string

	SessionTTL     time.Duration
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
	CSRFEnabled    bool

	CatalogCacheTTL time.Duration
	CartIdleTTL     time.Duration
	AuthRateLimit   string

	QueueConcurrency int

	BreakerFailureThreshold int
	BreakerHalfOpenAfter    time.Duration
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
		RedisURL:           k.String("REDIS_URL"),
		SessionSecret:      k.String("SESSION_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		MetricsNamespace:   valueOrDefault(k.String("METRICS_NAMESPACE"), "storefront"),
		MetricsBucketsMS:   k.String("METRICS_BUCKETS_MS"),
		TracingExporter:    valueOrDefault(k.String("OTEL_TRACES_EXPORTER"), "none"),
		TracingEndpoint:    strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		TracingSampleRatio: parseFloat(k.String("OTEL_TRACES_SAMPLER_RATIO"), 0.1),

		BackendBaseURL: strings.TrimRight(valueOrDefault(k.String("BACKEND_BASE_URL"), "http://localhost:8000"), "/"),
		BackendTimeout: parseDuration(k.String("BACKEND_TIMEOUT"), "5s"),

		GeocoderBaseURL:      strings.TrimRight(valueOrDefault(k.String("GEOCODER_BASE_URL"), "https://nominatim.openstreetmap.org"), "/"),
		GeocoderCountryCodes: valueOrDefault(k.String("GEOCODER_COUNTRY_CODES"), "ar"),
		GeocoderLimit:        parseInt(k.String("GEOCODER_LIMIT"), 5),
		GeocoderDebounce:     parseDuration(k.String("GEOCODER_DEBOUNCE"), "400ms"),
		GeocoderMinQuery:     parseInt(k.String("GEOCODER_MIN_QUERY"), 3),
		GeocoderRatePerMin:   parseInt(k.String("GEOCODER_RATE_PER_MIN"), 60),

		TaxRate:       parseFloat(k.String("PRICING_TAX_RATE"), 0.21),
		FallbackPrice: parseFloat(k.String("PRICING_FALLBACK_PRICE"), 12000),
		CurrencyCode:  valueOrDefault(k.String("CURRENCY_CODE"), "ARS"),

		SessionTTL:     parseDuration(k.String("SESSION_TTL"), "168h"),
		CookieDomain:   strings.TrimSpace(k.String("SESSION_COOKIE_DOMAIN")),
		CookieSecure:   parseBool(k.String("SESSION_COOKIE_SECURE")),
		CookieSameSite: parseSameSite(k.String("SESSION_COOKIE_SAMESITE")),
		CSRFEnabled:    parseBool(valueOrDefault(k.String("CSRF_ENABLED"), "true")),

		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CartIdleTTL:     parseDuration(k.String("CART_IDLE_TTL"), "24h"),
		AuthRateLimit:   valueOrDefault(k.String("AUTH_RATE_LIMIT"), "10-M"),

		QueueConcurrency: parseInt(k.String("QUEUE_CONCURRENCY"), 5),

		BreakerFailureThreshold: parseInt(k.String("BREAKER_FAILURE_THRESHOLD"), 5),
		BreakerHalfOpenAfter:    parseDuration(k.String("BREAKER_HALF_OPEN_AFTER"), "30s"),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}
	if cfg.TaxRate < 0 {
		return nil, fmt.Errorf("PRICING_TAX_RATE must not be negative, got %v", cfg.TaxRate)
	}
	if cfg.FallbackPrice <= 0 {
		return nil, fmt.Errorf("PRICING_FALLBACK_PRICE must be positive, got %v", cfg.FallbackPrice)
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

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
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

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
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
