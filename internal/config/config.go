package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported image storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:5174",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:5174",
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	ServerURL          string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
	SecurityHeaders    bool
	JSONBodyLimit      int64

	DBDriver      string
	DatabaseURL   string
	SQLitePath    string
	DBAutoMigrate bool

	// RedisURL is optional. Without it caching, idempotency keys and the
	// translation queue are disabled and carts live in process memory.
	RedisURL string

	CatalogCacheTTL time.Duration
	CartTTL         time.Duration
	IdempotencyTTL  time.Duration
	LockTTL         time.Duration

	StorageBackend   string
	UploadDir        string
	UploadMaxBytes   int64
	ImageMaxWidth    int
	ImageJPEGQuality int
	S3Endpoint       string
	S3Region         string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	S3PublicBaseURL  string

	AIAPIKey              string
	AIBaseURL             string
	AIChatModel           string
	AISearchModel         string
	AIVisionModel         string
	AIImageModel          string
	AIImageSize           string
	AITimeout             time.Duration
	AIMaxAttempts         int
	AIRetryBase           time.Duration
	AIBreakerMinRequests  int
	AIBreakerFailureRatio float64
	AIBreakerOpenFor      time.Duration

	RateLimitBackend string
	RateLimitAIMax   int
	RateLimitWindow  time.Duration

	QueuePrefix            string
	QueueConcurrency       int
	QueueVisibilityTimeout time.Duration
	QueueMaxAttempts       int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	port := valueOrDefault(k.String("PORT"), "3000")
	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               port,
		ServerURL:          strings.TrimRight(valueOrDefault(k.String("SERVER_URL"), "http://localhost:"+strings.TrimPrefix(port, ":")), "/"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		ShutdownTimeout:    parseDuration(k.String("HTTP_SHUTDOWN_TIMEOUT"), "10s"),
		SecurityHeaders:    parseBoolDefault(k.String("SECURITY_HEADERS"), true),
		JSONBodyLimit:      parseInt64(k.String("JSON_BODY_LIMIT"), 1<<20),

		DBDriver:      strings.ToLower(valueOrDefault(k.String("DB_DRIVER"), DriverSQLite)),
		DatabaseURL:   k.String("DATABASE_URL"),
		SQLitePath:    valueOrDefault(k.String("SQLITE_PATH"), "data/products.sqlite"),
		DBAutoMigrate: parseBoolDefault(k.String("DB_AUTO_MIGRATE"), true),

		RedisURL: strings.TrimSpace(k.String("REDIS_URL")),

		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		CartTTL:         parseDuration(k.String("CART_TTL"), "168h"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		LockTTL:         parseDuration(k.String("LOCK_TTL"), "10m"),

		StorageBackend:   strings.ToLower(valueOrDefault(k.String("STORAGE_BACKEND"), StorageLocal)),
		UploadDir:        valueOrDefault(k.String("UPLOAD_DIR"), "uploads"),
		UploadMaxBytes:   parseInt64(k.String("UPLOAD_MAX_BYTES"), 5<<20),
		ImageMaxWidth:    parseInt(k.String("IMAGE_MAX_WIDTH"), 1280),
		ImageJPEGQuality: parseInt(k.String("IMAGE_JPEG_QUALITY"), 70),
		S3Endpoint:       k.String("S3_ENDPOINT"),
		S3Region:         valueOrDefault(k.String("S3_REGION"), "auto"),
		S3Bucket:         k.String("S3_BUCKET"),
		S3AccessKey:      k.String("S3_ACCESS_KEY"),
		S3SecretKey:      k.String("S3_SECRET_KEY"),
		S3PublicBaseURL:  strings.TrimRight(k.String("S3_PUBLIC_BASE_URL"), "/"),

		AIAPIKey:              strings.TrimSpace(k.String("AI_API_KEY")),
		AIBaseURL:             k.String("AI_BASE_URL"),
		AIChatModel:           valueOrDefault(k.String("AI_CHAT_MODEL"), "gpt-4o-mini"),
		AISearchModel:         valueOrDefault(k.String("AI_SEARCH_MODEL"), "gpt-4o-mini"),
		AIVisionModel:         valueOrDefault(k.String("AI_VISION_MODEL"), "gpt-4o"),
		AIImageModel:          valueOrDefault(k.String("AI_IMAGE_MODEL"), "dall-e-3"),
		AIImageSize:           valueOrDefault(k.String("AI_IMAGE_SIZE"), "1024x1024"),
		AITimeout:             parseDuration(k.String("AI_TIMEOUT"), "60s"),
		AIMaxAttempts:         parseInt(k.String("AI_MAX_ATTEMPTS"), 2),
		AIRetryBase:           parseDuration(k.String("AI_RETRY_BASE"), "300ms"),
		AIBreakerMinRequests:  parseInt(k.String("AI_BREAKER_MIN_REQUESTS"), 5),
		AIBreakerFailureRatio: parseFloat(k.String("AI_BREAKER_FAILURE_RATIO"), 0.5),
		AIBreakerOpenFor:      parseDuration(k.String("AI_BREAKER_OPEN_FOR"), "30s"),

		RateLimitBackend: strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_BACKEND"), "sliding")),
		RateLimitAIMax:   parseInt(k.String("RATE_LIMIT_AI_MAX"), 30),
		RateLimitWindow:  parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),

		QueuePrefix:            valueOrDefault(k.String("QUEUE_PREFIX"), "aipos"),
		QueueConcurrency:       parseInt(k.String("QUEUE_CONCURRENCY"), 1),
		QueueVisibilityTimeout: parseDuration(k.String("QUEUE_VISIBILITY_TIMEOUT"), "5m"),
		QueueMaxAttempts:       parseInt(k.String("QUEUE_MAX_ATTEMPTS"), 3),
	}

	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = append([]string(nil), defaultCORSOrigins...)
	}

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	switch cfg.StorageBackend {
	case StorageLocal:
	case StorageS3:
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("S3_BUCKET is required")
		}
		if cfg.S3PublicBaseURL == "" {
			return nil, errors.New("S3_PUBLIC_BASE_URL is required")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	switch cfg.RateLimitBackend {
	case "sliding", "fixed":
	default:
		return nil, fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
	}

	if cfg.ImageJPEGQuality < 1 || cfg.ImageJPEGQuality > 100 {
		return nil, errors.New("IMAGE_JPEG_QUALITY must be between 1 and 100")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "3000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// UploadsURL is the public base URL of locally stored images.
func (c *Config) UploadsURL() string {
	return c.ServerURL + "/uploads"
}

// AIEnabled reports whether an LLM API key is configured.
func (c *Config) AIEnabled() bool {
	return c.AIAPIKey != ""
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
		return strings.TrimSpace(value)
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

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseInt64(value string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
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
