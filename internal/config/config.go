package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StorageSQL      StorageDriver = "sql"
	StorageRedis    StorageDriver = "redis"
	StorageDisabled StorageDriver = "none" // server-side render: every storage call is a no-op
)

type Config struct {
	HTTPAddr   string
	APIBaseURL string

	DBDriver string
	DBDSN    string

	StorageDriver    StorageDriver
	StoragePrefix    string
	SecurePassphrase string
	SessionTTL       time.Duration // temporary area TTL (redis only)

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthHMACSecret   string
	TokenTTL         time.Duration
	EnableLocalLogin bool

	DebounceWindow   time.Duration
	QueueBatchSize   int
	ProgressCacheTTL time.Duration
	IntentMaxAge     time.Duration
	SubmitTimeout    time.Duration
	HTTPTimeout      time.Duration

	LogLevel string
	LogDev   bool

	CORSOrigins []string
}

// FromEnv loads .env (if present) and reads the environment.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:   envOr("HTTP_ADDR", ":8080"),
		APIBaseURL: envOr("API_BASE_URL", "http://localhost:8080"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		StorageDriver:    StorageDriver(envOr("STORAGE_DRIVER", string(StorageSQL))),
		StoragePrefix:    envOr("STORAGE_PREFIX", "learn"),
		SecurePassphrase: envOr("STORAGE_SECURE_PASSPHRASE", "mindengage-learn-client-storage"),
		SessionTTL:       envDuration("STORAGE_SESSION_TTL", 24*time.Hour),

		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		AuthHMACSecret:   envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		TokenTTL:         envDuration("AUTH_TOKEN_TTL", 8*time.Hour),
		EnableLocalLogin: envBool("ENABLE_LOCAL_LOGIN", true),

		DebounceWindow:   envDuration("SESSION_DEBOUNCE", 100*time.Millisecond),
		QueueBatchSize:   envInt("STORAGE_QUEUE_BATCH", 5),
		ProgressCacheTTL: envDuration("PROGRESS_CACHE_TTL", 60*time.Second),
		IntentMaxAge:     envDuration("INTENT_MAX_AGE", 30*time.Minute),
		SubmitTimeout:    envDuration("QUIZ_SUBMIT_TIMEOUT", 30*time.Second),
		HTTPTimeout:      envDuration("API_HTTP_TIMEOUT", 15*time.Second),

		LogLevel: envOr("LOG_LEVEL", "info"),
		LogDev:   envBool("LOG_DEV", false),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
