package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	DBDriver   string
	DBDSN      string
	ResetDB    bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SessionTTL      time.Duration

	// GuardVerifyTimeout bounds a single profile fetch during page verification.
	GuardVerifyTimeout time.Duration
	PagesFile          string

	OriginLookupURL     string
	OriginLookupTimeout time.Duration

	AuditBuffer        int
	AuditBatch         int
	AuditFlushInterval time.Duration

	FirebaseCredentials string

	LogLevel    string
	LogFormat   string
	SwaggerHost string
}

// Load builds Config from environment with sensible defaults. A .env file in the
// working directory is read first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBDSN:      getEnv("DATABASE_DSN", getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/educonnect?charset=utf8mb4&parseTime=True&loc=Local")),
		ResetDB:    getEnvBool("RESET_DB", false),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:       getEnv("JWT_SECRET", "change-me"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SessionTTL:      getEnvDuration("SESSION_TTL", 12*time.Hour),

		GuardVerifyTimeout: getEnvDuration("GUARD_VERIFY_TIMEOUT", 5*time.Second),
		PagesFile:          os.Getenv("PAGES_FILE"),

		OriginLookupURL:     getEnv("ORIGIN_LOOKUP_URL", "https://api.ipify.org?format=json"),
		OriginLookupTimeout: getEnvDuration("ORIGIN_LOOKUP_TIMEOUT", 3*time.Second),

		AuditBuffer:        getEnvInt("AUDIT_BUFFER", 256),
		AuditBatch:         getEnvInt("AUDIT_BATCH", 10),
		AuditFlushInterval: getEnvDuration("AUDIT_FLUSH_INTERVAL", time.Second),

		FirebaseCredentials: os.Getenv("FIREBASE_CREDENTIALS"),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("90s") or, under KEY_SECONDS, whole seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}
