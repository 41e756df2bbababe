package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// minSecretLength is the shortest signing secret accepted for HS256.
const minSecretLength = 32

// argon2id bounds; zero selects the hasher default.
const (
	maxArgon2Time     = 64
	maxArgon2MemoryKB = 4 * 1024 * 1024
	maxArgon2Threads  = 255
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Sentry       SentryConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds connection values for the revocation store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret                 string
	AccessTokenTTLMinutes     int
	RefreshTokenTTLMinutes    int
	RefreshedAccessTTLMinutes int
	ClockSkewSeconds          int
	Argon2Time                int
	Argon2MemoryKB            int
	Argon2Threads             int
	LoginRateLimit            int
	LoginRateWindowSeconds    int
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "bookhive"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("DATABASE_URL"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", redisAddrFromHostPort()),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REVOCATION_KEY_PREFIX", "bookhive:revoked:"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:                 os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes:     getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 120),
			RefreshTokenTTLMinutes:    getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_MINUTES", 24*60),
			RefreshedAccessTTLMinutes: getEnvAsInt("AUTH_REFRESHED_ACCESS_TTL_MINUTES", 10),
			ClockSkewSeconds:          getEnvAsInt("AUTH_CLOCK_SKEW_SECONDS", 0),
			Argon2Time:                getEnvAsInt("AUTH_ARGON2_TIME", 1),
			Argon2MemoryKB:            getEnvAsInt("AUTH_ARGON2_MEMORY_KB", 64*1024),
			Argon2Threads:             getEnvAsInt("AUTH_ARGON2_THREADS", 4),
			LoginRateLimit:            getEnvAsInt("AUTH_LOGIN_RATE_LIMIT", 10),
			LoginRateWindowSeconds:    getEnvAsInt("AUTH_LOGIN_RATE_WINDOW_SECONDS", 60),
		},
		Sentry: SentryConfig{
			DSN: os.Getenv("SENTRY_DSN"),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@bookhive.local"),
		},
	}

	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the secret requirements and the access < refresh lifetime ordering.
func (a AuthConfig) Validate() error {
	if a.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if len(a.JWTSecret) < minSecretLength {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	if a.AccessTokenTTLMinutes <= 0 || a.RefreshTokenTTLMinutes <= 0 || a.RefreshedAccessTTLMinutes <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if a.AccessTokenTTLMinutes >= a.RefreshTokenTTLMinutes {
		return fmt.Errorf("access token TTL (%dm) must be shorter than refresh token TTL (%dm)",
			a.AccessTokenTTLMinutes, a.RefreshTokenTTLMinutes)
	}
	if a.RefreshedAccessTTLMinutes >= a.RefreshTokenTTLMinutes {
		return fmt.Errorf("refreshed access token TTL (%dm) must be shorter than refresh token TTL (%dm)",
			a.RefreshedAccessTTLMinutes, a.RefreshTokenTTLMinutes)
	}
	if a.ClockSkewSeconds < 0 {
		return errors.New("AUTH_CLOCK_SKEW_SECONDS must not be negative")
	}
	if a.Argon2Time < 0 || a.Argon2Time > maxArgon2Time {
		return fmt.Errorf("AUTH_ARGON2_TIME must be between 1 and %d", maxArgon2Time)
	}
	if a.Argon2MemoryKB < 0 || a.Argon2MemoryKB > maxArgon2MemoryKB {
		return fmt.Errorf("AUTH_ARGON2_MEMORY_KB must be between 1 and %d", maxArgon2MemoryKB)
	}
	if a.Argon2Threads < 0 || a.Argon2Threads > maxArgon2Threads {
		return fmt.Errorf("AUTH_ARGON2_THREADS must be between 1 and %d", maxArgon2Threads)
	}
	return nil
}

// AccessTTL returns the login access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLMinutes) * time.Minute
}

// RefreshedAccessTTL returns the lifetime of access tokens minted from a refresh token.
func (a AuthConfig) RefreshedAccessTTL() time.Duration {
	return time.Duration(a.RefreshedAccessTTLMinutes) * time.Minute
}

// ClockSkew returns the leeway applied to expiry checks.
func (a AuthConfig) ClockSkew() time.Duration {
	return time.Duration(a.ClockSkewSeconds) * time.Second
}

// LoginRateWindow returns the login throttling window.
func (a AuthConfig) LoginRateWindow() time.Duration {
	return time.Duration(a.LoginRateWindowSeconds) * time.Second
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func redisAddrFromHostPort() string {
	return fmt.Sprintf("%s:%s", getEnv("REDIS_HOST", "127.0.0.1"), getEnv("REDIS_PORT", "6379"))
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
