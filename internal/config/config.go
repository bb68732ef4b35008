package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Stripe StripeConfig

	Entitlement EntitlementConfig

	DocumentDir string

	Redis     RedisConfig
	RateLimit RateLimitConfig

	Scheduler SchedulerConfig
}

type StripeConfig struct {
	WebhookSecret    string
	WebhookTolerance time.Duration
	APIKey           string
	APIBaseURL       string
	CustomerCacheTTL time.Duration
}

type EntitlementConfig struct {
	// CancellationPolicy is either CancellationPolicyPeriodEnd or CancellationPolicyImmediate.
	CancellationPolicy string
	IdentityLockTTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled         bool
	ForumWriteRate  float64
	ForumWriteBurst int
}

type SchedulerConfig struct {
	RunInterval time.Duration
	BatchSize   int
}

const (
	CancellationPolicyPeriodEnd = "period_end"
	CancellationPolicyImmediate = "immediate"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "talentloop"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "talentloop"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "talentloop.db"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		Stripe: StripeConfig{
			WebhookSecret:    strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			WebhookTolerance: time.Duration(getenvInt64("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,
			APIKey:           strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			APIBaseURL:       strings.TrimRight(getenv("STRIPE_API_BASE", "https://api.stripe.com"), "/"),
			CustomerCacheTTL: time.Duration(getenvInt64("STRIPE_CUSTOMER_CACHE_TTL_SECONDS", 600)) * time.Second,
		},
		Entitlement: EntitlementConfig{
			CancellationPolicy: normalizeCancellationPolicy(getenv("CANCELLATION_POLICY", CancellationPolicyPeriodEnd)),
			IdentityLockTTL:    time.Duration(getenvInt64("ENTITLEMENT_LOCK_TTL_SECONDS", 10)) * time.Second,
		},
		DocumentDir: getenv("DOCUMENT_DIR", "data"),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getenvBool("RATE_LIMIT_ENABLED", false),
			ForumWriteRate:  getenvFloat("RATE_LIMIT_FORUM_WRITE_RATE", 1),
			ForumWriteBurst: int(getenvInt64("RATE_LIMIT_FORUM_WRITE_BURST", 10)),
		},
		Scheduler: SchedulerConfig{
			RunInterval: time.Duration(getenvInt64("SCHEDULER_INTERVAL_SECONDS", 60)) * time.Second,
			BatchSize:   int(getenvInt64("SCHEDULER_BATCH_SIZE", 100)),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeCancellationPolicy(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case CancellationPolicyImmediate:
		return CancellationPolicyImmediate
	default:
		return CancellationPolicyPeriodEnd
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
