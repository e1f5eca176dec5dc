package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBDriver    string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	SQLitePath  string
	DatabaseURL string

	// Redis
	EnableRedis bool
	RedisURL    string

	// JWT
	JWTSecret     string
	TokenLifetime time.Duration

	// Server
	Port        string
	Environment string
	LogLevel    string

	// CORS
	CORSOrigins []string

	// Upload
	UploadDir string

	// Rate Limiting
	RateLimitRequests int
	RateLimitWindow   int
	RateLimitBurst    int
	RedeemAttempts    int
	RedeemWindow      int

	// Features
	EnableMetrics bool

	// Payments
	Currency            string
	PaymentOrderTTL     time.Duration
	OrderSweepSchedule  string
	ReferenceCodeDigits int

	// Media
	YouTubeAPIKey            string
	DurationBackfillSchedule string

	// Background
	BackgroundWorkers int

	// Quiz attempts
	AttemptClockTTL time.Duration

	// Site Meta
	SiteName string
}

func New() *Config {
	c := &Config{
		// Database
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "voltage"),
		DBPassword: getEnv("DB_PASSWORD", "voltage"),
		DBName:     getEnv("DB_NAME", "voltage"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "voltage.db"),

		// Redis
		EnableRedis: getEnvAsBool("ENABLE_REDIS", true),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),
		TokenLifetime: time.Duration(getEnvAsInt("TOKEN_LIFETIME_HOURS", 72)) * time.Hour,

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),

		// CORS
		CORSOrigins: splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080")),

		// Upload
		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),

		// Rate Limiting
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 0),
		RedeemAttempts:    getEnvAsInt("REDEEM_RATE_LIMIT_ATTEMPTS", 5),
		RedeemWindow:      getEnvAsInt("REDEEM_RATE_LIMIT_WINDOW", 300),

		// Features
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),

		// Payments
		Currency:            strings.ToUpper(getEnv("CURRENCY", "EGP")),
		PaymentOrderTTL:     time.Duration(getEnvAsInt("PAYMENT_ORDER_TTL_HOURS", 0)) * time.Hour,
		OrderSweepSchedule:  getEnv("ORDER_SWEEP_SCHEDULE", "@every 30m"),
		ReferenceCodeDigits: 6,

		// Media
		YouTubeAPIKey:            getEnv("YOUTUBE_API_KEY", ""),
		DurationBackfillSchedule: getEnv("DURATION_BACKFILL_SCHEDULE", "@every 6h"),

		// Background
		BackgroundWorkers: getEnvAsInt("BACKGROUND_WORKERS", 2),

		// Quiz attempts
		AttemptClockTTL: time.Duration(getEnvAsInt("ATTEMPT_CLOCK_TTL_MINUTES", 24*60)) * time.Minute,

		// Site Meta
		SiteName: getEnv("SITE_NAME", "Voltage"),
	}

	// Build DSN
	c.DatabaseURL = fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)

	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesSQLite reports whether the embedded database driver is selected.
func (c *Config) UsesSQLite() bool {
	return c.DBDriver == "sqlite"
}
