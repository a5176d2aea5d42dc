package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // display zone must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-super-secret-key-change-in-production"

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Store       StoreConfig
	Seed        SeedConfig
}

type ServerConfig struct {
	Port             string
	AppName          string
	CheckoutPerMin   int // storefront checkout requests per IP per minute
	AllowedOrigins   string
	ShutdownTimeoutS int
}

type DatabaseConfig struct {
	Driver       string // postgres | sqlite
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	LogLevel     string
}

type JWTConfig struct {
	Secret   string
	TTLHours int
	Issuer   string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// StoreConfig holds the business knobs of the sales engine.
type StoreConfig struct {
	TaxRatePercent    string // decimal string, e.g. "18"
	TimeZone          string
	LowStockThreshold int
}

type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:             getEnv("PORT", "3000"),
			AppName:          getEnv("APP_NAME", "Refurb Store API v1.0"),
			CheckoutPerMin:   getEnvAsInt("CHECKOUT_RATE_PER_MIN", 20),
			AllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "*"),
			ShutdownTimeoutS: getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			URL:          getEnv("DATABASE_URL", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "refurb_store"),
			SQLitePath:   getEnv("SQLITE_PATH", "refurb_store.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime:  time.Duration(getEnvAsInt("DB_MAX_LIFETIME_MINUTES", 60)) * time.Minute,
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", defaultJWTSecret),
			TTLHours: getEnvAsInt("JWT_TTL_HOURS", 24),
			Issuer:   getEnv("JWT_ISSUER", "refurb-store-api"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "refurb:"),
			TTL:      time.Duration(getEnvAsInt("REPORT_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Store: StoreConfig{
			TaxRatePercent:    getEnv("TAX_RATE_PERCENT", "18"),
			TimeZone:          getEnv("DISPLAY_TIMEZONE", "Asia/Kolkata"),
			LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 5),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", "admin123"),
		},
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Environment == "production" && c.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("JWT secret must be changed in production")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if _, err := strconv.ParseFloat(c.Store.TaxRatePercent, 64); err != nil {
		return fmt.Errorf("invalid TAX_RATE_PERCENT %q: %w", c.Store.TaxRatePercent, err)
	}
	if _, err := time.LoadLocation(c.Store.TimeZone); err != nil {
		return fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", c.Store.TimeZone, err)
	}
	return nil
}

// Location returns the display time zone, falling back to IST when tzdata is missing.
func (c StoreConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
