package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	OverlayStore OverlayStoreConfig
	Redis        RedisConfig
	Feeds        FeedsConfig
	Blob         BlobConfig
	Reload       ReloadConfig
	OTEL         OTELConfig
	SourcesFile  string
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env         string
	ServiceName string
	LogLevel    string
}

// DatabaseConfig holds the facility registry connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// OverlayStoreConfig selects where operator overlays are persisted.
// Driver is "postgres" (shares the registry connection settings) or "sqlite".
type OverlayStoreConfig struct {
	Driver     string
	SQLitePath string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// FeedsConfig holds upstream HTTP feed locations
type FeedsConfig struct {
	ATCBaseURL            string
	NationalCemeteriesURL string
	StateCemeteriesURL    string
	RequestTimeout        time.Duration
}

// BlobConfig locates the CSV lists. Driver is "fs" or "s3".
type BlobConfig struct {
	Driver   string
	Root     string
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// ReloadConfig controls the periodic refresh
type ReloadConfig struct {
	Interval    time.Duration
	LockTTL     time.Duration
	SnapshotTTL time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env:         getEnv("APP_ENV", "development"),
			ServiceName: getEnv("APP_NAME", "facility-collector"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "facilities"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OverlayStore: OverlayStoreConfig{
			Driver:     getEnv("OVERLAY_STORE_DRIVER", "postgres"),
			SQLitePath: getEnv("OVERLAY_SQLITE_PATH", "overlay.db"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Feeds: FeedsConfig{
			ATCBaseURL:            getEnv("ATC_BASE_URL", "http://localhost:8090"),
			NationalCemeteriesURL: getEnv("NCA_NATIONAL_URL", "http://localhost:8091/cems/cems.xml"),
			StateCemeteriesURL:    getEnv("NCA_STATE_URL", "http://localhost:8091/cems/scems.xml"),
			RequestTimeout:        getEnvAsDuration("FEED_REQUEST_TIMEOUT", 30*time.Second),
		},
		Blob: BlobConfig{
			Driver:   getEnv("BLOB_DRIVER", "fs"),
			Root:     getEnv("BLOB_ROOT", "./data"),
			Bucket:   getEnv("BLOB_BUCKET", ""),
			Prefix:   getEnv("BLOB_PREFIX", ""),
			Region:   getEnv("AWS_REGION", "us-east-1"),
			Endpoint: getEnv("BLOB_ENDPOINT", ""),
		},
		Reload: ReloadConfig{
			Interval:    getEnvAsDuration("RELOAD_INTERVAL", 24*time.Hour),
			LockTTL:     getEnvAsDuration("RELOAD_LOCK_TTL", 10*time.Minute),
			SnapshotTTL: getEnvAsDuration("SNAPSHOT_CACHE_TTL", 48*time.Hour),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "facility-collector"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		SourcesFile: getEnv("SOURCES_FILE", "config/sources.yaml"),
	}

	switch cfg.OverlayStore.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported overlay store driver %q", cfg.OverlayStore.Driver)
	}
	switch cfg.Blob.Driver {
	case "fs", "s3":
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Blob.Driver)
	}
	if cfg.Blob.Driver == "s3" && cfg.Blob.Bucket == "" {
		return nil, fmt.Errorf("BLOB_BUCKET is required when BLOB_DRIVER=s3")
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
