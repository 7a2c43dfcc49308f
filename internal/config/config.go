// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/lottolab/internal/cache"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for all databases (always absolute)
	EngineConfigPath string // Optional YAML file with engine tuning
	LogLevel         string
	CleanupSchedule  string // Cron expression for the cache cleanup job
	WALCheckSchedule string // Cron expression for the WAL checkpoint job
	Port             int
	LogPretty        bool
	RateLimit        RateLimitConfig
	Cache            CacheConfig
	Reports          ReportsConfig
}

// CacheConfig selects and configures the correlation cache backend
type CacheConfig struct {
	Backend       string // memory, sqlite, redis, badger
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
	BadgerPath    string // Defaults to <DataDir>/badger
	RedisDB       int
	TTL           time.Duration
}

// ReportsConfig configures S3 archiving of analysis reports. Archiving is off when Bucket is empty.
type ReportsConfig struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string // Custom endpoint for S3-compatible stores (MinIO)

	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether reports should be archived
func (r ReportsConfig) Enabled() bool {
	return r.Bucket != ""
}

// RateLimitConfig bounds request rates on the heavy computation endpoints
type RateLimitConfig struct {
	PerSecond float64 // 0 disables limiting
	Burst     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("LOTTOLAB_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		EngineConfigPath: getEnv("LOTTOLAB_ENGINE_CONFIG", ""),
		Port:             getEnvAsInt("LOTTOLAB_PORT", 8080),
		LogLevel:         getEnv("LOTTOLAB_LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("LOTTOLAB_LOG_PRETTY", false),
		CleanupSchedule:  getEnv("LOTTOLAB_CACHE_CLEANUP_SCHEDULE", "0 */30 * * * *"), // Every 30 minutes
		WALCheckSchedule: getEnv("LOTTOLAB_WAL_CHECK_SCHEDULE", "0 0 * * * *"),        // Hourly
		Cache: CacheConfig{
			Backend:       strings.ToLower(getEnv("LOTTOLAB_CACHE_BACKEND", cache.BackendSQLite)),
			TTL:           getEnvAsDuration("LOTTOLAB_CACHE_TTL", cache.TTLCorrelation),
			RedisAddr:     getEnv("LOTTOLAB_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("LOTTOLAB_REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("LOTTOLAB_REDIS_DB", 0),
			RedisPrefix:   getEnv("LOTTOLAB_REDIS_PREFIX", "lottolab:"),
			BadgerPath:    getEnv("LOTTOLAB_BADGER_PATH", filepath.Join(absDataDir, "badger")),
		},
		Reports: ReportsConfig{
			Bucket:   getEnv("LOTTOLAB_REPORTS_BUCKET", ""),
			Region:   getEnv("LOTTOLAB_REPORTS_REGION", "us-east-1"),
			Prefix:   getEnv("LOTTOLAB_REPORTS_PREFIX", "reports/"),
			Endpoint: getEnv("LOTTOLAB_REPORTS_ENDPOINT", ""),

			AccessKeyID:     getEnv("LOTTOLAB_REPORTS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("LOTTOLAB_REPORTS_SECRET_ACCESS_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			PerSecond: getEnvAsFloat("LOTTOLAB_RATE_LIMIT", 5),
			Burst:     getEnvAsInt("LOTTOLAB_RATE_BURST", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch c.Cache.Backend {
	case cache.BackendMemory, cache.BackendSQLite, cache.BackendRedis, cache.BackendBadger:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.Cache.TTL)
	}

	// Six-field expressions, matching the scheduler
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.CleanupSchedule); err != nil {
		return fmt.Errorf("invalid cache cleanup schedule %q: %w", c.CleanupSchedule, err)
	}
	if _, err := parser.Parse(c.WALCheckSchedule); err != nil {
		return fmt.Errorf("invalid WAL check schedule %q: %w", c.WALCheckSchedule, err)
	}

	if c.RateLimit.PerSecond < 0 || (c.RateLimit.PerSecond > 0 && c.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid rate limit %.2f/s burst %d", c.RateLimit.PerSecond, c.RateLimit.Burst)
	}

	return nil
}

// DrawsDBPath is the SQLite file holding the draw history
func (c *Config) DrawsDBPath() string {
	return filepath.Join(c.DataDir, "draws.db")
}

// CacheDBPath is the SQLite file used by the sqlite cache backend
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Helper functions
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
