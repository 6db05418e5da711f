package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Price archive
	Archive ArchiveConfig

	// Results store
	Results ResultsConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Fundamentals provider
	Fundamentals FundamentalsConfig

	// Strategy rule set (YAML)
	StrategyPath string

	// Scheduler
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// ArchiveConfig holds price archive location and format
type ArchiveConfig struct {
	Format          string // shards, dbn, postgres
	Dir             string
	Benchmark       string
	VolatilityIndex string
	Workers         int
	Timezone        string
}

// Location returns the market time zone, UTC when it cannot be resolved
func (a ArchiveConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResultsConfig holds results store settings
type ResultsConfig struct {
	Backend    string // csv, sqlite, postgres
	Dir        string
	SQLitePath string
}

// FundamentalsConfig holds the fundamentals lookup settings
type FundamentalsConfig struct {
	BaseURL      string
	CacheBackend string // file, redis
	CachePath    string
	Attempts     int
	Backoff      time.Duration
	Timeout      time.Duration
	RateLimit    float64 // requests per second, 0 = unlimited
	Offline      bool    // 캐시 미스 시 외부 조회 금지
}

// ScheduleConfig holds the daily screener schedule
type ScheduleConfig struct {
	DailyCron        string
	FundamentalsCron string // "off" 이면 등록 안 함
	LookbackDays     int
	MaxRetries       int
	RetryDelay       time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Archive: ArchiveConfig{
			Format:          getEnv("ARCHIVE_FORMAT", "shards"),
			Dir:             getEnv("ARCHIVE_DIR", "data/price_history"),
			Benchmark:       getEnv("ARCHIVE_BENCHMARK", "SPY"),
			VolatilityIndex: getEnv("ARCHIVE_VOLATILITY_INDEX", "^VIX"),
			Workers:         getEnvAsInt("ARCHIVE_WORKERS", 8),
			Timezone:        getEnv("MARKET_TIMEZONE", "America/New_York"),
		},

		Results: ResultsConfig{
			Backend:    getEnv("RESULTS_BACKEND", "csv"),
			Dir:        getEnv("RESULTS_DIR", "output"),
			SQLitePath: getEnv("RESULTS_SQLITE_PATH", "output/results.db"),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Fundamentals: FundamentalsConfig{
			BaseURL:      getEnv("FUNDAMENTALS_BASE_URL", "https://finviz.com/quote.ashx"),
			CacheBackend: getEnv("FUNDAMENTALS_CACHE_BACKEND", "file"),
			CachePath:    getEnv("FUNDAMENTALS_CACHE_PATH", "data/ticker_info.json"),
			Attempts:     getEnvAsInt("FUNDAMENTALS_ATTEMPTS", 2),
			Backoff:      getEnvAsDuration("FUNDAMENTALS_BACKOFF", "2s"),
			Timeout:      getEnvAsDuration("FUNDAMENTALS_TIMEOUT", "10s"),
			RateLimit:    getEnvAsFloat("FUNDAMENTALS_RATE_LIMIT", 2),
			Offline:      getEnvAsBool("FUNDAMENTALS_OFFLINE", false),
		},

		StrategyPath: getEnv("STRATEGY_PATH", ""),

		Schedule: ScheduleConfig{
			DailyCron:        getEnv("SCHEDULE_DAILY_CRON", "0 30 17 * * 1-5"),
			FundamentalsCron: getEnv("SCHEDULE_FUNDAMENTALS_CRON", "0 0 6 * * 6"),
			LookbackDays:     getEnvAsInt("SCHEDULE_LOOKBACK_DAYS", 60),
			MaxRetries:       getEnvAsInt("SCHEDULE_MAX_RETRIES", 3),
			RetryDelay:       getEnvAsDuration("SCHEDULE_RETRY_DELAY", "1m"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Archive.Format {
	case "shards", "dbn", "postgres":
	default:
		return fmt.Errorf("ARCHIVE_FORMAT must be one of: shards, dbn, postgres")
	}

	switch c.Results.Backend {
	case "csv", "sqlite", "postgres":
	default:
		return fmt.Errorf("RESULTS_BACKEND must be one of: csv, sqlite, postgres")
	}

	switch c.Fundamentals.CacheBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("FUNDAMENTALS_CACHE_BACKEND must be one of: file, redis")
	}

	// Postgres backed components need DATABASE_URL
	if (c.Archive.Format == "postgres" || c.Results.Backend == "postgres") && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required for postgres archive or results")
	}

	if c.Fundamentals.CacheBackend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("REDIS_ENABLED must be true for redis fundamentals cache")
	}

	if c.Archive.Benchmark == "" {
		return fmt.Errorf("ARCHIVE_BENCHMARK is required")
	}

	if c.Archive.Workers < 1 {
		return fmt.Errorf("ARCHIVE_WORKERS must be at least 1")
	}

	if c.Fundamentals.Attempts < 1 {
		return fmt.Errorf("FUNDAMENTALS_ATTEMPTS must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
