// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database     DatabaseConfig     `json:"database"`
	Server       ServerConfig       `json:"server"`
	Logging      LoggingConfig      `json:"logging"`
	Metrics      MetricsConfig      `json:"metrics"`
	Cache        CacheConfig        `json:"cache"`
	Archive      ArchiveConfig      `json:"archive"`
	Outreach     OutreachConfig     `json:"outreach"`
	Sequencer    SequencerConfig    `json:"sequencer"`
	LeadProvider LeadProviderConfig `json:"lead_provider"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	BodyLimit         int           `json:"body_limit"`
	AllowedOrigins    []string      `json:"allowed_origins"`
	TrustedProxies    []string      `json:"trusted_proxies"`
	ProxyHeader       string        `json:"proxy_header"`
	EnableCompression bool          `json:"enable_compression"`
}

type LoggingConfig struct {
	Level        string `json:"level"`  // debug, info, warn, error
	Format       string `json:"format"` // json, text
	Output       string `json:"output"` // stdout, file, both
	FilePath     string `json:"file_path"`
	MaxSize      int    `json:"max_size"` // MB
	MaxBackups   int    `json:"max_backups"`
	MaxAge       int    `json:"max_age"` // days
	Compress     bool   `json:"compress"`
	EnableCaller bool   `json:"enable_caller"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled"`
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	DefaultTTL  time.Duration `json:"default_ttl"`
}

// ArchiveConfig controls the Postgres mirror of audit entries and delivery outcomes
type ArchiveConfig struct {
	Enabled     bool `json:"enabled"`
	Buffer      int  `json:"buffer"`
	AutoMigrate bool `json:"auto_migrate"`
}

type OutreachConfig struct {
	ProcessInterval    time.Duration `json:"process_interval"`
	SuccessProbability float64       `json:"success_probability"`
	ErrorMessage       string        `json:"error_message"`
	RandomSeed         uint64        `json:"random_seed"` // 0 seeds from the clock
	AuditCapacity      int           `json:"audit_capacity"`
}

type SequencerConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"` // cron spec
}

type LeadProviderConfig struct {
	Provider       string        `json:"provider"` // mock, http
	Endpoint       string        `json:"endpoint"`
	APIKey         string        `json:"api_key"`
	Timeout        time.Duration `json:"timeout"`
	LeadsPerSearch int           `json:"leads_per_search"`
	CacheTTL       time.Duration `json:"cache_ttl"`
}

// LoadProductionConfig loads configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "outreach"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
			AllowedOrigins:    getEnvStringSlice("SERVER_ALLOWED_ORIGINS", []string{"*"}),
			TrustedProxies:    getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:       getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
		},
		Logging: LoggingConfig{
			Level:        getEnvString("LOG_LEVEL", "info"),
			Format:       getEnvString("LOG_FORMAT", "json"),
			Output:       getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:     getEnvString("LOG_FILE_PATH", "logs/app.log"),
			MaxSize:      getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:   getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAge:       getEnvInt("LOG_MAX_AGE", 30),
			Compress:     getEnvBool("LOG_COMPRESS", true),
			EnableCaller: getEnvBool("LOG_ENABLE_CALLER", false),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", false),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "outreach:"),
			DefaultTTL:  getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Archive: ArchiveConfig{
			Enabled:     getEnvBool("ARCHIVE_ENABLED", false),
			Buffer:      getEnvInt("ARCHIVE_BUFFER", 256),
			AutoMigrate: getEnvBool("ARCHIVE_AUTO_MIGRATE", true),
		},
		Outreach: OutreachConfig{
			ProcessInterval:    getEnvDuration("OUTREACH_PROCESS_INTERVAL", 2*time.Second),
			SuccessProbability: getEnvFloat("OUTREACH_SUCCESS_PROBABILITY", 0.85),
			ErrorMessage:       getEnvString("OUTREACH_ERROR_MESSAGE", "SMTP connection failed: Timeout while connecting to server."),
			RandomSeed:         getEnvUint64("OUTREACH_RANDOM_SEED", 0),
			AuditCapacity:      getEnvInt("AUDIT_LOG_CAPACITY", 100),
		},
		Sequencer: SequencerConfig{
			Enabled:  getEnvBool("SEQUENCER_ENABLED", false),
			Schedule: getEnvString("SEQUENCER_SCHEDULE", "@every 1m"),
		},
		LeadProvider: LeadProviderConfig{
			Provider:       getEnvString("LEAD_PROVIDER", "mock"),
			Endpoint:       getEnvString("LEAD_PROVIDER_ENDPOINT", ""),
			APIKey:         getEnvString("LEAD_PROVIDER_API_KEY", ""),
			Timeout:        getEnvDuration("LEAD_PROVIDER_TIMEOUT", 30*time.Second),
			LeadsPerSearch: getEnvInt("LEAD_PROVIDER_LEADS_PER_SEARCH", 10),
			CacheTTL:       getEnvDuration("LEAD_PROVIDER_CACHE_TTL", 6*time.Hour),
		},
	}

	if cfg.LeadProvider.CacheTTL <= 0 {
		cfg.LeadProvider.CacheTTL = cfg.Cache.DefaultTTL
	}

	return cfg, nil
}

// loadEnvFile reads key=value pairs from path without overriding variables that are already set
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the loaded configuration and reports every problem at once
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errors = append(errors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	// Validate database configuration only when the archive needs it
	if cfg.Archive.Enabled {
		if cfg.Database.Host == "" {
			errors = append(errors, "DB_HOST is required when the archive is enabled")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
		if cfg.Database.Name == "" {
			errors = append(errors, "DB_NAME is required when the archive is enabled")
		}
		if cfg.Database.User == "" {
			errors = append(errors, "DB_USER is required when the archive is enabled")
		}
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if cfg.Logging.Level == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}
	switch cfg.Logging.Output {
	case "", "stdout", "file", "both":
	default:
		errors = append(errors, "LOG_OUTPUT must be one of: stdout, file, both")
	}

	// Validate outreach configuration
	if cfg.Outreach.ProcessInterval <= 0 {
		errors = append(errors, "OUTREACH_PROCESS_INTERVAL must be positive")
	}
	if cfg.Outreach.SuccessProbability < 0 || cfg.Outreach.SuccessProbability > 1 {
		errors = append(errors, "OUTREACH_SUCCESS_PROBABILITY must be between 0 and 1")
	}
	if cfg.Outreach.AuditCapacity <= 0 {
		errors = append(errors, "AUDIT_LOG_CAPACITY must be positive")
	}

	if cfg.Sequencer.Enabled && cfg.Sequencer.Schedule == "" {
		errors = append(errors, "SEQUENCER_SCHEDULE is required when the sequencer is enabled")
	}

	switch cfg.LeadProvider.Provider {
	case "mock":
	case "http":
		if cfg.LeadProvider.Endpoint == "" {
			errors = append(errors, "LEAD_PROVIDER_ENDPOINT is required for the http lead provider")
		}
	default:
		errors = append(errors, "LEAD_PROVIDER must be one of: mock, http")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
