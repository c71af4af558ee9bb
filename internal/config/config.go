// Package config provides configuration management for CurateHub.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_URL, SERVER_PORT)
// 3. Default values
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Password, c.Database, c.Port, sslmode,
	)
}

// AuthConfig contains bearer-token settings.
type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	ExpiresIn  time.Duration `mapstructure:"expires_in"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// EnrichmentConfig contains classifier batch settings.
type EnrichmentConfig struct {
	// Endpoint is an OpenAI-compatible chat-completions URL.
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`

	// Concurrency bounds classifier calls in flight per job.
	Concurrency int `mapstructure:"concurrency"`
	// MaxRetries is the per-item retry ceiling after the first attempt.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBackoff is the base backoff, doubled per attempt.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// RequestTimeout bounds a single classifier call.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// DefaultBatchSize caps a job when the request does not specify one.
	DefaultBatchSize int `mapstructure:"default_batch_size"`
	// MaxBatchSize is the hard cap for a single job.
	MaxBatchSize int `mapstructure:"max_batch_size"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize    int `mapstructure:"general_pool_size"`
	EnrichmentPoolSize int `mapstructure:"enrichment_pool_size"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file and environment variables.
// Standard environment variables without prefix (DATABASE_URL, SERVER_PORT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/curatehub")

	// Maps nested config: enrichment.max_retries → ENRICHMENT_MAX_RETRIES.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key must not be empty")
	}
	if len(c.Auth.SigningKey) < 32 {
		return fmt.Errorf("auth.signing_key must be at least 32 characters")
	}
	if c.Enrichment.Concurrency < 1 {
		return fmt.Errorf("enrichment.concurrency must be at least 1")
	}
	if c.Enrichment.MaxBatchSize < 1 {
		return fmt.Errorf("enrichment.max_batch_size must be at least 1")
	}
	return nil
}

// ensureSecrets auto-generates missing secrets on first boot.
func (c *Config) ensureSecrets() error {
	if c.Auth.SigningKey == "" {
		secret, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate signing key: %w", err)
		}
		c.Auth.SigningKey = secret
		logBootstrapWarn(
			"auto-generated auth signing key; set AUTH_SIGNING_KEY env var for persistence",
			zap.Int("length", len(secret)),
		)
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "curatehub")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "curatehub")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.auto_migrate", true)

	// Auth
	v.SetDefault("auth.issuer", "curatehub")
	v.SetDefault("auth.expires_in", "12h")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Enrichment
	v.SetDefault("enrichment.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("enrichment.model", "gpt-4o-mini")
	v.SetDefault("enrichment.concurrency", 2)
	v.SetDefault("enrichment.max_retries", 2)
	v.SetDefault("enrichment.retry_backoff", "2s")
	v.SetDefault("enrichment.request_timeout", "30s")
	v.SetDefault("enrichment.default_batch_size", 10)
	v.SetDefault("enrichment.max_batch_size", 100)

	// Worker pools
	v.SetDefault("worker.general_pool_size", 50)
	v.SetDefault("worker.enrichment_pool_size", 20)
}
