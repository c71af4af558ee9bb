package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 2, cfg.Enrichment.Concurrency)
	assert.Equal(t, 2, cfg.Enrichment.MaxRetries)
	assert.Equal(t, 10, cfg.Enrichment.DefaultBatchSize)
	assert.Equal(t, 100, cfg.Enrichment.MaxBatchSize)
	assert.Equal(t, 50, cfg.Worker.GeneralPoolSize)

	// A signing key is auto-generated when none is configured.
	assert.GreaterOrEqual(t, len(cfg.Auth.SigningKey), 32)
}

func TestDatabaseDSN(t *testing.T) {
	// Explicit URL wins.
	cfg := DatabaseConfig{URL: "postgres://u:p@db:5432/curatehub"}
	assert.Equal(t, "postgres://u:p@db:5432/curatehub", cfg.DSN())

	// Otherwise constructed from fields.
	cfg = DatabaseConfig{Host: "localhost", Port: 5432, User: "curatehub", Password: "secret", Database: "curatehub"}
	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=curatehub")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Auth:       AuthConfig{SigningKey: "0123456789abcdef0123456789abcdef"},
		Enrichment: EnrichmentConfig{Concurrency: 2, MaxBatchSize: 100},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty signing key", func(c *Config) { c.Auth.SigningKey = "" }},
		{"short signing key", func(c *Config) { c.Auth.SigningKey = "short" }},
		{"zero concurrency", func(c *Config) { c.Enrichment.Concurrency = 0 }},
		{"zero max batch", func(c *Config) { c.Enrichment.MaxBatchSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
