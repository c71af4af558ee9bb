// Package postgres implements the repository interfaces on gorm.
package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"curatehub.io/curatehub/internal/config"
	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/repository"
)

// Open connects to PostgreSQL and optionally migrates the schema.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates all catalog tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Resource{},
		&domain.Tag{},
		&domain.ResourceTag{},
		&domain.EnrichmentJob{},
		&domain.EnrichmentQueueItem{},
		&domain.EnrichmentScopeLock{},
		&domain.AuditLogEntry{},
		&domain.Bookmark{},
		&domain.Favorite{},
		&domain.Preference{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// NewStores wires all gorm-backed stores over one connection.
func NewStores(db *gorm.DB) *repository.Stores {
	return &repository.Stores{
		Resources: NewResourceStore(db),
		Tags:      NewTagStore(db),
		Jobs:      NewJobStore(db),
		Audit:     NewAuditStore(db),
		Users:     NewUserStore(db),
		UserData:  NewUserDataStore(db),
	}
}
