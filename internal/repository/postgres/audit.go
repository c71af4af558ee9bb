package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"curatehub.io/curatehub/internal/domain"
)

// AuditStore is the gorm-backed append-only audit repository.
type AuditStore struct {
	db *gorm.DB
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Append inserts one audit entry. There is no update or delete path.
func (s *AuditStore) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *AuditStore) List(ctx context.Context, limit int) ([]domain.AuditLogEntry, error) {
	tx := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var entries []domain.AuditLogEntry
	if err := tx.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
