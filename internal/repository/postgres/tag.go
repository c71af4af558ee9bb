package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"curatehub.io/curatehub/internal/domain"
)

// TagStore is the gorm-backed tag repository.
type TagStore struct {
	db *gorm.DB
}

// NewTagStore creates a TagStore.
func NewTagStore(db *gorm.DB) *TagStore {
	return &TagStore{db: db}
}

// GetOrCreate returns the canonical tag row for a normalized name.
// Insert-on-conflict-do-nothing plus re-read: the unique constraint is the
// concurrency guard, so two racing creators converge on one row.
func (s *TagStore) GetOrCreate(ctx context.Context, name string) (*domain.Tag, error) {
	candidate := domain.Tag{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&candidate)
	if res.Error != nil {
		return nil, fmt.Errorf("insert tag %q: %w", name, res.Error)
	}
	if res.RowsAffected > 0 {
		return &candidate, nil
	}

	// Lost the insert race (or the tag predates us): re-read the winner.
	var existing domain.Tag
	if err := s.db.WithContext(ctx).First(&existing, "name = ?", name).Error; err != nil {
		return nil, fmt.Errorf("re-read tag %q: %w", name, err)
	}
	return &existing, nil
}

// UpsertJunction inserts the (resource, tag) pair; duplicates are no-ops.
func (s *TagStore) UpsertJunction(ctx context.Context, resourceID, tagID string) error {
	junction := domain.ResourceTag{
		ResourceID: resourceID,
		TagID:      tagID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&junction).Error; err != nil {
		return fmt.Errorf("upsert junction (%s,%s): %w", resourceID, tagID, err)
	}
	return nil
}

// ListForResource returns the resource's tags ordered by name.
func (s *TagStore) ListForResource(ctx context.Context, resourceID string) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := s.db.WithContext(ctx).
		Joins("JOIN resource_tags ON resource_tags.tag_id = tags.id").
		Where("resource_tags.resource_id = ?", resourceID).
		Order("tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("list tags for %s: %w", resourceID, err)
	}
	return tags, nil
}

// CountTags returns the number of canonical tag rows.
func (s *TagStore) CountTags(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.Tag{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	return n, nil
}

// CountJunctions returns the number of junction rows.
func (s *TagStore) CountJunctions(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.ResourceTag{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count junctions: %w", err)
	}
	return n, nil
}
