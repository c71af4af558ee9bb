package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/repository"
)

// ResourceStore is the gorm-backed resource repository.
type ResourceStore struct {
	db *gorm.DB
}

// NewResourceStore creates a ResourceStore.
func NewResourceStore(db *gorm.DB) *ResourceStore {
	return &ResourceStore{db: db}
}

// Create inserts a new resource row.
func (s *ResourceStore) Create(ctx context.Context, r *domain.Resource) error {
	if r.Metadata == nil {
		r.Metadata = domain.Metadata{}
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// Get fetches one resource by id.
func (s *ResourceStore) Get(ctx context.Context, id string) (*domain.Resource, error) {
	var r domain.Resource
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resource %s: %w", id, err)
	}
	return &r, nil
}

// List returns resources matching the query, newest first.
func (s *ResourceStore) List(ctx context.Context, q repository.ResourceQuery) ([]domain.Resource, error) {
	tx := s.db.WithContext(ctx).Model(&domain.Resource{}).Order("created_at DESC")
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	var out []domain.Resource
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return out, nil
}

// Update applies field edits and bumps the optimistic-lock version.
func (s *ResourceStore) Update(ctx context.Context, id string, edit repository.ResourceEdit) (*domain.Resource, error) {
	updates := map[string]interface{}{
		"version": gorm.Expr("version + 1"),
	}
	if edit.Title != nil {
		updates["title"] = *edit.Title
	}
	if edit.Description != nil {
		updates["description"] = *edit.Description
	}
	if edit.Category != nil {
		updates["category"] = *edit.Category
	}
	if edit.Subcategory != nil {
		updates["subcategory"] = *edit.Subcategory
	}

	tx := s.db.WithContext(ctx).Model(&domain.Resource{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return nil, fmt.Errorf("update resource %s: %w", id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Transition performs the conditional status move. The WHERE clause carries
// the expected current status, so a concurrent loser sees zero affected rows.
func (s *ResourceStore) Transition(ctx context.Context, id string, from, to domain.ResourceStatus, reason *string) (bool, error) {
	updates := map[string]interface{}{
		"status":            to,
		"status_changed_at": time.Now().UTC(),
		"version":           gorm.Expr("version + 1"),
	}
	if reason != nil {
		updates["rejection_reason"] = *reason
	}

	tx := s.db.WithContext(ctx).
		Model(&domain.Resource{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if tx.Error != nil {
		return false, fmt.Errorf("transition resource %s %s→%s: %w", id, from, to, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// MergeMetadata writes the caller-merged metadata map, conditional on the
// row still being approved at the expected version.
func (s *ResourceStore) MergeMetadata(ctx context.Context, id string, version int, merged domain.Metadata) (bool, error) {
	tx := s.db.WithContext(ctx).
		Model(&domain.Resource{}).
		Where("id = ? AND status = ? AND version = ?", id, domain.StatusApproved, version).
		Updates(map[string]interface{}{
			"metadata": merged,
			"version":  gorm.Expr("version + 1"),
		})
	if tx.Error != nil {
		return false, fmt.Errorf("merge metadata for %s: %w", id, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// Delete hard-deletes the resource and cascades its tag junctions.
func (s *ResourceStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", id).Delete(&domain.ResourceTag{}).Error; err != nil {
			return fmt.Errorf("delete junctions of %s: %w", id, err)
		}
		res := tx.Delete(&domain.Resource{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete resource %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

// ListCandidates resolves an enrichment filter to eligible resource ids in
// submission order.
func (s *ResourceStore) ListCandidates(ctx context.Context, filter domain.EnrichFilter, limit int) ([]string, error) {
	tx := s.db.WithContext(ctx).
		Model(&domain.Resource{}).
		Where("status = ?", domain.StatusApproved).
		Order("created_at ASC")
	if filter == domain.FilterUnenriched {
		tx = tx.Where("metadata IS NULL OR metadata = '{}'::jsonb")
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var ids []string
	if err := tx.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list candidates (%s): %w", filter, err)
	}
	return ids, nil
}

// CountByStatus returns resource counts grouped by status.
func (s *ResourceStore) CountByStatus(ctx context.Context) (map[domain.ResourceStatus]int64, error) {
	type row struct {
		Status domain.ResourceStatus
		N      int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).
		Model(&domain.Resource{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count resources by status: %w", err)
	}
	out := make(map[domain.ResourceStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
