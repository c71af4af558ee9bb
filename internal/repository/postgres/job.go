package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/repository"
)

// JobStore is the gorm-backed enrichment job repository.
type JobStore struct {
	db *gorm.DB
}

// NewJobStore creates a JobStore.
func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

// AcquireScope claims the per-filter lock row. The primary key on filter
// makes this a plain insert race across processes.
func (s *JobStore) AcquireScope(ctx context.Context, filter domain.EnrichFilter, jobID string) (bool, error) {
	lock := domain.EnrichmentScopeLock{
		Filter:    filter,
		JobID:     jobID,
		CreatedAt: time.Now().UTC(),
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&lock)
	if res.Error != nil {
		return false, fmt.Errorf("acquire scope %s: %w", filter, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ReleaseScope drops the lock if jobID still holds it.
func (s *JobStore) ReleaseScope(ctx context.Context, filter domain.EnrichFilter, jobID string) error {
	if err := s.db.WithContext(ctx).
		Where("filter = ? AND job_id = ?", filter, jobID).
		Delete(&domain.EnrichmentScopeLock{}).Error; err != nil {
		return fmt.Errorf("release scope %s: %w", filter, err)
	}
	return nil
}

// CreateJobWithItems inserts the job row and its queue items in one
// transaction.
func (s *JobStore) CreateJobWithItems(ctx context.Context, job *domain.EnrichmentJob, items []domain.EnrichmentQueueItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("create job: %w", err)
		}
		if len(items) > 0 {
			if err := tx.CreateInBatches(items, 100).Error; err != nil {
				return fmt.Errorf("create queue items: %w", err)
			}
		}
		return nil
	})
}

// GetJob fetches the bare job row.
func (s *JobStore) GetJob(ctx context.Context, id string) (*domain.EnrichmentJob, error) {
	var job domain.EnrichmentJob
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

// Snapshot returns the job with its processed resource ids in queue order.
func (s *JobStore) Snapshot(ctx context.Context, id string) (*domain.JobSnapshot, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&domain.EnrichmentQueueItem{}).
		Where("job_id = ? AND status IN ?", id, []domain.ItemStatus{
			domain.ItemSucceeded, domain.ItemFailed, domain.ItemSkipped,
		}).
		Order("position ASC").
		Pluck("resource_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("snapshot items of %s: %w", id, err)
	}

	return &domain.JobSnapshot{EnrichmentJob: *job, ProcessedResourceIDs: ids}, nil
}

// ListJobs returns job history, newest first.
func (s *JobStore) ListJobs(ctx context.Context) ([]domain.EnrichmentJob, error) {
	var jobs []domain.EnrichmentJob
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// MarkJobProcessing moves queued → processing.
func (s *JobStore) MarkJobProcessing(ctx context.Context, id string) (bool, error) {
	tx := s.db.WithContext(ctx).
		Model(&domain.EnrichmentJob{}).
		Where("id = ? AND status = ?", id, domain.JobQueued).
		Updates(map[string]interface{}{
			"status":     domain.JobProcessing,
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return false, fmt.Errorf("mark job %s processing: %w", id, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// FinalizeJob moves processing → terminal exactly once.
func (s *JobStore) FinalizeJob(ctx context.Context, id string, status domain.JobStatus) (bool, error) {
	if !status.Terminal() {
		return false, fmt.Errorf("finalize job %s: %s is not terminal", id, status)
	}
	tx := s.db.WithContext(ctx).
		Model(&domain.EnrichmentJob{}).
		Where("id = ? AND status = ?", id, domain.JobProcessing).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return false, fmt.Errorf("finalize job %s: %w", id, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// CancelJob skips remaining queued items and cancels the job in one
// transaction. Already-processing items are left to finish so partial
// metadata writes are not lost.
func (s *JobStore) CancelJob(ctx context.Context, id string) (int, bool, error) {
	var skipped int64
	ok := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		res := tx.Model(&domain.EnrichmentQueueItem{}).
			Where("job_id = ? AND status = ?", id, domain.ItemQueued).
			Updates(map[string]interface{}{
				"status":     domain.ItemSkipped,
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("skip queued items of %s: %w", id, res.Error)
		}
		skipped = res.RowsAffected

		res = tx.Model(&domain.EnrichmentJob{}).
			Where("id = ? AND status IN ?", id, []domain.JobStatus{domain.JobQueued, domain.JobProcessing}).
			Updates(map[string]interface{}{
				"status":     domain.JobCancelled,
				"skipped":    gorm.Expr("skipped + ?", skipped),
				"processed":  gorm.Expr("processed + ?", skipped),
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("cancel job %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			// Already terminal: roll back the item skips.
			return repository.ErrNotFound
		}
		ok = true
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int(skipped), ok, nil
}

// ClaimNextItem claims the oldest queued item of the job. SKIP LOCKED keeps
// concurrent claimers from serializing on the same row.
func (s *JobStore) ClaimNextItem(ctx context.Context, jobID string) (*domain.EnrichmentQueueItem, error) {
	var item domain.EnrichmentQueueItem
	res := s.db.WithContext(ctx).Raw(`
		UPDATE enrichment_queue_items SET status = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM enrichment_queue_items
			WHERE job_id = ? AND status = ?
			ORDER BY position ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		domain.ItemProcessing, time.Now().UTC(), jobID, domain.ItemQueued,
	).Scan(&item)
	if res.Error != nil {
		return nil, fmt.Errorf("claim item for job %s: %w", jobID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &item, nil
}

// HasOpenItems reports whether any queued or processing item remains.
func (s *JobStore) HasOpenItems(ctx context.Context, jobID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&domain.EnrichmentQueueItem{}).
		Where("job_id = ? AND status IN ?", jobID, []domain.ItemStatus{
			domain.ItemQueued, domain.ItemProcessing,
		}).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count open items of %s: %w", jobID, err)
	}
	return n > 0, nil
}

// RequeueItem returns a processing item to queued and bumps its attempts.
func (s *JobStore) RequeueItem(ctx context.Context, itemID string) error {
	tx := s.db.WithContext(ctx).
		Model(&domain.EnrichmentQueueItem{}).
		Where("id = ? AND status = ?", itemID, domain.ItemProcessing).
		Updates(map[string]interface{}{
			"status":     domain.ItemQueued,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return fmt.Errorf("requeue item %s: %w", itemID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CompleteItem moves a processing item to a terminal status.
func (s *JobStore) CompleteItem(ctx context.Context, itemID string, status domain.ItemStatus, result domain.Metadata, errDetail *string) (bool, error) {
	if !status.Terminal() {
		return false, fmt.Errorf("complete item %s: %s is not terminal", itemID, status)
	}
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if result != nil {
		updates["result"] = result
	}
	if errDetail != nil {
		updates["error_detail"] = *errDetail
	}
	if status == domain.ItemFailed {
		updates["attempts"] = gorm.Expr("attempts + 1")
	}
	tx := s.db.WithContext(ctx).
		Model(&domain.EnrichmentQueueItem{}).
		Where("id = ? AND status = ?", itemID, domain.ItemProcessing).
		Updates(updates)
	if tx.Error != nil {
		return false, fmt.Errorf("complete item %s: %w", itemID, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// IncrementCounters adds one processed plus one outcome counter to the job.
// Guarded on the job still processing so late increments after a terminal
// transition are no-ops.
func (s *JobStore) IncrementCounters(ctx context.Context, jobID string, outcome domain.ItemStatus) error {
	var column string
	switch outcome {
	case domain.ItemSucceeded:
		column = "successful"
	case domain.ItemFailed:
		column = "failed"
	case domain.ItemSkipped:
		column = "skipped"
	default:
		return fmt.Errorf("increment counters of %s: %s is not an outcome", jobID, outcome)
	}

	tx := s.db.WithContext(ctx).
		Model(&domain.EnrichmentJob{}).
		Where("id = ? AND status = ?", jobID, domain.JobProcessing).
		Updates(map[string]interface{}{
			"processed":  gorm.Expr("processed + 1"),
			column:       gorm.Expr(column + " + 1"),
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return fmt.Errorf("increment counters of %s: %w", jobID, tx.Error)
	}
	return nil
}
