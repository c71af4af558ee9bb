package memory

import (
	"context"
	"sort"
	"time"

	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/repository"
)

type jobStore struct {
	db *database
}

func cloneJob(j *domain.EnrichmentJob) *domain.EnrichmentJob {
	cp := *j
	return &cp
}

func cloneItem(i *domain.EnrichmentQueueItem) *domain.EnrichmentQueueItem {
	cp := *i
	cp.Result = cloneMetadata(i.Result)
	if i.ErrorDetail != nil {
		detail := *i.ErrorDetail
		cp.ErrorDetail = &detail
	}
	return &cp
}

func (s *jobStore) AcquireScope(_ context.Context, filter domain.EnrichFilter, jobID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, held := s.db.scopeLocks[filter]; held {
		return false, nil
	}
	s.db.scopeLocks[filter] = jobID
	return true, nil
}

func (s *jobStore) ReleaseScope(_ context.Context, filter domain.EnrichFilter, jobID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.scopeLocks[filter] == jobID {
		delete(s.db.scopeLocks, filter)
	}
	return nil
}

func (s *jobStore) CreateJobWithItems(_ context.Context, job *domain.EnrichmentJob, items []domain.EnrichmentQueueItem) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.jobs[job.ID] = cloneJob(job)
	for i := range items {
		s.db.items[items[i].ID] = cloneItem(&items[i])
	}
	return nil
}

func (s *jobStore) GetJob(_ context.Context, id string) (*domain.EnrichmentJob, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	job, ok := s.db.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneJob(job), nil
}

func (s *jobStore) Snapshot(_ context.Context, id string) (*domain.JobSnapshot, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	job, ok := s.db.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	var done []*domain.EnrichmentQueueItem
	for _, item := range s.db.items {
		if item.JobID == id && item.Status.Terminal() {
			done = append(done, item)
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].Position < done[j].Position })
	ids := make([]string, 0, len(done))
	for _, item := range done {
		ids = append(ids, item.ResourceID)
	}
	return &domain.JobSnapshot{EnrichmentJob: *cloneJob(job), ProcessedResourceIDs: ids}, nil
}

func (s *jobStore) ListJobs(_ context.Context) ([]domain.EnrichmentJob, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]domain.EnrichmentJob, 0, len(s.db.jobs))
	for _, job := range s.db.jobs {
		out = append(out, *cloneJob(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *jobStore) MarkJobProcessing(_ context.Context, id string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	job, ok := s.db.jobs[id]
	if !ok || job.Status != domain.JobQueued {
		return false, nil
	}
	job.Status = domain.JobProcessing
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *jobStore) FinalizeJob(_ context.Context, id string, status domain.JobStatus) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	job, ok := s.db.jobs[id]
	if !ok || job.Status != domain.JobProcessing {
		return false, nil
	}
	job.Status = status
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *jobStore) CancelJob(_ context.Context, id string) (int, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	job, ok := s.db.jobs[id]
	if !ok || (job.Status != domain.JobQueued && job.Status != domain.JobProcessing) {
		return 0, false, nil
	}
	now := time.Now().UTC()
	skipped := 0
	for _, item := range s.db.items {
		if item.JobID == id && item.Status == domain.ItemQueued {
			item.Status = domain.ItemSkipped
			item.UpdatedAt = now
			skipped++
		}
	}
	job.Status = domain.JobCancelled
	job.Skipped += skipped
	job.Processed += skipped
	job.UpdatedAt = now
	return skipped, true, nil
}

func (s *jobStore) ClaimNextItem(_ context.Context, jobID string) (*domain.EnrichmentQueueItem, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var next *domain.EnrichmentQueueItem
	for _, item := range s.db.items {
		if item.JobID != jobID || item.Status != domain.ItemQueued {
			continue
		}
		if next == nil || item.Position < next.Position {
			next = item
		}
	}
	if next == nil {
		return nil, nil
	}
	next.Status = domain.ItemProcessing
	next.UpdatedAt = time.Now().UTC()
	return cloneItem(next), nil
}

func (s *jobStore) HasOpenItems(_ context.Context, jobID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, item := range s.db.items {
		if item.JobID == jobID &&
			(item.Status == domain.ItemQueued || item.Status == domain.ItemProcessing) {
			return true, nil
		}
	}
	return false, nil
}

func (s *jobStore) RequeueItem(_ context.Context, itemID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	item, ok := s.db.items[itemID]
	if !ok || item.Status != domain.ItemProcessing {
		return repository.ErrNotFound
	}
	item.Status = domain.ItemQueued
	item.Attempts++
	item.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *jobStore) CompleteItem(_ context.Context, itemID string, status domain.ItemStatus, result domain.Metadata, errDetail *string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	item, ok := s.db.items[itemID]
	if !ok || item.Status != domain.ItemProcessing {
		return false, nil
	}
	item.Status = status
	if result != nil {
		item.Result = cloneMetadata(result)
	}
	if errDetail != nil {
		detail := *errDetail
		item.ErrorDetail = &detail
	}
	if status == domain.ItemFailed {
		item.Attempts++
	}
	item.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *jobStore) IncrementCounters(_ context.Context, jobID string, outcome domain.ItemStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	job, ok := s.db.jobs[jobID]
	if !ok || job.Status != domain.JobProcessing {
		return nil
	}
	job.Processed++
	switch outcome {
	case domain.ItemSucceeded:
		job.Successful++
	case domain.ItemFailed:
		job.Failed++
	case domain.ItemSkipped:
		job.Skipped++
	}
	job.UpdatedAt = time.Now().UTC()
	return nil
}
