// Package enrichment runs AI classification batches over the catalog.
//
// A job is created atomically with one queue item per candidate resource and
// then runs detached from the originating request: cancelling the HTTP call
// does not cancel the batch, graceful shutdown does. At most one job per
// filter scope is active at a time, enforced by a lock row so the guarantee
// holds across server processes.
package enrichment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/classifier"
	"curatehub.io/curatehub/internal/config"
	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/governance/audit"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
	"curatehub.io/curatehub/internal/pkg/logger"
	"curatehub.io/curatehub/internal/pkg/worker"
	"curatehub.io/curatehub/internal/repository"
	"curatehub.io/curatehub/internal/tags"
)

// Engine owns the enrichment job lifecycle: start, observe, cancel, and the
// background batch runner.
type Engine struct {
	gate       *access.Gate
	resources  repository.ResourceStore
	jobs       repository.JobStore
	reconciler *tags.Reconciler
	audit      *audit.Logger
	pools      *worker.Pools
	classify   classifier.Classifier
	cfg        config.EnrichmentConfig
}

// NewEngine wires the enrichment engine.
func NewEngine(
	gate *access.Gate,
	stores *repository.Stores,
	reconciler *tags.Reconciler,
	auditLogger *audit.Logger,
	pools *worker.Pools,
	cls classifier.Classifier,
	cfg config.EnrichmentConfig,
) *Engine {
	return &Engine{
		gate:       gate,
		resources:  stores.Resources,
		jobs:       stores.Jobs,
		reconciler: reconciler,
		audit:      auditLogger,
		pools:      pools,
		classify:   cls,
		cfg:        cfg,
	}
}

// StartRequest is the payload for starting a batch.
type StartRequest struct {
	Filter    domain.EnrichFilter
	BatchSize int
}

// StartJob validates the request, snapshots the candidate set, claims the
// scope lock and hands the batch to the enrichment pool. It returns the
// queued job; progress is observed through GetJob.
func (e *Engine) StartJob(ctx context.Context, req StartRequest, actor access.Principal) (*domain.EnrichmentJob, error) {
	if err := e.gate.RequireModerator(actor); err != nil {
		return nil, err
	}
	if !domain.ValidEnrichFilter(req.Filter) {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "unknown enrichment filter")
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = e.cfg.DefaultBatchSize
	}
	if batchSize > e.cfg.MaxBatchSize {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "batch size exceeds the maximum")
	}

	jobID := uuid.NewString()

	// Scope first: losing the duplicate-job race must not create any rows.
	acquired, err := e.jobs.AcquireScope(ctx, req.Filter, jobID)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "scope acquisition failed", 500)
	}
	if !acquired {
		return nil, apperrors.ErrJobAlreadyRunning(string(req.Filter))
	}

	candidates, err := e.resources.ListCandidates(ctx, req.Filter, batchSize)
	if err != nil {
		e.releaseScope(ctx, req.Filter, jobID)
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "candidate listing failed", 500)
	}
	if len(candidates) == 0 {
		e.releaseScope(ctx, req.Filter, jobID)
		return nil, apperrors.ErrEmptyCandidateSet(string(req.Filter))
	}

	now := time.Now().UTC()
	job := &domain.EnrichmentJob{
		ID:        jobID,
		Filter:    req.Filter,
		BatchSize: batchSize,
		Status:    domain.JobQueued,
		Total:     len(candidates),
		StartedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	items := make([]domain.EnrichmentQueueItem, 0, len(candidates))
	for i, resourceID := range candidates {
		items = append(items, domain.EnrichmentQueueItem{
			ID:         uuid.NewString(),
			JobID:      jobID,
			ResourceID: resourceID,
			Position:   i,
			Status:     domain.ItemQueued,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if err := e.jobs.CreateJobWithItems(ctx, job, items); err != nil {
		e.releaseScope(ctx, req.Filter, jobID)
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "job creation failed", 500)
	}

	if err := e.pools.SubmitDetached("enrichment", func(runCtx context.Context) {
		e.run(runCtx, jobID)
	}); err != nil {
		// The job exists but will never run; finalize it so the scope frees.
		if _, finErr := e.jobs.FinalizeJob(ctx, jobID, domain.JobFailed); finErr != nil {
			logger.Error("Failed to finalize unstartable job", zap.String("job_id", jobID), zap.Error(finErr))
		}
		e.releaseScope(ctx, req.Filter, jobID)
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "job submission failed", 500)
	}

	if err := e.audit.LogAction(ctx, domain.AuditJobStarted, nil, actor.ID, domain.Metadata{
		"job_id": jobID,
		"filter": string(req.Filter),
	}); err != nil {
		logger.Warn("audit write failed after job start", zap.String("job_id", jobID), zap.Error(err))
	}

	logger.Info("Enrichment job queued",
		zap.String("job_id", jobID),
		zap.String("filter", string(req.Filter)),
		zap.Int("total", len(candidates)),
	)
	return job, nil
}

// GetJob returns the job snapshot: counters plus the ids of resources whose
// items already reached a terminal state, in queue order.
func (e *Engine) GetJob(ctx context.Context, id string, actor access.Principal) (*domain.JobSnapshot, error) {
	if err := e.gate.RequireModerator(actor); err != nil {
		return nil, err
	}
	snap, err := e.jobs.Snapshot(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound(apperrors.CodeJobNotFound, "enrichment job not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "job lookup failed", 500)
	}
	return snap, nil
}

// ListJobs returns all jobs, newest first.
func (e *Engine) ListJobs(ctx context.Context, actor access.Principal) ([]domain.EnrichmentJob, error) {
	if err := e.gate.RequireModerator(actor); err != nil {
		return nil, err
	}
	out, err := e.jobs.ListJobs(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "job listing failed", 500)
	}
	return out, nil
}

// CancelJob cancels a queued or processing job. Still-queued items are marked
// skipped and folded into the counters in the same transaction, so the
// counter identity processed == successful + failed + skipped holds through
// cancellation. Items already in flight run to completion; their late counter
// updates are no-ops against the terminal job.
func (e *Engine) CancelJob(ctx context.Context, id string, actor access.Principal) (*domain.EnrichmentJob, error) {
	if err := e.gate.RequireModerator(actor); err != nil {
		return nil, err
	}
	job, err := e.jobs.GetJob(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound(apperrors.CodeJobNotFound, "enrichment job not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "job lookup failed", 500)
	}

	skipped, ok, err := e.jobs.CancelJob(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "job cancellation failed", 500)
	}
	if !ok {
		return nil, apperrors.Conflict(apperrors.CodeJobNotCancellable, "job already reached a terminal state")
	}
	e.releaseScope(ctx, job.Filter, id)

	if err := e.audit.LogAction(ctx, domain.AuditJobCancelled, nil, actor.ID, domain.Metadata{
		"job_id": id,
	}); err != nil {
		logger.Warn("audit write failed after job cancel", zap.String("job_id", id), zap.Error(err))
	}

	logger.Info("Enrichment job cancelled",
		zap.String("job_id", id),
		zap.Int("items_skipped", skipped),
	)

	cancelled, err := e.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "job lookup failed", 500)
	}
	return cancelled, nil
}

// PoolMetrics reports worker pool occupancy for the admin dashboard.
func (e *Engine) PoolMetrics(actor access.Principal) (map[string]interface{}, error) {
	if err := e.gate.RequireModerator(actor); err != nil {
		return nil, err
	}
	return e.pools.Metrics(), nil
}

func (e *Engine) releaseScope(ctx context.Context, filter domain.EnrichFilter, jobID string) {
	if err := e.jobs.ReleaseScope(ctx, filter, jobID); err != nil {
		logger.Error("Failed to release enrichment scope",
			zap.String("filter", string(filter)),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}
