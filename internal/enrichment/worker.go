package enrichment

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"curatehub.io/curatehub/internal/classifier"
	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/pkg/logger"
	"curatehub.io/curatehub/internal/repository"
)

// metadataWriteAttempts bounds the read-merge-write loop on version races.
const metadataWriteAttempts = 3

// run executes one job on the service lifecycle context. Items are claimed
// one at a time with a conditional queued → processing update, so a claim can
// never be won twice, and classifier calls are bounded by the configured
// concurrency.
func (e *Engine) run(ctx context.Context, jobID string) {
	ok, err := e.jobs.MarkJobProcessing(ctx, jobID)
	if err != nil {
		logger.Error("Failed to mark job processing", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if !ok {
		// Cancelled before the pool picked it up.
		logger.Info("Job no longer queued, skipping run", zap.String("job_id", jobID))
		return
	}

	concurrency := e.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

claim:
	for {
		select {
		case <-ctx.Done():
			logger.Warn("Enrichment run interrupted by shutdown", zap.String("job_id", jobID))
			wg.Wait()
			return
		default:
		}

		// Hold a concurrency slot before claiming, so a cancellation never
		// strands an item claimed but not yet dispatched.
		sem <- struct{}{}

		item, err := e.jobs.ClaimNextItem(ctx, jobID)
		if err != nil {
			<-sem
			logger.Error("Failed to claim queue item", zap.String("job_id", jobID), zap.Error(err))
			break
		}
		if item == nil {
			<-sem
			// Drain in-flight items; their failures may have requeued work.
			wg.Wait()
			open, err := e.jobs.HasOpenItems(ctx, jobID)
			if err != nil {
				logger.Error("Failed to check open items", zap.String("job_id", jobID), zap.Error(err))
				break
			}
			if !open {
				break
			}
			continue claim
		}

		wg.Add(1)
		claimed := *item
		// Submitted without cancellation so the WaitGroup accounting always
		// runs; the item itself still observes shutdown through ctx.
		if err := e.pools.Enrichment.Submit(context.WithoutCancel(ctx), func(context.Context) {
			defer wg.Done()
			defer func() { <-sem }()
			e.processItem(ctx, jobID, claimed)
		}); err != nil {
			// Pool refused; run inline so the claimed item is not orphaned.
			e.processItem(ctx, jobID, claimed)
			wg.Done()
			<-sem
		}
	}
	wg.Wait()

	e.finalize(ctx, jobID)
}

// finalize computes the terminal status from the counters and applies it
// exactly once. A job counts as failed only when nothing succeeded and at
// least one item failed; cancellation has already made the job terminal, in
// which case both writes here are no-ops.
func (e *Engine) finalize(ctx context.Context, jobID string) {
	job, err := e.jobs.GetJob(ctx, jobID)
	if err != nil {
		logger.Error("Failed to load job for completion", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	status := domain.JobCompleted
	if job.Successful == 0 && job.Failed > 0 {
		status = domain.JobFailed
	}
	finalized, err := e.jobs.FinalizeJob(ctx, jobID, status)
	if err != nil {
		logger.Error("Failed to finalize job", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if !finalized {
		return
	}
	e.releaseScope(ctx, job.Filter, jobID)

	logger.Info("Enrichment job finished",
		zap.String("job_id", jobID),
		zap.String("status", string(status)),
		zap.Int("successful", job.Successful),
		zap.Int("failed", job.Failed),
		zap.Int("skipped", job.Skipped),
	)
}

// processItem runs one resource through the classifier and lands exactly one
// outcome: succeeded, failed, skipped, or a requeue (which moves no counter).
func (e *Engine) processItem(ctx context.Context, jobID string, item domain.EnrichmentQueueItem) {
	res, err := e.resources.Get(ctx, item.ResourceID)
	if errors.Is(err, repository.ErrNotFound) {
		e.skipItem(ctx, jobID, item, "resource deleted")
		return
	}
	if err != nil {
		e.failOrRequeue(ctx, jobID, item, "resource lookup failed: "+err.Error())
		return
	}
	// Re-checked at claim time: the resource may have left approved since
	// the candidate snapshot was taken.
	if res.Status != domain.StatusApproved {
		e.skipItem(ctx, jobID, item, "resource no longer approved")
		return
	}

	if item.Attempts > 0 && !e.backoff(ctx, item.Attempts) {
		// Shutdown during backoff; leave the item processing for operator
		// inspection rather than burning the attempt.
		return
	}

	result, err := e.classify.Classify(ctx, classifier.Input{
		Title:       res.Title,
		Description: res.Description,
		URL:         res.URL,
	})
	if err != nil {
		logger.Warn("Classifier call failed",
			zap.String("job_id", jobID),
			zap.String("resource_id", item.ResourceID),
			zap.Int("attempts", item.Attempts),
			zap.Error(err),
		)
		e.failOrRequeue(ctx, jobID, item, err.Error())
		return
	}

	if err := e.applyResult(ctx, item.ResourceID, result); err != nil {
		if errors.Is(err, errResourceLeftScope) {
			e.skipItem(ctx, jobID, item, "resource no longer approved")
			return
		}
		e.failOrRequeue(ctx, jobID, item, err.Error())
		return
	}

	e.completeItem(ctx, jobID, item, domain.ItemSucceeded, result.Metadata(), nil)
}

var errResourceLeftScope = errors.New("resource left the enrichment scope")

// applyResult merges the classification into resource metadata and
// reconciles tags. The metadata write is conditional on the version read, so
// a concurrent moderator edit forces a re-read instead of a lost update.
func (e *Engine) applyResult(ctx context.Context, resourceID string, result *classifier.Result) error {
	update := result.Metadata()

	for attempt := 0; attempt < metadataWriteAttempts; attempt++ {
		res, err := e.resources.Get(ctx, resourceID)
		if errors.Is(err, repository.ErrNotFound) {
			return errResourceLeftScope
		}
		if err != nil {
			return err
		}
		if res.Status != domain.StatusApproved {
			return errResourceLeftScope
		}

		merged := domain.Metadata{}
		for k, v := range res.Metadata {
			merged[k] = v
		}
		for k, v := range update {
			merged[k] = v
		}

		ok, err := e.resources.MergeMetadata(ctx, resourceID, res.Version, merged)
		if err != nil {
			return err
		}
		if ok {
			if _, err := e.reconciler.Reconcile(ctx, resourceID, result.Tags); err != nil {
				return err
			}
			return nil
		}
		// Version moved under us; re-read and merge again.
	}
	return errors.New("metadata write kept losing the version race")
}

// failOrRequeue requeues the item while retry budget remains, otherwise
// records a terminal failure. Requeues move no counters; the outcome is
// counted once, when it becomes terminal.
func (e *Engine) failOrRequeue(ctx context.Context, jobID string, item domain.EnrichmentQueueItem, detail string) {
	if item.Attempts < e.cfg.MaxRetries {
		if err := e.jobs.RequeueItem(ctx, item.ID); err != nil {
			logger.Error("Failed to requeue item",
				zap.String("job_id", jobID),
				zap.String("item_id", item.ID),
				zap.Error(err),
			)
			e.completeItem(ctx, jobID, item, domain.ItemFailed, nil, &detail)
		}
		return
	}
	e.completeItem(ctx, jobID, item, domain.ItemFailed, nil, &detail)
}

func (e *Engine) skipItem(ctx context.Context, jobID string, item domain.EnrichmentQueueItem, reason string) {
	e.completeItem(ctx, jobID, item, domain.ItemSkipped, nil, &reason)
}

// completeItem lands the terminal item state and moves the job counters by
// exactly one. The counter update is guarded on the job still processing, so
// a late completion against a cancelled job changes nothing.
func (e *Engine) completeItem(ctx context.Context, jobID string, item domain.EnrichmentQueueItem, status domain.ItemStatus, result domain.Metadata, detail *string) {
	ok, err := e.jobs.CompleteItem(ctx, item.ID, status, result, detail)
	if err != nil {
		logger.Error("Failed to complete queue item",
			zap.String("job_id", jobID),
			zap.String("item_id", item.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	if !ok {
		// Cancellation skipped it first.
		return
	}
	if err := e.jobs.IncrementCounters(ctx, jobID, status); err != nil {
		logger.Error("Failed to update job counters",
			zap.String("job_id", jobID),
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
	}
}

// backoff sleeps the exponential retry delay, returning false when shutdown
// interrupts the wait.
func (e *Engine) backoff(ctx context.Context, attempts int) bool {
	delay := e.cfg.RetryBackoff
	if delay <= 0 {
		return true
	}
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
