// Package service implements the application use cases over the stores.
package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/governance/audit"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
	"curatehub.io/curatehub/internal/pkg/logger"
	"curatehub.io/curatehub/internal/repository"
	"curatehub.io/curatehub/internal/tags"
)

// BulkAction names one of the batch moderation actions.
type BulkAction string

// Supported bulk actions.
const (
	BulkApprove BulkAction = "approve"
	BulkReject  BulkAction = "reject"
	BulkArchive BulkAction = "archive"
	BulkTag     BulkAction = "tag"
	BulkDelete  BulkAction = "delete"
)

// BulkData carries optional payload for bulk actions.
type BulkData struct {
	Tags   []string
	Reason string
}

// BulkOutcome is the per-id result of a bulk action. Failures on individual
// ids never abort the batch.
type BulkOutcome struct {
	ResourceID string `json:"resource_id"`
	OK         bool   `json:"ok"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Moderation owns the resource state machine and bulk administration.
type Moderation struct {
	gate       *access.Gate
	resources  repository.ResourceStore
	reconciler *tags.Reconciler
	audit      *audit.Logger
}

// NewModeration creates the moderation service.
func NewModeration(gate *access.Gate, resources repository.ResourceStore, reconciler *tags.Reconciler, auditLogger *audit.Logger) *Moderation {
	return &Moderation{
		gate:       gate,
		resources:  resources,
		reconciler: reconciler,
		audit:      auditLogger,
	}
}

// Approve moves a pending resource to approved.
func (m *Moderation) Approve(ctx context.Context, id string, actor access.Principal) error {
	return m.transition(ctx, id, actor, domain.StatusPending, domain.StatusApproved, domain.AuditApproved, nil)
}

// Reject moves a pending resource to rejected, storing the reason.
func (m *Moderation) Reject(ctx context.Context, id string, actor access.Principal, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperrors.BadRequest(apperrors.CodeValidationFailed, "rejection reason is required")
	}
	return m.transition(ctx, id, actor, domain.StatusPending, domain.StatusRejected, domain.AuditRejected, &reason)
}

// Archive moves an approved resource to archived. Archived resources leave
// public listings and all enrichment candidate sets, same as rejected.
func (m *Moderation) Archive(ctx context.Context, id string, actor access.Principal) error {
	return m.transition(ctx, id, actor, domain.StatusApproved, domain.StatusArchived, domain.AuditArchived, nil)
}

// transition runs one conditional status move. The store's WHERE-guarded
// update resolves concurrent races: the loser sees no affected rows and gets
// InvalidTransition, and only the winner writes an audit entry.
func (m *Moderation) transition(ctx context.Context, id string, actor access.Principal, from, to domain.ResourceStatus, action domain.AuditAction, reason *string) error {
	if err := m.gate.RequireModerator(actor); err != nil {
		return err
	}
	if !domain.CanTransition(from, to) {
		return apperrors.ErrInvalidTransition(string(from), string(to))
	}

	ok, err := m.resources.Transition(ctx, id, from, to, reason)
	if err != nil {
		return apperrors.Wrap(err, "INTERNAL_ERROR", "status transition failed", 500)
	}
	if !ok {
		// Distinguish "already handled by someone else" from "not found" so
		// the admin UI refreshes instead of retrying blindly.
		current, getErr := m.resources.Get(ctx, id)
		if errors.Is(getErr, repository.ErrNotFound) {
			return apperrors.ErrResourceNotFound()
		}
		if getErr != nil {
			return apperrors.Wrap(getErr, "INTERNAL_ERROR", "status transition failed", 500)
		}
		return apperrors.ErrInvalidTransition(string(current.Status), string(to))
	}

	detail := domain.Metadata{"from": string(from), "to": string(to)}
	if reason != nil {
		detail["reason"] = *reason
	}
	if err := m.audit.LogModeration(ctx, action, id, actor.ID, detail); err != nil {
		logger.Warn("audit write failed after transition",
			zap.String("resource_id", id),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
	return nil
}

// List returns resources for the review queue, optionally filtered by
// status. Unlike the public listing, every status is visible here.
func (m *Moderation) List(ctx context.Context, q repository.ResourceQuery, actor access.Principal) ([]domain.Resource, error) {
	if err := m.gate.RequireModerator(actor); err != nil {
		return nil, err
	}
	out, err := m.resources.List(ctx, q)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "resource list failed", 500)
	}
	return out, nil
}

// Update applies moderator field edits without touching status.
func (m *Moderation) Update(ctx context.Context, id string, edit repository.ResourceEdit, actor access.Principal) (*domain.Resource, error) {
	if err := m.gate.RequireModerator(actor); err != nil {
		return nil, err
	}
	updated, err := m.resources.Update(ctx, id, edit)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrResourceNotFound()
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "resource update failed", 500)
	}
	if err := m.audit.LogModeration(ctx, domain.AuditUpdated, id, actor.ID, nil); err != nil {
		logger.Warn("audit write failed after update", zap.String("resource_id", id), zap.Error(err))
	}
	return updated, nil
}

// Delete hard-deletes a resource and cascades its tag junctions.
func (m *Moderation) Delete(ctx context.Context, id string, actor access.Principal) error {
	if err := m.gate.RequireModerator(actor); err != nil {
		return err
	}
	err := m.resources.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrResourceNotFound()
	}
	if err != nil {
		return apperrors.Wrap(err, "INTERNAL_ERROR", "resource delete failed", 500)
	}
	if err := m.audit.LogModeration(ctx, domain.AuditDeleted, id, actor.ID, nil); err != nil {
		logger.Warn("audit write failed after delete", zap.String("resource_id", id), zap.Error(err))
	}
	return nil
}

// BulkApply runs one action over many resource ids, atomically per id.
// Individual failures land in the per-id outcome; the batch continues.
// The tag action requires a non-empty tag list up front — its absence is a
// request-validation error, not a partial success.
func (m *Moderation) BulkApply(ctx context.Context, action BulkAction, resourceIDs []string, actor access.Principal, data BulkData) ([]BulkOutcome, error) {
	if err := m.gate.RequireModerator(actor); err != nil {
		return nil, err
	}
	if len(resourceIDs) == 0 {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "resource id list is empty")
	}
	if action == BulkTag && len(data.Tags) == 0 {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "tag action requires a non-empty tags list")
	}

	outcomes := make([]BulkOutcome, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		var err error
		switch action {
		case BulkApprove:
			err = m.Approve(ctx, id, actor)
		case BulkReject:
			reason := data.Reason
			if reason == "" {
				reason = "bulk rejection"
			}
			err = m.Reject(ctx, id, actor, reason)
		case BulkArchive:
			err = m.Archive(ctx, id, actor)
		case BulkDelete:
			err = m.Delete(ctx, id, actor)
		case BulkTag:
			err = m.applyTags(ctx, id, data.Tags, actor)
		default:
			return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "unknown bulk action")
		}

		outcome := BulkOutcome{ResourceID: id, OK: err == nil}
		if err != nil {
			if appErr, ok := apperrors.IsAppError(err); ok {
				outcome.Code = appErr.Code
				outcome.Message = appErr.Message
			} else {
				outcome.Code = "INTERNAL_ERROR"
				outcome.Message = err.Error()
			}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// applyTags attaches operator-supplied tags to one resource.
func (m *Moderation) applyTags(ctx context.Context, id string, tagNames []string, actor access.Principal) error {
	if _, err := m.resources.Get(ctx, id); errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrResourceNotFound()
	} else if err != nil {
		return apperrors.Wrap(err, "INTERNAL_ERROR", "resource lookup failed", 500)
	}

	attached, err := m.reconciler.Reconcile(ctx, id, tagNames)
	if err != nil {
		return apperrors.Wrap(err, "INTERNAL_ERROR", "tag reconciliation failed", 500)
	}

	names := make([]string, 0, len(attached))
	for _, t := range attached {
		names = append(names, t.Name)
	}
	if err := m.audit.LogModeration(ctx, domain.AuditBulkTag, id, actor.ID, domain.Metadata{
		"tags": strings.Join(names, ","),
	}); err != nil {
		logger.Warn("audit write failed after bulk tag", zap.String("resource_id", id), zap.Error(err))
	}
	return nil
}
