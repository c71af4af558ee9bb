// Package access is the single authorization decision point.
//
// Every operation consults the gate with the requesting principal; row scope
// is always re-derived from the authenticated identity, never from a
// caller-supplied owner id. The gate holds even if storage-level policies
// are misconfigured, and it is unit-testable without a database.
package access

import (
	"curatehub.io/curatehub/internal/domain"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
)

// Principal is the authenticated identity making a request. The zero value
// (empty ID) is the anonymous principal.
type Principal struct {
	ID       string
	Username string
	Role     domain.Role
}

// Anonymous reports whether no identity is attached to the request.
func (p Principal) Anonymous() bool { return p.ID == "" }

// Moderator reports whether the principal carries moderation capability.
func (p Principal) Moderator() bool { return !p.Anonymous() && p.Role.Moderator() }

// Gate evaluates data-access requests.
type Gate struct{}

// NewGate creates the gate.
func NewGate() *Gate { return &Gate{} }

// RequireAuthenticated rejects anonymous principals.
func (g *Gate) RequireAuthenticated(p Principal) error {
	if p.Anonymous() {
		return apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

// RequireModerator rejects principals without moderation capability.
func (g *Gate) RequireModerator(p Principal) error {
	if p.Anonymous() {
		return apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required")
	}
	if !p.Role.Moderator() {
		return apperrors.Forbidden(apperrors.CodeForbidden, "moderator capability required")
	}
	return nil
}

// RequireAdmin rejects principals below admin.
func (g *Gate) RequireAdmin(p Principal) error {
	if p.Anonymous() {
		return apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required")
	}
	if p.Role != domain.RoleAdmin {
		return apperrors.Forbidden(apperrors.CodeForbidden, "admin capability required")
	}
	return nil
}

// OwnedScope returns the only owner id the principal may read or write
// private rows for: its own. Caller-supplied owner ids are never consulted.
func (g *Gate) OwnedScope(p Principal) (string, error) {
	if p.Anonymous() {
		return "", apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required")
	}
	return p.ID, nil
}

// CanReadResource decides row visibility for a single resource.
//
// Approved rows are public. Non-approved rows are visible to moderators and
// to the submitting owner; everyone else gets not-found rather than
// forbidden, so the row's existence is not leaked.
func (g *Gate) CanReadResource(p Principal, r *domain.Resource) error {
	if r.Status == domain.StatusApproved {
		return nil
	}
	if p.Moderator() {
		return nil
	}
	if !p.Anonymous() && r.SubmittedBy != nil && *r.SubmittedBy == p.ID {
		return nil
	}
	return apperrors.ErrResourceNotFound()
}

// CanSubmitResource decides whether the principal may create a pending
// submission.
func (g *Gate) CanSubmitResource(p Principal) error {
	return g.RequireAuthenticated(p)
}

// PublicListStatus returns the status filter forced onto non-moderator
// listing paths. Moderators may list all statuses.
func (g *Gate) PublicListStatus(p Principal) *domain.ResourceStatus {
	if p.Moderator() {
		return nil
	}
	approved := domain.StatusApproved
	return &approved
}
