// Package audit implements the audit logging service.
//
// Audit entries are append-only compliance records. Hard-delete is NOT
// allowed. Every successful status-changing administrative action produces
// exactly one entry; failed transition attempts produce none.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/pkg/logger"
	"curatehub.io/curatehub/internal/repository"
)

// Logger writes audit records through the audit store.
type Logger struct {
	gate  *access.Gate
	store repository.AuditStore
}

// NewLogger creates a new audit Logger.
func NewLogger(gate *access.Gate, store repository.AuditStore) *Logger {
	return &Logger{gate: gate, store: store}
}

// LogAction records an auditable action.
func (l *Logger) LogAction(ctx context.Context, action domain.AuditAction, resourceID *string, actor string, detail domain.Metadata) error {
	entry := &domain.AuditLogEntry{
		ID:         generateAuditID(),
		ResourceID: resourceID,
		Actor:      actor,
		Action:     action,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.store.Append(ctx, entry); err != nil {
		logger.Error("Failed to write audit log",
			zap.String("action", string(action)),
			zap.String("actor", actor),
			zap.Error(err),
		)
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// LogModeration records a resource status decision.
func (l *Logger) LogModeration(ctx context.Context, action domain.AuditAction, resourceID, actor string, detail domain.Metadata) error {
	return l.LogAction(ctx, action, &resourceID, actor, detail)
}

// LogRoleChange records a user role change.
func (l *Logger) LogRoleChange(ctx context.Context, targetUserID string, role domain.Role, actor string) error {
	return l.LogAction(ctx, domain.AuditRoleChanged, nil, actor, domain.Metadata{
		"user_id": targetUserID,
		"role":    string(role),
	})
}

// List returns recent entries for the administrative visibility path.
func (l *Logger) List(ctx context.Context, limit int, actor access.Principal) ([]domain.AuditLogEntry, error) {
	if err := l.gate.RequireModerator(actor); err != nil {
		return nil, err
	}
	return l.store.List(ctx, limit)
}

func generateAuditID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return fmt.Sprintf("audit-%s", id.String())
}
