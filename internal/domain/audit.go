package domain

import "time"

// AuditAction identifies a state-changing administrative action.
type AuditAction string

// Audit actions. Every successful status-changing administrative action
// produces exactly one entry; failed transition attempts produce none.
const (
	AuditApproved     AuditAction = "approved"
	AuditRejected     AuditAction = "rejected"
	AuditArchived     AuditAction = "archived"
	AuditDeleted      AuditAction = "deleted"
	AuditUpdated      AuditAction = "updated"
	AuditBulkTag      AuditAction = "bulk_tag"
	AuditRoleChanged  AuditAction = "role_changed"
	AuditJobStarted   AuditAction = "job_started"
	AuditJobCancelled AuditAction = "job_cancelled"
)

// AuditLogEntry is an append-only compliance record. Never updated or
// deleted.
type AuditLogEntry struct {
	ID         string      `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	ResourceID *string     `gorm:"column:resource_id;index" json:"resource_id,omitempty"`
	Actor      string      `gorm:"column:actor;index;not null" json:"actor"`
	Action     AuditAction `gorm:"column:action;index;not null" json:"action"`
	Detail     Metadata    `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`
	CreatedAt  time.Time   `gorm:"column:created_at" json:"created_at"`
}

// TableName sets the audit log table name.
func (AuditLogEntry) TableName() string { return "audit_log" }
