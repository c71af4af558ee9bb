// Package domain holds the core catalog entities and their state machines.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ResourceStatus is the moderation state of a submitted resource.
type ResourceStatus string

// Moderation states. Pending is the only initial state; rejected and
// archived are terminal.
const (
	StatusPending  ResourceStatus = "pending"
	StatusApproved ResourceStatus = "approved"
	StatusRejected ResourceStatus = "rejected"
	StatusArchived ResourceStatus = "archived"
)

// transitions is the full moderation graph. Any edge not listed is illegal.
var transitions = map[ResourceStatus][]ResourceStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusArchived},
}

// CanTransition reports whether from → to is a legal moderation edge.
func CanTransition(from, to ResourceStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Metadata is the opaque enrichment payload stored as jsonb. Keys written by
// the classifier merge over existing keys; keys it does not return survive.
type Metadata map[string]string

// Value implements driver.Valuer for jsonb storage.
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for jsonb storage.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("metadata assertion to []byte failed")
	}
	return json.Unmarshal(b, m)
}

// Resource is a submitted catalog item.
//
// Only approved resources are visible through public read paths. SubmittedBy
// is immutable after creation (nil for seed data). Version guards optimistic
// concurrency between moderator edits and the batch worker's metadata merge.
type Resource struct {
	ID              string         `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Title           string         `gorm:"column:title;not null" json:"title"`
	URL             string         `gorm:"column:url;not null" json:"url"`
	Description     string         `gorm:"column:description" json:"description"`
	Category        string         `gorm:"column:category;index" json:"category"`
	Subcategory     string         `gorm:"column:subcategory" json:"subcategory,omitempty"`
	Status          ResourceStatus `gorm:"column:status;index;not null;default:pending" json:"status"`
	SubmittedBy     *string        `gorm:"column:submitted_by;index" json:"submitted_by,omitempty"`
	Metadata        Metadata       `gorm:"column:metadata;type:jsonb" json:"metadata"`
	RejectionReason *string        `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	Version         int            `gorm:"column:version;not null;default:0" json:"-"`
	CreatedAt       time.Time      `gorm:"column:created_at" json:"created_at"`
	StatusChangedAt time.Time      `gorm:"column:status_changed_at" json:"status_changed_at"`
}

// TableName sets the resources table name.
func (Resource) TableName() string { return "resources" }

// Enriched reports whether the resource already carries classifier metadata.
func (r *Resource) Enriched() bool { return len(r.Metadata) > 0 }
