package domain

import (
	"strings"
	"time"
)

// Tag is a canonical label. Name is unique after normalization; no two rows
// may normalize to the same name.
type Tag struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName sets the tags table name.
func (Tag) TableName() string { return "tags" }

// ResourceTag is the resource↔tag junction, unique on the pair regardless of
// how many enrichment or bulk-tag runs hit the same resource.
type ResourceTag struct {
	ResourceID string    `gorm:"column:resource_id;primaryKey;type:varchar(36)" json:"resource_id"`
	TagID      string    `gorm:"column:tag_id;primaryKey;type:varchar(36)" json:"tag_id"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName sets the junction table name.
func (ResourceTag) TableName() string { return "resource_tags" }

// NormalizeTagName maps a free-form candidate name to its canonical form:
// trimmed, inner whitespace collapsed, case-folded.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
