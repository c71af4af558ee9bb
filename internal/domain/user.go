package domain

import "time"

// Role is the permission tier of a principal.
type Role string

const (
	// RoleUser may submit resources and manage only rows it owns.
	RoleUser Role = "user"
	// RoleModerator may change resource status and run enrichment jobs.
	RoleModerator Role = "moderator"
	// RoleAdmin has moderator capability plus user administration.
	RoleAdmin Role = "admin"
)

// Moderator reports whether the role carries moderation capability.
func (r Role) Moderator() bool { return r == RoleModerator || r == RoleAdmin }

// User is an authenticated account.
type User struct {
	ID           string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Username     string    `gorm:"column:username;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Role         Role      `gorm:"column:role;not null;default:user" json:"role"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName sets the users table name.
func (User) TableName() string { return "users" }

// Bookmark is a user-owned saved resource. Never visible to other users.
type Bookmark struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"column:user_id;uniqueIndex:uq_user_bookmark;not null" json:"user_id"`
	ResourceID string    `gorm:"column:resource_id;uniqueIndex:uq_user_bookmark;not null" json:"resource_id"`
	Note       string    `gorm:"column:note" json:"note,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName sets the bookmarks table name.
func (Bookmark) TableName() string { return "bookmarks" }

// Favorite is a user-owned favorite mark on a resource.
type Favorite struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"column:user_id;uniqueIndex:uq_user_favorite;not null" json:"user_id"`
	ResourceID string    `gorm:"column:resource_id;uniqueIndex:uq_user_favorite;not null" json:"resource_id"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName sets the favorites table name.
func (Favorite) TableName() string { return "favorites" }

// Preference is a user-owned settings blob.
type Preference struct {
	UserID    string    `gorm:"column:user_id;primaryKey;type:varchar(36)" json:"user_id"`
	Settings  Metadata  `gorm:"column:settings;type:jsonb" json:"settings"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName sets the preferences table name.
func (Preference) TableName() string { return "preferences" }
