// Package repository defines the persistence boundary for the catalog.
//
// Services depend on these interfaces only. The postgres package implements
// them on gorm; the memory package implements them for tests that must run
// without a database. All status moves are conditional writes keyed on the
// expected current state, so a concurrent loser observes affected-rows == 0
// instead of silently clobbering the winner.
package repository

import (
	"context"
	"errors"

	"curatehub.io/curatehub/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("repository: not found")

// ResourceQuery filters resource listings.
type ResourceQuery struct {
	Status   *domain.ResourceStatus
	Category string
	Limit    int
	Offset   int
}

// ResourceEdit carries moderator field edits. Nil fields are untouched;
// status is never part of an edit.
type ResourceEdit struct {
	Title       *string
	Description *string
	Category    *string
	Subcategory *string
}

// ResourceStore owns resource rows and their status transitions.
type ResourceStore interface {
	Create(ctx context.Context, r *domain.Resource) error
	Get(ctx context.Context, id string) (*domain.Resource, error)
	List(ctx context.Context, q ResourceQuery) ([]domain.Resource, error)

	// Update applies field edits and bumps the version. Returns ErrNotFound
	// if the row is absent.
	Update(ctx context.Context, id string, edit ResourceEdit) (*domain.Resource, error)

	// Transition is the single conditional status update: it succeeds only
	// when the row is currently in from. Returns false when the precondition
	// fails (row absent or already moved).
	Transition(ctx context.Context, id string, from, to domain.ResourceStatus, reason *string) (bool, error)

	// MergeMetadata writes merged metadata conditionally on the row still
	// being approved at the given version. Returns false when the write lost
	// the race or the resource left approved.
	MergeMetadata(ctx context.Context, id string, version int, merged domain.Metadata) (bool, error)

	// Delete hard-deletes the resource and cascades its tag junctions.
	Delete(ctx context.Context, id string) error

	// ListCandidates resolves an enrichment filter to eligible resource ids
	// in creation order, capped at limit. Rejected and archived resources are
	// excluded from every filter.
	ListCandidates(ctx context.Context, filter domain.EnrichFilter, limit int) ([]string, error)

	CountByStatus(ctx context.Context) (map[domain.ResourceStatus]int64, error)
}

// TagStore owns canonical tags and the resource↔tag junction.
type TagStore interface {
	// GetOrCreate returns the canonical tag for an already-normalized name.
	// A create race is resolved by re-reading the existing row.
	GetOrCreate(ctx context.Context, name string) (*domain.Tag, error)

	// UpsertJunction inserts the (resource, tag) pair; a duplicate pair is a
	// no-op.
	UpsertJunction(ctx context.Context, resourceID, tagID string) error

	ListForResource(ctx context.Context, resourceID string) ([]domain.Tag, error)
	CountTags(ctx context.Context) (int64, error)
	CountJunctions(ctx context.Context) (int64, error)
}

// JobStore owns enrichment jobs, their queue items and the per-scope locks.
type JobStore interface {
	// AcquireScope claims the per-filter lock row for jobID. Returns false
	// when another non-terminal job already holds the scope.
	AcquireScope(ctx context.Context, filter domain.EnrichFilter, jobID string) (bool, error)
	// ReleaseScope drops the lock if jobID still holds it.
	ReleaseScope(ctx context.Context, filter domain.EnrichFilter, jobID string) error

	CreateJobWithItems(ctx context.Context, job *domain.EnrichmentJob, items []domain.EnrichmentQueueItem) error
	GetJob(ctx context.Context, id string) (*domain.EnrichmentJob, error)
	Snapshot(ctx context.Context, id string) (*domain.JobSnapshot, error)
	ListJobs(ctx context.Context) ([]domain.EnrichmentJob, error)

	// MarkJobProcessing moves queued → processing. False when already moved.
	MarkJobProcessing(ctx context.Context, id string) (bool, error)

	// FinalizeJob moves processing → terminal exactly once. False when the
	// job was already finalized (duplicate completion checks are no-ops).
	FinalizeJob(ctx context.Context, id string, status domain.JobStatus) (bool, error)

	// CancelJob marks still-queued items skipped, folds them into the
	// skipped/processed counters and moves the job to cancelled. Returns the
	// number of items skipped and whether the transition happened.
	CancelJob(ctx context.Context, id string) (int, bool, error)

	// ClaimNextItem atomically claims the oldest queued item of the job
	// (queued → processing). Returns nil when no queued item remains.
	ClaimNextItem(ctx context.Context, jobID string) (*domain.EnrichmentQueueItem, error)

	// HasOpenItems reports whether any queued or processing item remains.
	HasOpenItems(ctx context.Context, jobID string) (bool, error)

	// RequeueItem returns a processing item to queued and increments its
	// attempt count.
	RequeueItem(ctx context.Context, itemID string) error

	// CompleteItem moves a processing item to a terminal status with its
	// result or error detail. False when the item was not processing.
	CompleteItem(ctx context.Context, itemID string, status domain.ItemStatus, result domain.Metadata, errDetail *string) (bool, error)

	// IncrementCounters adds one processed plus one successful/failed/skipped
	// to the job, conditionally on the job still processing.
	IncrementCounters(ctx context.Context, jobID string, outcome domain.ItemStatus) error
}

// AuditStore is append-only.
type AuditStore interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
	List(ctx context.Context, limit int) ([]domain.AuditLogEntry, error)
}

// UserStore owns accounts.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	SetRole(ctx context.Context, id string, role domain.Role) (bool, error)
}

// UserDataStore owns per-user private rows. Every method is keyed by the
// owning principal's id; there is deliberately no way to query across owners.
type UserDataStore interface {
	ListBookmarks(ctx context.Context, ownerID string) ([]domain.Bookmark, error)
	AddBookmark(ctx context.Context, b *domain.Bookmark) error
	RemoveBookmark(ctx context.Context, ownerID, resourceID string) (bool, error)

	ListFavorites(ctx context.Context, ownerID string) ([]domain.Favorite, error)
	AddFavorite(ctx context.Context, f *domain.Favorite) error
	RemoveFavorite(ctx context.Context, ownerID, resourceID string) (bool, error)

	GetPreferences(ctx context.Context, ownerID string) (*domain.Preference, error)
	SavePreferences(ctx context.Context, p *domain.Preference) error

	ListSubmissions(ctx context.Context, ownerID string) ([]domain.Resource, error)
}

// Stores bundles the full persistence surface for wiring.
type Stores struct {
	Resources ResourceStore
	Tags      TagStore
	Jobs      JobStore
	Audit     AuditStore
	Users     UserStore
	UserData  UserDataStore
}
