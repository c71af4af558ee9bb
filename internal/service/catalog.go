package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/domain"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
	"curatehub.io/curatehub/internal/repository"
)

// Submission is the payload for a new resource.
type Submission struct {
	Title       string
	URL         string
	Description string
	Category    string
	Subcategory string
}

// Catalog serves submissions, public reads and user-owned rows. Every
// operation derives its row scope through the access gate.
type Catalog struct {
	gate      *access.Gate
	resources repository.ResourceStore
	tags      repository.TagStore
	userData  repository.UserDataStore
}

// NewCatalog creates the catalog service.
func NewCatalog(gate *access.Gate, resources repository.ResourceStore, tagStore repository.TagStore, userData repository.UserDataStore) *Catalog {
	return &Catalog{
		gate:      gate,
		resources: resources,
		tags:      tagStore,
		userData:  userData,
	}
}

// Submit creates a new pending resource owned by the caller. Status is
// forced to pending regardless of what the caller sends.
func (c *Catalog) Submit(ctx context.Context, sub Submission, actor access.Principal) (*domain.Resource, error) {
	if err := c.gate.CanSubmitResource(actor); err != nil {
		return nil, err
	}
	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	owner := actor.ID
	r := &domain.Resource{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(sub.Title),
		URL:             strings.TrimSpace(sub.URL),
		Description:     strings.TrimSpace(sub.Description),
		Category:        strings.TrimSpace(sub.Category),
		Subcategory:     strings.TrimSpace(sub.Subcategory),
		Status:          domain.StatusPending,
		SubmittedBy:     &owner,
		Metadata:        domain.Metadata{},
		CreatedAt:       now,
		StatusChangedAt: now,
	}
	if err := c.resources.Create(ctx, r); err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "resource create failed", 500)
	}
	return r, nil
}

func validateSubmission(sub Submission) error {
	if strings.TrimSpace(sub.Title) == "" {
		return apperrors.BadRequest(apperrors.CodeValidationFailed, "title is required")
	}
	raw := strings.TrimSpace(sub.URL)
	if raw == "" {
		return apperrors.BadRequest(apperrors.CodeValidationFailed, "url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.BadRequest(apperrors.CodeValidationFailed, "url must be absolute http(s)")
	}
	return nil
}

// List returns resources visible to the caller. Non-moderators are always
// forced onto the approved-only view, whatever they ask for.
func (c *Catalog) List(ctx context.Context, category string, limit int, actor access.Principal) ([]domain.Resource, error) {
	q := repository.ResourceQuery{
		Status:   c.gate.PublicListStatus(actor),
		Category: category,
		Limit:    limit,
	}
	out, err := c.resources.List(ctx, q)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "resource list failed", 500)
	}
	return out, nil
}

// Get fetches one resource under the gate's visibility rules: a
// non-approved row reads as not-found to callers without standing.
func (c *Catalog) Get(ctx context.Context, id string, actor access.Principal) (*domain.Resource, error) {
	r, err := c.resources.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrResourceNotFound()
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "resource fetch failed", 500)
	}
	if err := c.gate.CanReadResource(actor, r); err != nil {
		return nil, err
	}
	return r, nil
}

// TagsOf lists the canonical tags attached to a visible resource.
func (c *Catalog) TagsOf(ctx context.Context, id string, actor access.Principal) ([]domain.Tag, error) {
	if _, err := c.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	out, err := c.tags.ListForResource(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "tag list failed", 500)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// User-owned rows. Scope always comes from the authenticated identity.
// ---------------------------------------------------------------------------

// Bookmarks lists the caller's bookmarks.
func (c *Catalog) Bookmarks(ctx context.Context, actor access.Principal) ([]domain.Bookmark, error) {
	owner, err := c.gate.OwnedScope(actor)
	if err != nil {
		return nil, err
	}
	out, err := c.userData.ListBookmarks(ctx, owner)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "bookmark list failed", 500)
	}
	return out, nil
}

// AddBookmark bookmarks a resource the caller can see.
func (c *Catalog) AddBookmark(ctx context.Context, resourceID, note string, actor access.Principal) (*domain.Bookmark, error) {
	owner, err := c.gate.OwnedScope(actor)
	if err != nil {
		return nil, err
	}
	if _, err := c.Get(ctx, resourceID, actor); err != nil {
		return nil, err
	}
	b := &domain.Bookmark{
		ID:         uuid.NewString(),
		UserID:     owner,
		ResourceID: resourceID,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.userData.AddBookmark(ctx, b); err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "bookmark create failed", 500)
	}
	return b, nil
}

// RemoveBookmark removes the caller's bookmark for a resource.
func (c *Catalog) RemoveBookmark(ctx context.Context, resourceID string, actor access.Principal) error {
	owner, err := c.gate.OwnedScope(actor)
	if err != nil {
		return err
	}
	removed, err := c.userData.RemoveBookmark(ctx, owner, resourceID)
	if err != nil {
		return apperrors.Wrap(err, "INTERNAL_ERROR", "bookmark delete failed", 500)
	}
	if !removed {
		return apperrors.NotFound("BOOKMARK_NOT_FOUND", "bookmark not found")
	}
	return nil
}

// Favorites lists the caller's favorites.
func (c *Catalog) Favorites(ctx context.Context, actor access.Principal) ([]domain.Favorite, error) {
	owner, err := c.gate.OwnedScope(actor)
	if err != nil {
		return nil, err
	}
	out, err := c.userData.ListFavorites(ctx, owner)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "favorite list failed", 500)
	}
	return out, nil
}

// AddFavorite favorites a resource the caller can see.
func (c *Catalog) AddFavorite(ctx context.Context, resourceID string, actor access.Principal) (*domain.Favorite, error) {
	owner, err := c.gate.OwnedScope(actor)
	if err != nil {
		return nil, err
	}
	if _, err := c.Get(ctx, resourceID, actor); err != nil {
		return nil, err
	}
	f := &domain.Favorite{
		ID:         uuid.NewString(),
		UserID:     owner,
		ResourceID: resourceID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.userData.AddFavorite(ctx, f); err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "favorite create failed", 500)
	}
	return f, nil
}

// RemoveFavorite removes the caller's favorite for a resource.
func (c *Catalog) RemoveFavorite(ctx context.Context, resourceID string, actor access.Principal) error {
	owner, err := c.gate.OwnedScope(actor)
	if err != nil {
		return err
	}
	removed, err := c.userData.RemoveFavorite(ctx, owner, resourceID)
	if err != nil {
		return apperrors.Wrap(err, "INTERNAL_ERROR", "favorite delete failed", 500)
	}
	if !removed {
		return apperrors.NotFound("FAVORITE_NOT_FOUND", "favorite not found")
	}
	return nil
}

// Preferences returns the caller's settings.
func (c *Catalog) Preferences(ctx context.Context, actor access.Principal) (*domain.Preference, error) {
	owner, err := c.gate.OwnedScope(actor)
	if err != nil {
		return nil, err
	}
	p, err := c.userData.GetPreferences(ctx, owner)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "preferences fetch failed", 500)
	}
	return p, nil
}

// SavePreferences stores the caller's settings.
func (c *Catalog) SavePreferences(ctx context.Context, settings domain.Metadata, actor access.Principal) (*domain.Preference, error) {
	owner, err := c.gate.OwnedScope(actor)
	if err != nil {
		return nil, err
	}
	p := &domain.Preference{UserID: owner, Settings: settings}
	if err := c.userData.SavePreferences(ctx, p); err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "preferences save failed", 500)
	}
	return p, nil
}

// Submissions lists the caller's own submissions across all statuses.
func (c *Catalog) Submissions(ctx context.Context, actor access.Principal) ([]domain.Resource, error) {
	owner, err := c.gate.OwnedScope(actor)
	if err != nil {
		return nil, err
	}
	out, err := c.userData.ListSubmissions(ctx, owner)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "submission list failed", 500)
	}
	return out, nil
}

// Stats aggregates catalog counts for the moderator dashboard.
type Stats struct {
	Resources map[domain.ResourceStatus]int64 `json:"resources"`
	Tags      int64                           `json:"tags"`
	Junctions int64                           `json:"junctions"`
}

// CollectStats gathers moderator-only aggregate counts.
func (c *Catalog) CollectStats(ctx context.Context, actor access.Principal) (*Stats, error) {
	if err := c.gate.RequireModerator(actor); err != nil {
		return nil, err
	}
	byStatus, err := c.resources.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "stats collection failed", 500)
	}
	tagCount, err := c.tags.CountTags(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "stats collection failed", 500)
	}
	junctionCount, err := c.tags.CountJunctions(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "stats collection failed", 500)
	}
	return &Stats{Resources: byStatus, Tags: tagCount, Junctions: junctionCount}, nil
}
