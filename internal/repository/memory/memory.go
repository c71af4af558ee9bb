// Package memory implements the repository interfaces in process memory.
//
// It mirrors the postgres package's conditional-write semantics (transition
// guards, unique constraints, counter guards) under a mutex so the services
// can be unit-tested, including their concurrency behavior, without a
// running database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/repository"
)

// NewStores creates a fresh in-memory persistence surface.
func NewStores() *repository.Stores {
	db := &database{
		resources:   map[string]*domain.Resource{},
		tags:        map[string]*domain.Tag{},
		tagsByName:  map[string]string{},
		junctions:   map[[2]string]time.Time{},
		jobs:        map[string]*domain.EnrichmentJob{},
		items:       map[string]*domain.EnrichmentQueueItem{},
		scopeLocks:  map[domain.EnrichFilter]string{},
		users:       map[string]*domain.User{},
		usersByName: map[string]string{},
		bookmarks:   map[string]*domain.Bookmark{},
		favorites:   map[string]*domain.Favorite{},
		preferences: map[string]*domain.Preference{},
	}
	return &repository.Stores{
		Resources: &resourceStore{db: db},
		Tags:      &tagStore{db: db},
		Jobs:      &jobStore{db: db},
		Audit:     &auditStore{db: db},
		Users:     &userStore{db: db},
		UserData:  &userDataStore{db: db},
	}
}

type database struct {
	mu sync.Mutex

	resources   map[string]*domain.Resource
	tags        map[string]*domain.Tag
	tagsByName  map[string]string
	junctions   map[[2]string]time.Time
	jobs        map[string]*domain.EnrichmentJob
	items       map[string]*domain.EnrichmentQueueItem
	scopeLocks  map[domain.EnrichFilter]string
	audit       []domain.AuditLogEntry
	users       map[string]*domain.User
	usersByName map[string]string
	bookmarks   map[string]*domain.Bookmark
	favorites   map[string]*domain.Favorite
	preferences map[string]*domain.Preference
}

// ---------------------------------------------------------------------------
// ResourceStore
// ---------------------------------------------------------------------------

type resourceStore struct {
	db *database
}

func cloneResource(r *domain.Resource) *domain.Resource {
	cp := *r
	cp.Metadata = cloneMetadata(r.Metadata)
	return &cp
}

func cloneMetadata(m domain.Metadata) domain.Metadata {
	out := make(domain.Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *resourceStore) Create(_ context.Context, r *domain.Resource) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if r.Metadata == nil {
		r.Metadata = domain.Metadata{}
	}
	s.db.resources[r.ID] = cloneResource(r)
	return nil
}

func (s *resourceStore) Get(_ context.Context, id string) (*domain.Resource, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.resources[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneResource(r), nil
}

func (s *resourceStore) List(_ context.Context, q repository.ResourceQuery) ([]domain.Resource, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []domain.Resource
	for _, r := range s.db.resources {
		if q.Status != nil && r.Status != *q.Status {
			continue
		}
		if q.Category != "" && r.Category != q.Category {
			continue
		}
		out = append(out, *cloneResource(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *resourceStore) Update(_ context.Context, id string, edit repository.ResourceEdit) (*domain.Resource, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.resources[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if edit.Title != nil {
		r.Title = *edit.Title
	}
	if edit.Description != nil {
		r.Description = *edit.Description
	}
	if edit.Category != nil {
		r.Category = *edit.Category
	}
	if edit.Subcategory != nil {
		r.Subcategory = *edit.Subcategory
	}
	r.Version++
	return cloneResource(r), nil
}

func (s *resourceStore) Transition(_ context.Context, id string, from, to domain.ResourceStatus, reason *string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.resources[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.StatusChangedAt = time.Now().UTC()
	r.Version++
	if reason != nil {
		r.RejectionReason = reason
	}
	return true, nil
}

func (s *resourceStore) MergeMetadata(_ context.Context, id string, version int, merged domain.Metadata) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.resources[id]
	if !ok || r.Status != domain.StatusApproved || r.Version != version {
		return false, nil
	}
	r.Metadata = cloneMetadata(merged)
	r.Version++
	return true, nil
}

func (s *resourceStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.resources[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.resources, id)
	for pair := range s.db.junctions {
		if pair[0] == id {
			delete(s.db.junctions, pair)
		}
	}
	return nil
}

func (s *resourceStore) ListCandidates(_ context.Context, filter domain.EnrichFilter, limit int) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matched []*domain.Resource
	for _, r := range s.db.resources {
		if r.Status != domain.StatusApproved {
			continue
		}
		if filter == domain.FilterUnenriched && r.Enriched() {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	ids := make([]string, 0, len(matched))
	for _, r := range matched {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *resourceStore) CountByStatus(_ context.Context) (map[domain.ResourceStatus]int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[domain.ResourceStatus]int64{}
	for _, r := range s.db.resources {
		out[r.Status]++
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// TagStore
// ---------------------------------------------------------------------------

type tagStore struct {
	db *database
}

func (s *tagStore) GetOrCreate(_ context.Context, name string) (*domain.Tag, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if id, ok := s.db.tagsByName[name]; ok {
		cp := *s.db.tags[id]
		return &cp, nil
	}
	tag := &domain.Tag{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	s.db.tags[tag.ID] = tag
	s.db.tagsByName[name] = tag.ID
	cp := *tag
	return &cp, nil
}

func (s *tagStore) UpsertJunction(_ context.Context, resourceID, tagID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := [2]string{resourceID, tagID}
	if _, ok := s.db.junctions[key]; !ok {
		s.db.junctions[key] = time.Now().UTC()
	}
	return nil
}

func (s *tagStore) ListForResource(_ context.Context, resourceID string) ([]domain.Tag, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.Tag
	for pair := range s.db.junctions {
		if pair[0] == resourceID {
			if tag, ok := s.db.tags[pair[1]]; ok {
				out = append(out, *tag)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *tagStore) CountTags(_ context.Context) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return int64(len(s.db.tags)), nil
}

func (s *tagStore) CountJunctions(_ context.Context) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return int64(len(s.db.junctions)), nil
}

// ---------------------------------------------------------------------------
// AuditStore
// ---------------------------------------------------------------------------

type auditStore struct {
	db *database
}

func (s *auditStore) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.audit = append(s.db.audit, *entry)
	return nil
}

func (s *auditStore) List(_ context.Context, limit int) ([]domain.AuditLogEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]domain.AuditLogEntry, len(s.db.audit))
	copy(out, s.db.audit)
	// Append order is chronological; reverse for newest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
