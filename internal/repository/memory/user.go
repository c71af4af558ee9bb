package memory

import (
	"context"
	"sort"
	"time"

	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/repository"
)

type userStore struct {
	db *database
}

func (s *userStore) Create(_ context.Context, u *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *u
	s.db.users[u.ID] = &cp
	s.db.usersByName[u.Username] = u.ID
	return nil
}

func (s *userStore) Get(_ context.Context, id string) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *userStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	id, ok := s.db.usersByName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s.db.users[id]
	return &cp, nil
}

func (s *userStore) SetRole(_ context.Context, id string, role domain.Role) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return false, nil
	}
	u.Role = role
	return true, nil
}

type userDataStore struct {
	db *database
}

func (s *userDataStore) ListBookmarks(_ context.Context, ownerID string) ([]domain.Bookmark, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.Bookmark
	for _, b := range s.db.bookmarks {
		if b.UserID == ownerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *userDataStore) AddBookmark(_ context.Context, b *domain.Bookmark) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.bookmarks {
		if existing.UserID == b.UserID && existing.ResourceID == b.ResourceID {
			return nil
		}
	}
	cp := *b
	s.db.bookmarks[b.ID] = &cp
	return nil
}

func (s *userDataStore) RemoveBookmark(_ context.Context, ownerID, resourceID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, b := range s.db.bookmarks {
		if b.UserID == ownerID && b.ResourceID == resourceID {
			delete(s.db.bookmarks, id)
			return true, nil
		}
	}
	return false, nil
}

func (s *userDataStore) ListFavorites(_ context.Context, ownerID string) ([]domain.Favorite, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.Favorite
	for _, f := range s.db.favorites {
		if f.UserID == ownerID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *userDataStore) AddFavorite(_ context.Context, f *domain.Favorite) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.favorites {
		if existing.UserID == f.UserID && existing.ResourceID == f.ResourceID {
			return nil
		}
	}
	cp := *f
	s.db.favorites[f.ID] = &cp
	return nil
}

func (s *userDataStore) RemoveFavorite(_ context.Context, ownerID, resourceID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, f := range s.db.favorites {
		if f.UserID == ownerID && f.ResourceID == resourceID {
			delete(s.db.favorites, id)
			return true, nil
		}
	}
	return false, nil
}

func (s *userDataStore) GetPreferences(_ context.Context, ownerID string) (*domain.Preference, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.preferences[ownerID]
	if !ok {
		return &domain.Preference{UserID: ownerID, Settings: domain.Metadata{}}, nil
	}
	cp := *p
	cp.Settings = cloneMetadata(p.Settings)
	return &cp, nil
}

func (s *userDataStore) SavePreferences(_ context.Context, p *domain.Preference) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *p
	cp.Settings = cloneMetadata(p.Settings)
	cp.UpdatedAt = time.Now().UTC()
	s.db.preferences[p.UserID] = &cp
	return nil
}

func (s *userDataStore) ListSubmissions(_ context.Context, ownerID string) ([]domain.Resource, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.Resource
	for _, r := range s.db.resources {
		if r.SubmittedBy != nil && *r.SubmittedBy == ownerID {
			out = append(out, *cloneResource(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
