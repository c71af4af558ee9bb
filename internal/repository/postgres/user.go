package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/repository"
)

// UserStore is the gorm-backed account repository.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new account.
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Get fetches one account by id.
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// GetByUsername fetches one account by username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by name %s: %w", username, err)
	}
	return &u, nil
}

// SetRole updates the account's permission tier.
func (s *UserStore) SetRole(ctx context.Context, id string, role domain.Role) (bool, error) {
	tx := s.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("role", role)
	if tx.Error != nil {
		return false, fmt.Errorf("set role of %s: %w", id, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// UserDataStore is the gorm-backed store for user-owned private rows. Every
// query is keyed by the owning principal's id.
type UserDataStore struct {
	db *gorm.DB
}

// NewUserDataStore creates a UserDataStore.
func NewUserDataStore(db *gorm.DB) *UserDataStore {
	return &UserDataStore{db: db}
}

// ListBookmarks returns the owner's bookmarks, newest first.
func (s *UserDataStore) ListBookmarks(ctx context.Context, ownerID string) ([]domain.Bookmark, error) {
	var out []domain.Bookmark
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return out, nil
}

// AddBookmark inserts a bookmark; duplicates on (user, resource) are no-ops.
func (s *UserDataStore) AddBookmark(ctx context.Context, b *domain.Bookmark) error {
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(b).Error; err != nil {
		return fmt.Errorf("add bookmark: %w", err)
	}
	return nil
}

// RemoveBookmark deletes the owner's bookmark for a resource.
func (s *UserDataStore) RemoveBookmark(ctx context.Context, ownerID, resourceID string) (bool, error) {
	tx := s.db.WithContext(ctx).
		Where("user_id = ? AND resource_id = ?", ownerID, resourceID).
		Delete(&domain.Bookmark{})
	if tx.Error != nil {
		return false, fmt.Errorf("remove bookmark: %w", tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// ListFavorites returns the owner's favorites, newest first.
func (s *UserDataStore) ListFavorites(ctx context.Context, ownerID string) ([]domain.Favorite, error) {
	var out []domain.Favorite
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return out, nil
}

// AddFavorite inserts a favorite; duplicates on (user, resource) are no-ops.
func (s *UserDataStore) AddFavorite(ctx context.Context, f *domain.Favorite) error {
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(f).Error; err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite deletes the owner's favorite for a resource.
func (s *UserDataStore) RemoveFavorite(ctx context.Context, ownerID, resourceID string) (bool, error) {
	tx := s.db.WithContext(ctx).
		Where("user_id = ? AND resource_id = ?", ownerID, resourceID).
		Delete(&domain.Favorite{})
	if tx.Error != nil {
		return false, fmt.Errorf("remove favorite: %w", tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// GetPreferences fetches the owner's settings, empty when unset.
func (s *UserDataStore) GetPreferences(ctx context.Context, ownerID string) (*domain.Preference, error) {
	var p domain.Preference
	err := s.db.WithContext(ctx).First(&p, "user_id = ?", ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.Preference{UserID: ownerID, Settings: domain.Metadata{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &p, nil
}

// SavePreferences upserts the owner's settings.
func (s *UserDataStore) SavePreferences(ctx context.Context, p *domain.Preference) error {
	p.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"settings", "updated_at"}),
		}).
		Create(p).Error; err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// ListSubmissions returns resources submitted by the owner, all statuses.
func (s *UserDataStore) ListSubmissions(ctx context.Context, ownerID string) ([]domain.Resource, error) {
	var out []domain.Resource
	if err := s.db.WithContext(ctx).
		Where("submitted_by = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}
