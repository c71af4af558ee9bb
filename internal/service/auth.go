package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/governance/audit"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
	"curatehub.io/curatehub/internal/pkg/logger"
	"curatehub.io/curatehub/internal/repository"
)

const passwordHashCost = 12

// Auth owns accounts: registration, credential checks and role changes.
type Auth struct {
	gate  *access.Gate
	users repository.UserStore
	audit *audit.Logger
}

// NewAuth creates the auth service.
func NewAuth(gate *access.Gate, users repository.UserStore, auditLogger *audit.Logger) *Auth {
	return &Auth{gate: gate, users: users, audit: auditLogger}
}

// Register creates a new account with the user role. Role escalation only
// happens through ChangeRole.
func (a *Auth) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "username must be at least 3 characters")
	}
	if len(password) < 8 {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "password must be at least 8 characters")
	}

	if existing, err := a.users.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, apperrors.Conflict(apperrors.CodeResourceConflict, "username already taken")
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "user lookup failed", 500)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "password hashing failed", 500)
	}
	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.Create(ctx, u); err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "user creation failed", 500)
	}
	return u, nil
}

// Login verifies credentials and returns the account. The same error comes
// back for an unknown username and a wrong password.
func (a *Auth) Login(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := a.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		logger.Warn("login failed: invalid credentials", zap.String("username", username))
		return nil, apperrors.Unauthorized(apperrors.CodeAuthFailed, "invalid credentials")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "user lookup failed", 500)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		logger.Warn("login failed: invalid credentials", zap.String("username", username))
		return nil, apperrors.Unauthorized(apperrors.CodeAuthFailed, "invalid credentials")
	}
	return u, nil
}

// Get returns one account by id.
func (a *Auth) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := a.users.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("USER_NOT_FOUND", "user not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "INTERNAL_ERROR", "user lookup failed", 500)
	}
	return u, nil
}

// ChangeRole moves an account to a new role. Admin only; audited.
func (a *Auth) ChangeRole(ctx context.Context, targetID string, role domain.Role, actor access.Principal) error {
	if err := a.gate.RequireAdmin(actor); err != nil {
		return err
	}
	switch role {
	case domain.RoleUser, domain.RoleModerator, domain.RoleAdmin:
	default:
		return apperrors.BadRequest(apperrors.CodeValidationFailed, "unknown role")
	}

	ok, err := a.users.SetRole(ctx, targetID, role)
	if err != nil {
		return apperrors.Wrap(err, "INTERNAL_ERROR", "role change failed", 500)
	}
	if !ok {
		return apperrors.NotFound("USER_NOT_FOUND", "user not found")
	}
	if err := a.audit.LogRoleChange(ctx, targetID, role, actor.ID); err != nil {
		logger.Warn("audit write failed after role change", zap.String("user_id", targetID), zap.Error(err))
	}
	return nil
}

// HashPassword hashes a password with bcrypt. Shared with the seed command.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
