package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curatehub.io/curatehub/internal/domain"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	u, err := env.auth.Register(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "correct horse battery", u.PasswordHash)

	logged, err := env.auth.Login(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "al", "long enough password")
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	_, err = env.auth.Register(ctx, "alice", "short")
	appErr, ok = apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "alice", "password one!")
	require.NoError(t, err)
	_, err = env.auth.Register(ctx, "alice", "password two!")
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)
}

// Unknown usernames and wrong passwords return the same error.
func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	_, err := env.auth.Register(ctx, "alice", "a fine password")
	require.NoError(t, err)

	_, errUnknown := env.auth.Login(ctx, "nobody", "whatever at all")
	_, errWrong := env.auth.Login(ctx, "alice", "not the password")

	appUnknown, ok := apperrors.IsAppError(errUnknown)
	require.True(t, ok)
	appWrong, ok := apperrors.IsAppError(errWrong)
	require.True(t, ok)
	assert.Equal(t, appUnknown.Code, appWrong.Code)
	assert.Equal(t, appUnknown.Message, appWrong.Message)
	assert.Equal(t, http.StatusUnauthorized, appUnknown.HTTPStatus)
}

func TestChangeRole(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u, err := env.auth.Register(ctx, "alice", "a fine password")
	require.NoError(t, err)

	// Moderators cannot change roles.
	err = env.auth.ChangeRole(ctx, u.ID, domain.RoleModerator, moderator)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)

	require.NoError(t, env.auth.ChangeRole(ctx, u.ID, domain.RoleModerator, adminUser))
	got, err := env.auth.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, got.Role)

	// Role changes are audited.
	entries, err := env.auditLog.List(ctx, 10, moderator)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditRoleChanged, entries[0].Action)

	// Unknown roles and unknown users are rejected.
	err = env.auth.ChangeRole(ctx, u.ID, "superuser", adminUser)
	appErr, ok = apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	err = env.auth.ChangeRole(ctx, "missing", domain.RoleUser, adminUser)
	appErr, ok = apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}
