package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/domain"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
)

func TestSubmitForcesPendingStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	r, err := env.catalog.Submit(ctx, Submission{
		Title:    "Go by Example",
		URL:      "https://gobyexample.com",
		Category: "languages",
	}, member)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, r.Status)
	require.NotNil(t, r.SubmittedBy)
	assert.Equal(t, member.ID, *r.SubmittedBy)
	assert.NotEmpty(t, r.ID)
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	tests := []struct {
		name string
		sub  Submission
	}{
		{"missing title", Submission{URL: "https://example.com"}},
		{"missing url", Submission{Title: "something"}},
		{"relative url", Submission{Title: "x", URL: "/docs/page"}},
		{"non-http scheme", Submission{Title: "x", URL: "ftp://example.com/file"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.catalog.Submit(ctx, tt.sub, member)
			appErr, ok := apperrors.IsAppError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
		})
	}
}

func TestSubmitRequiresAuthentication(t *testing.T) {
	env := newTestEnv()
	_, err := env.catalog.Submit(context.Background(), Submission{
		Title: "x", URL: "https://example.com",
	}, anonymous)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}

func TestListForcesApprovedForNonModerators(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedResource(t, domain.StatusPending, nil)
	env.seedResource(t, domain.StatusApproved, nil)
	env.seedResource(t, domain.StatusRejected, nil)
	env.seedResource(t, domain.StatusArchived, nil)

	public, err := env.catalog.List(ctx, "", 0, anonymous)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, domain.StatusApproved, public[0].Status)

	// Plain users get the same forced view.
	asUser, err := env.catalog.List(ctx, "", 0, member)
	require.NoError(t, err)
	assert.Len(t, asUser, 1)

	// Moderators see everything.
	asMod, err := env.catalog.List(ctx, "", 0, moderator)
	require.NoError(t, err)
	assert.Len(t, asMod, 4)
}

func TestGetHidesNonApprovedAsNotFound(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := member.ID
	r := env.seedResource(t, domain.StatusPending, &owner)

	// Anonymous and strangers get 404, not 403.
	_, err := env.catalog.Get(ctx, r.ID, anonymous)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)

	// The owner and moderators can read it.
	got, err := env.catalog.Get(ctx, r.ID, member)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	_, err = env.catalog.Get(ctx, r.ID, moderator)
	assert.NoError(t, err)
}

func TestBookmarksAreOwnerScoped(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	r := env.seedResource(t, domain.StatusApproved, nil)

	other := access.Principal{ID: "u-other", Role: domain.RoleUser}

	_, err := env.catalog.AddBookmark(ctx, r.ID, "read later", member)
	require.NoError(t, err)

	mine, err := env.catalog.Bookmarks(ctx, member)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, member.ID, mine[0].UserID)

	// Another user's listing never shows it; there is no cross-owner query.
	theirs, err := env.catalog.Bookmarks(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	// Removal is also scoped: the other user cannot remove it.
	err = env.catalog.RemoveBookmark(ctx, r.ID, other)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)

	require.NoError(t, env.catalog.RemoveBookmark(ctx, r.ID, member))
}

func TestFavoritesAndPreferences(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	r := env.seedResource(t, domain.StatusApproved, nil)

	_, err := env.catalog.AddFavorite(ctx, r.ID, member)
	require.NoError(t, err)
	favs, err := env.catalog.Favorites(ctx, member)
	require.NoError(t, err)
	assert.Len(t, favs, 1)

	_, err = env.catalog.SavePreferences(ctx, domain.Metadata{"theme": "dark"}, member)
	require.NoError(t, err)
	prefs, err := env.catalog.Preferences(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, "dark", prefs.Settings["theme"])
}

func TestSubmissionsListOwnRowsAcrossStatuses(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := member.ID
	env.seedResource(t, domain.StatusPending, &owner)
	env.seedResource(t, domain.StatusRejected, &owner)
	env.seedResource(t, domain.StatusApproved, nil)

	out, err := env.catalog.Submissions(ctx, member)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestCollectStatsIsModeratorOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedResource(t, domain.StatusApproved, nil)
	env.seedResource(t, domain.StatusPending, nil)

	_, err := env.catalog.CollectStats(ctx, member)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)

	stats, err := env.catalog.CollectStats(ctx, moderator)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Resources[domain.StatusApproved])
	assert.EqualValues(t, 1, stats.Resources[domain.StatusPending])
}
