package main

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/pkg/logger"
	"curatehub.io/curatehub/internal/repository"
	"curatehub.io/curatehub/internal/repository/memory"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestSeedDefaultAdmin(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()

	// Refuses to create a guessable default without the env password.
	t.Setenv("SEED_ADMIN_PASSWORD", "")
	require.Error(t, seedDefaultAdmin(ctx, stores))

	t.Setenv("SEED_ADMIN_PASSWORD", "a strong password")
	require.NoError(t, seedDefaultAdmin(ctx, stores))
	admin, err := stores.Users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NotEqual(t, "a strong password", admin.PasswordHash)

	// A second run keeps the existing account even without the env var.
	t.Setenv("SEED_ADMIN_PASSWORD", "")
	require.NoError(t, seedDefaultAdmin(ctx, stores))
	again, err := stores.Users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)
}

func TestSeedUsersIdempotent(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()

	fx := fixtures{}
	fx.Users = []struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	}{
		{Username: "mod", Password: "a strong password", Role: "moderator"},
		{Username: "plain", Password: "a strong password"},
	}

	require.NoError(t, seedUsers(ctx, stores, fx))
	require.NoError(t, seedUsers(ctx, stores, fx))

	mod, err := stores.Users.GetByUsername(ctx, "mod")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, mod.Role)

	// Role defaults to user when the fixture omits it.
	plain, err := stores.Users.GetByUsername(ctx, "plain")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, plain.Role)
}

func TestSeedResources(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()

	fx := fixtures{}
	fx.Resources = []struct {
		Title       string            `yaml:"title"`
		URL         string            `yaml:"url"`
		Description string            `yaml:"description"`
		Category    string            `yaml:"category"`
		Subcategory string            `yaml:"subcategory"`
		Status      string            `yaml:"status"`
		Tags        []string          `yaml:"tags"`
		Metadata    map[string]string `yaml:"metadata"`
	}{
		{Title: "Effective Go", URL: "https://go.dev/doc/effective_go", Tags: []string{"Go", "  Style  "}},
		{Title: "Draft", URL: "https://example.com/draft", Status: "pending"},
	}

	require.NoError(t, seedResources(ctx, stores, fx))
	// Re-running dedupes by URL.
	require.NoError(t, seedResources(ctx, stores, fx))

	all, err := stores.Resources.List(ctx, repository.ResourceQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	var approved *domain.Resource
	for i := range all {
		if all[i].URL == "https://go.dev/doc/effective_go" {
			approved = &all[i]
		}
	}
	require.NotNil(t, approved)
	// Status defaults to approved; fixture tags land normalized.
	assert.Equal(t, domain.StatusApproved, approved.Status)
	tags, err := stores.Tags.ListForResource(ctx, approved.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"go", "style"}, names)
}
