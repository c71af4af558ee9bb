package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/governance/audit"
	"curatehub.io/curatehub/internal/pkg/logger"
	"curatehub.io/curatehub/internal/repository"
	"curatehub.io/curatehub/internal/repository/memory"
	"curatehub.io/curatehub/internal/tags"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// testEnv bundles the services over in-memory stores.
type testEnv struct {
	stores     *repository.Stores
	auth       *Auth
	catalog    *Catalog
	moderation *Moderation
	auditLog   *audit.Logger
}

func newTestEnv() *testEnv {
	stores := memory.NewStores()
	gate := access.NewGate()
	auditLogger := audit.NewLogger(gate, stores.Audit)
	reconciler := tags.NewReconciler(stores.Tags)
	return &testEnv{
		stores:     stores,
		auth:       NewAuth(gate, stores.Users, auditLogger),
		catalog:    NewCatalog(gate, stores.Resources, stores.Tags, stores.UserData),
		moderation: NewModeration(gate, stores.Resources, reconciler, auditLogger),
		auditLog:   auditLogger,
	}
}

var (
	moderator = access.Principal{ID: "u-mod", Username: "mod", Role: domain.RoleModerator}
	adminUser = access.Principal{ID: "u-admin", Username: "admin", Role: domain.RoleAdmin}
	member    = access.Principal{ID: "u-member", Username: "member", Role: domain.RoleUser}
	anonymous = access.Principal{}
)

// seedResource inserts a resource directly, bypassing submission validation.
func (e *testEnv) seedResource(t *testing.T, status domain.ResourceStatus, owner *string) *domain.Resource {
	t.Helper()
	now := time.Now().UTC()
	r := &domain.Resource{
		ID:              uuid.NewString(),
		Title:           "Effective Go",
		URL:             "https://go.dev/doc/effective_go",
		Category:        "languages",
		Status:          status,
		SubmittedBy:     owner,
		Metadata:        domain.Metadata{},
		CreatedAt:       now,
		StatusChangedAt: now,
	}
	if err := e.stores.Resources.Create(context.Background(), r); err != nil {
		t.Fatalf("seed resource: %v", err)
	}
	return r
}
