// Package main provides data seeding for CurateHub.
//
// Seeding is an idempotent data bootstrap: it creates the default admin and
// loads catalog fixtures from a YAML file, skipping rows that already exist.
// Schema migration runs through the server's auto-migrate, not here.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"curatehub.io/curatehub/internal/config"
	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/pkg/logger"
	"curatehub.io/curatehub/internal/repository"
	"curatehub.io/curatehub/internal/repository/postgres"
	"curatehub.io/curatehub/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

// fixtures is the YAML seed file layout.
type fixtures struct {
	Users []struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
	Resources []struct {
		Title       string            `yaml:"title"`
		URL         string            `yaml:"url"`
		Description string            `yaml:"description"`
		Category    string            `yaml:"category"`
		Subcategory string            `yaml:"subcategory"`
		Status      string            `yaml:"status"`
		Tags        []string          `yaml:"tags"`
		Metadata    map[string]string `yaml:"metadata"`
	} `yaml:"resources"`
}

func run() error {
	fixturePath := flag.String("fixtures", "seed.yaml", "path to the YAML fixture file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := postgres.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	stores := postgres.NewStores(db)

	logger.Info("Starting data seeding...", zap.String("fixtures", *fixturePath))

	var fx fixtures
	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read fixtures: %w", err)
		}
		logger.Info("No fixture file, seeding default admin only")
	} else if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("parse fixtures: %w", err)
	}

	if err := seedDefaultAdmin(ctx, stores); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := seedUsers(ctx, stores, fx); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if err := seedResources(ctx, stores, fx); err != nil {
		return fmt.Errorf("seed resources: %w", err)
	}

	logger.Info("Data seeding completed successfully")
	return nil
}

// seedDefaultAdmin creates the admin account once. The password comes from
// SEED_ADMIN_PASSWORD; without it an existing deployment keeps its accounts
// and a fresh one refuses to seed a guessable default.
func seedDefaultAdmin(ctx context.Context, stores *repository.Stores) error {
	const adminUsername = "admin"

	if _, err := stores.Users.GetByUsername(ctx, adminUsername); err == nil {
		logger.Info("Admin account already present, skipping")
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be set to create the admin account")
	}
	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}
	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     adminUsername,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := stores.Users.Create(ctx, u); err != nil {
		return err
	}
	logger.Info("Seeded admin account", zap.String("user_id", u.ID))
	return nil
}

func seedUsers(ctx context.Context, stores *repository.Stores, fx fixtures) error {
	for _, f := range fx.Users {
		if _, err := stores.Users.GetByUsername(ctx, f.Username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		hash, err := service.HashPassword(f.Password)
		if err != nil {
			return err
		}
		role := domain.Role(f.Role)
		if role == "" {
			role = domain.RoleUser
		}
		u := &domain.User{
			ID:           uuid.NewString(),
			Username:     f.Username,
			PasswordHash: hash,
			Role:         role,
			CreatedAt:    time.Now().UTC(),
		}
		if err := stores.Users.Create(ctx, u); err != nil {
			return err
		}
		logger.Info("Seeded user", zap.String("username", f.Username), zap.String("role", string(role)))
	}
	return nil
}

func seedResources(ctx context.Context, stores *repository.Stores, fx fixtures) error {
	existing, err := stores.Resources.List(ctx, repository.ResourceQuery{})
	if err != nil {
		return err
	}
	byURL := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		byURL[r.URL] = struct{}{}
	}

	for _, f := range fx.Resources {
		if _, dup := byURL[f.URL]; dup {
			continue
		}
		status := domain.ResourceStatus(f.Status)
		if status == "" {
			status = domain.StatusApproved
		}
		now := time.Now().UTC()
		metadata := domain.Metadata{}
		for k, v := range f.Metadata {
			metadata[k] = v
		}
		r := &domain.Resource{
			ID:              uuid.NewString(),
			Title:           f.Title,
			URL:             f.URL,
			Description:     f.Description,
			Category:        f.Category,
			Subcategory:     f.Subcategory,
			Status:          status,
			Metadata:        metadata,
			CreatedAt:       now,
			StatusChangedAt: now,
		}
		if err := stores.Resources.Create(ctx, r); err != nil {
			return err
		}
		for _, tagName := range f.Tags {
			name := domain.NormalizeTagName(tagName)
			if name == "" {
				continue
			}
			tag, err := stores.Tags.GetOrCreate(ctx, name)
			if err != nil {
				return err
			}
			if err := stores.Tags.UpsertJunction(ctx, r.ID, tag.ID); err != nil {
				return err
			}
		}
		logger.Info("Seeded resource", zap.String("title", f.Title), zap.String("status", string(status)))
	}
	return nil
}
