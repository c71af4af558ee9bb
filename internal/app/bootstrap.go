// Package app is the composition root. Bootstrap stays orchestration-only:
// construct, wire, return.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/api/handlers"
	"curatehub.io/curatehub/internal/api/middleware"
	"curatehub.io/curatehub/internal/classifier"
	"curatehub.io/curatehub/internal/config"
	"curatehub.io/curatehub/internal/enrichment"
	"curatehub.io/curatehub/internal/governance/audit"
	"curatehub.io/curatehub/internal/pkg/worker"
	"curatehub.io/curatehub/internal/repository"
	"curatehub.io/curatehub/internal/repository/postgres"
	"curatehub.io/curatehub/internal/service"
	"curatehub.io/curatehub/internal/tags"
)

// Application holds composed application dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine
	Stores *repository.Stores
	Pools  *worker.Pools
}

// Bootstrap initializes all dependencies using manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := postgres.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	stores := postgres.NewStores(db)

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize:    cfg.Worker.GeneralPoolSize,
		EnrichmentPoolSize: cfg.Worker.EnrichmentPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	return assemble(cfg, stores, pools, classifier.NewClient(cfg.Enrichment)), nil
}

// assemble wires services over already-built infrastructure. Tests reuse it
// with in-memory stores and a stub classifier.
func assemble(cfg *config.Config, stores *repository.Stores, pools *worker.Pools, cls classifier.Classifier) *Application {
	gate := access.NewGate()
	auditLogger := audit.NewLogger(gate, stores.Audit)
	reconciler := tags.NewReconciler(stores.Tags)

	engine := enrichment.NewEngine(gate, stores, reconciler, auditLogger, pools, cls, cfg.Enrichment)

	server := handlers.NewServer(handlers.ServerDeps{
		JWTCfg: middleware.JWTConfig{
			SigningKey: []byte(cfg.Auth.SigningKey),
			Issuer:     cfg.Auth.Issuer,
			ExpiresIn:  cfg.Auth.ExpiresIn,
		},
		Auth:       service.NewAuth(gate, stores.Users, auditLogger),
		Catalog:    service.NewCatalog(gate, stores.Resources, stores.Tags, stores.UserData),
		Moderation: service.NewModeration(gate, stores.Resources, reconciler, auditLogger),
		Enrichment: engine,
		Audit:      auditLogger,
	})

	return &Application{
		Config: cfg,
		Router: newRouter(cfg, server),
		Stores: stores,
		Pools:  pools,
	}
}

// Shutdown stops background work. The HTTP server is shut down by the caller
// before this runs, so no new jobs can arrive while pools drain.
func (a *Application) Shutdown() {
	a.Pools.Shutdown()
}
