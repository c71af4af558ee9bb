// Package handlers implements the HTTP API over the service layer.
//
// Handlers bind and validate request bodies, delegate to services with the
// principal from the request context, and push failures to the centralized
// error handler via c.Error(). No business rules live here.
package handlers

import (
	"github.com/gin-gonic/gin"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/api/middleware"
	"curatehub.io/curatehub/internal/enrichment"
	"curatehub.io/curatehub/internal/governance/audit"
	"curatehub.io/curatehub/internal/service"
)

// Server holds all HTTP handlers.
type Server struct {
	jwtCfg     middleware.JWTConfig
	auth       *service.Auth
	catalog    *service.Catalog
	moderation *service.Moderation
	enrichment *enrichment.Engine
	audit      *audit.Logger
}

// ServerDeps holds all dependencies for creating a Server. Manual DI, no
// framework.
type ServerDeps struct {
	JWTCfg     middleware.JWTConfig
	Auth       *service.Auth
	Catalog    *service.Catalog
	Moderation *service.Moderation
	Enrichment *enrichment.Engine
	Audit      *audit.Logger
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		jwtCfg:     deps.JWTCfg,
		auth:       deps.Auth,
		catalog:    deps.Catalog,
		moderation: deps.Moderation,
		enrichment: deps.Enrichment,
		audit:      deps.Audit,
	}
}

// principal extracts the caller's identity from the request context. The
// zero value is the anonymous principal; services decide what anonymous
// callers may do.
func principal(c *gin.Context) access.Principal {
	return middleware.PrincipalFromGin(c)
}
