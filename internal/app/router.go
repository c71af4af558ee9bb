package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"curatehub.io/curatehub/internal/api/handlers"
	"curatehub.io/curatehub/internal/api/middleware"
	"curatehub.io/curatehub/internal/config"
)

// newRouter wires middleware and routes. Authentication attaches a principal
// when a token is present; authorization happens in the access gate per
// operation, so there is no per-route RBAC table to drift out of sync.
func newRouter(cfg *config.Config, server *handlers.Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.JWTAuth([]byte(cfg.Auth.SigningKey)))

	router.GET("/health/live", server.Healthz)

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", server.Register)
	auth.POST("/login", server.Login)
	auth.GET("/me", server.GetCurrentUser)

	resources := v1.Group("/resources")
	resources.POST("", server.SubmitResource)
	resources.GET("", server.ListResources)
	resources.GET("/:id", server.GetResource)
	resources.GET("/:id/tags", server.GetResourceTags)

	me := v1.Group("/me")
	me.GET("/bookmarks", server.ListBookmarks)
	me.POST("/bookmarks", server.AddBookmark)
	me.DELETE("/bookmarks/:resourceID", server.RemoveBookmark)
	me.GET("/favorites", server.ListFavorites)
	me.POST("/favorites", server.AddFavorite)
	me.DELETE("/favorites/:resourceID", server.RemoveFavorite)
	me.GET("/preferences", server.GetPreferences)
	me.PUT("/preferences", server.SavePreferences)
	me.GET("/submissions", server.ListSubmissions)

	admin := v1.Group("/admin")
	admin.GET("/resources", server.AdminListResources)
	admin.PATCH("/resources/:id", server.UpdateResource)
	admin.DELETE("/resources/:id", server.DeleteResource)
	admin.POST("/resources/:id/approve", server.ApproveResource)
	admin.POST("/resources/:id/reject", server.RejectResource)
	admin.POST("/resources/:id/archive", server.ArchiveResource)
	admin.POST("/resources/bulk", server.BulkResources)
	admin.GET("/stats", server.AdminStats)
	admin.GET("/audit-logs", server.ListAuditLogs)
	admin.PUT("/users/:id/role", server.ChangeUserRole)
	admin.GET("/system/workers", server.WorkerMetrics)

	jobs := admin.Group("/enrichment/jobs")
	jobs.POST("", server.StartEnrichmentJob)
	jobs.GET("", server.ListEnrichmentJobs)
	jobs.GET("/:id", server.GetEnrichmentJob)
	jobs.POST("/:id/cancel", server.CancelEnrichmentJob)

	return router
}
