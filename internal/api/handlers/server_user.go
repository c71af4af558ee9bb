package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"curatehub.io/curatehub/internal/domain"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
)

// Per-user rows. The owner id is always the authenticated principal; these
// endpoints take no user id parameter on purpose.

// ListBookmarks handles GET /me/bookmarks.
func (s *Server) ListBookmarks(c *gin.Context) {
	out, err := s.catalog.Bookmarks(c.Request.Context(), principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": out})
}

type bookmarkRequest struct {
	ResourceID string `json:"resource_id" binding:"required"`
	Note       string `json:"note"`
}

// AddBookmark handles POST /me/bookmarks.
func (s *Server) AddBookmark(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeInvalidBody, "resource_id is required"))
		return
	}
	b, err := s.catalog.AddBookmark(c.Request.Context(), req.ResourceID, req.Note, principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// RemoveBookmark handles DELETE /me/bookmarks/:resourceID.
func (s *Server) RemoveBookmark(c *gin.Context) {
	if err := s.catalog.RemoveBookmark(c.Request.Context(), c.Param("resourceID"), principal(c)); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFavorites handles GET /me/favorites.
func (s *Server) ListFavorites(c *gin.Context) {
	out, err := s.catalog.Favorites(c.Request.Context(), principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": out})
}

type favoriteRequest struct {
	ResourceID string `json:"resource_id" binding:"required"`
}

// AddFavorite handles POST /me/favorites.
func (s *Server) AddFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeInvalidBody, "resource_id is required"))
		return
	}
	f, err := s.catalog.AddFavorite(c.Request.Context(), req.ResourceID, principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// RemoveFavorite handles DELETE /me/favorites/:resourceID.
func (s *Server) RemoveFavorite(c *gin.Context) {
	if err := s.catalog.RemoveFavorite(c.Request.Context(), c.Param("resourceID"), principal(c)); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPreferences handles GET /me/preferences.
func (s *Server) GetPreferences(c *gin.Context) {
	p, err := s.catalog.Preferences(c.Request.Context(), principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type preferencesRequest struct {
	Settings domain.Metadata `json:"settings" binding:"required"`
}

// SavePreferences handles PUT /me/preferences.
func (s *Server) SavePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeInvalidBody, "settings object is required"))
		return
	}
	p, err := s.catalog.SavePreferences(c.Request.Context(), req.Settings, principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListSubmissions handles GET /me/submissions.
func (s *Server) ListSubmissions(c *gin.Context) {
	out, err := s.catalog.Submissions(c.Request.Context(), principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": out})
}
