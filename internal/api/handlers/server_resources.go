package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "curatehub.io/curatehub/internal/pkg/errors"
	"curatehub.io/curatehub/internal/service"
)

type submitRequest struct {
	Title       string `json:"title" binding:"required"`
	URL         string `json:"url" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// SubmitResource handles POST /resources.
func (s *Server) SubmitResource(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeInvalidBody, "title and url are required"))
		return
	}
	r, err := s.catalog.Submit(c.Request.Context(), service.Submission{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: req.Subcategory,
	}, principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// ListResources handles GET /resources. Anonymous callers and plain users
// only ever see approved rows, whatever query they send.
func (s *Server) ListResources(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	out, err := s.catalog.List(c.Request.Context(), c.Query("category"), limit, principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": out, "count": len(out)})
}

// GetResource handles GET /resources/:id.
func (s *Server) GetResource(c *gin.Context) {
	r, err := s.catalog.Get(c.Request.Context(), c.Param("id"), principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// GetResourceTags handles GET /resources/:id/tags.
func (s *Server) GetResourceTags(c *gin.Context) {
	tags, err := s.catalog.TagsOf(c.Request.Context(), c.Param("id"), principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}
