package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"curatehub.io/curatehub/internal/domain"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
	"curatehub.io/curatehub/internal/repository"
	"curatehub.io/curatehub/internal/service"
)

// AdminListResources handles GET /admin/resources. The review queue shows
// every status; ?status narrows it.
func (s *Server) AdminListResources(c *gin.Context) {
	q := repository.ResourceQuery{Category: c.Query("category")}
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	q.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if raw := c.Query("status"); raw != "" {
		status := domain.ResourceStatus(raw)
		q.Status = &status
	}

	out, err := s.moderation.List(c.Request.Context(), q, principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": out, "count": len(out)})
}

// ApproveResource handles POST /admin/resources/:id/approve.
func (s *Server) ApproveResource(c *gin.Context) {
	if err := s.moderation.Approve(c.Request.Context(), c.Param("id"), principal(c)); err != nil {
		c.Error(err)
		return
	}
	s.respondWithResource(c, c.Param("id"))
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectResource handles POST /admin/resources/:id/reject.
func (s *Server) RejectResource(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "rejection reason is required"))
		return
	}
	if err := s.moderation.Reject(c.Request.Context(), c.Param("id"), principal(c), req.Reason); err != nil {
		c.Error(err)
		return
	}
	s.respondWithResource(c, c.Param("id"))
}

// ArchiveResource handles POST /admin/resources/:id/archive.
func (s *Server) ArchiveResource(c *gin.Context) {
	if err := s.moderation.Archive(c.Request.Context(), c.Param("id"), principal(c)); err != nil {
		c.Error(err)
		return
	}
	s.respondWithResource(c, c.Param("id"))
}

type updateResourceRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Subcategory *string `json:"subcategory"`
}

// UpdateResource handles PATCH /admin/resources/:id.
func (s *Server) UpdateResource(c *gin.Context) {
	var req updateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeInvalidBody, "invalid request body"))
		return
	}
	r, err := s.moderation.Update(c.Request.Context(), c.Param("id"), repository.ResourceEdit{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: req.Subcategory,
	}, principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteResource handles DELETE /admin/resources/:id.
func (s *Server) DeleteResource(c *gin.Context) {
	if err := s.moderation.Delete(c.Request.Context(), c.Param("id"), principal(c)); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

type bulkRequest struct {
	Action      string   `json:"action" binding:"required"`
	ResourceIDs []string `json:"resource_ids" binding:"required"`
	Tags        []string `json:"tags"`
	Reason      string   `json:"reason"`
}

// BulkResources handles POST /admin/resources/bulk. Per-id outcomes come
// back 200 even when some ids failed; request-level validation errors are
// 400 with no rows touched.
func (s *Server) BulkResources(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeInvalidBody, "action and resource_ids are required"))
		return
	}
	outcomes, err := s.moderation.BulkApply(c.Request.Context(), service.BulkAction(req.Action), req.ResourceIDs, principal(c), service.BulkData{
		Tags:   req.Tags,
		Reason: req.Reason,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

// AdminStats handles GET /admin/stats.
func (s *Server) AdminStats(c *gin.Context) {
	stats, err := s.catalog.CollectStats(c.Request.Context(), principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListAuditLogs handles GET /admin/audit-logs.
func (s *Server) ListAuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := s.audit.List(c.Request.Context(), limit, principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type roleChangeRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChangeUserRole handles PUT /admin/users/:id/role.
func (s *Server) ChangeUserRole(c *gin.Context) {
	var req roleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeInvalidBody, "role is required"))
		return
	}
	if err := s.auth.ChangeRole(c.Request.Context(), c.Param("id"), domain.Role(req.Role), principal(c)); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// WorkerMetrics handles GET /admin/system/workers.
func (s *Server) WorkerMetrics(c *gin.Context) {
	m, err := s.enrichment.PoolMetrics(principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// respondWithResource echoes the post-transition row so the admin UI can
// refresh in place.
func (s *Server) respondWithResource(c *gin.Context, id string) {
	r, err := s.catalog.Get(c.Request.Context(), id, principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, r)
}
