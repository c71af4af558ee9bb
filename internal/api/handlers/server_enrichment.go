package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/enrichment"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
)

type startJobRequest struct {
	Filter    string `json:"filter" binding:"required"`
	BatchSize int    `json:"batch_size"`
}

// StartEnrichmentJob handles POST /admin/enrichment/jobs. The response is
// the queued job; the batch runs detached and progress is polled through
// GetEnrichmentJob.
func (s *Server) StartEnrichmentJob(c *gin.Context) {
	var req startJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeInvalidBody, "filter is required"))
		return
	}
	job, err := s.enrichment.StartJob(c.Request.Context(), enrichment.StartRequest{
		Filter:    domain.EnrichFilter(req.Filter),
		BatchSize: req.BatchSize,
	}, principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// ListEnrichmentJobs handles GET /admin/enrichment/jobs.
func (s *Server) ListEnrichmentJobs(c *gin.Context) {
	jobs, err := s.enrichment.ListJobs(c.Request.Context(), principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetEnrichmentJob handles GET /admin/enrichment/jobs/:id.
func (s *Server) GetEnrichmentJob(c *gin.Context) {
	snap, err := s.enrichment.GetJob(c.Request.Context(), c.Param("id"), principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CancelEnrichmentJob handles POST /admin/enrichment/jobs/:id/cancel.
func (s *Server) CancelEnrichmentJob(c *gin.Context) {
	job, err := s.enrichment.CancelJob(c.Request.Context(), c.Param("id"), principal(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}
