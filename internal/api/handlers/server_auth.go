package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"curatehub.io/curatehub/internal/api/middleware"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
	"curatehub.io/curatehub/internal/pkg/logger"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Register handles POST /auth/register.
func (s *Server) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeInvalidBody, "username and password are required"))
		return
	}
	u, err := s.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// Login handles POST /auth/login.
func (s *Server) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest(apperrors.CodeInvalidBody, "username and password are required"))
		return
	}

	u, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	token, expiresAt, err := middleware.GenerateToken(s.jwtCfg, u)
	if err != nil {
		logger.Error("failed to generate token", zap.Error(err))
		c.Error(apperrors.Wrap(err, "INTERNAL_ERROR", "token generation failed", 500))
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
	})
}

// GetCurrentUser handles GET /auth/me.
func (s *Server) GetCurrentUser(c *gin.Context) {
	p := principal(c)
	if p.Anonymous() {
		c.Error(apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required"))
		return
	}
	u, err := s.auth.Get(c.Request.Context(), p.ID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, u)
}
