package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/serene-app/serene-backend/internal/db"
	"github.com/serene-app/serene-backend/internal/models"
	"github.com/serene-app/serene-backend/pkg/logging"
)

// AdminAPI serves the moderation surface. Role checks happen in the
// RequireAdmin middleware against the profiles table, never against
// anything the client sends.
type AdminAPI struct {
	profiles *db.ProfileRepository
	logger   *zap.Logger
}

// NewAdminAPI creates a new admin API
func NewAdminAPI(repo *db.Repository) *AdminAPI {
	return &AdminAPI{
		profiles: db.NewProfileRepository(repo),
		logger:   logging.WithComponent("admin-api"),
	}
}

// ListUsers handles GET /api/admin/users
func (a *AdminAPI) ListUsers(c *gin.Context) {
	profiles, err := a.profiles.List(c.Request.Context())
	if err != nil {
		a.logger.Error("Failed to list profiles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": profiles})
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetRole handles PUT /api/admin/users/:id/role
func (a *AdminAPI) SetRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Role != models.RoleUser && req.Role != models.RoleAdmin {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "role must be 'user' or 'admin'"})
		return
	}

	userID := c.Param("id")
	profile, err := a.profiles.GetByID(c.Request.Context(), userID)
	if err != nil {
		a.logger.Error("Failed to load profile", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if err := a.profiles.SetRole(c.Request.Context(), userID, req.Role); err != nil {
		a.logger.Error("Failed to update role", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}
	a.logger.Info("Role updated",
		zap.String("user_id", userID),
		zap.String("role", req.Role),
		zap.String("updated_by", ViewerID(c)))
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": req.Role})
}

// ModeratePost handles POST /api/admin/moderation/:id. Post takedown
// is not wired to the feed yet.
// TODO: implement takedown once soft-delete lands on vent_posts.
func (a *AdminAPI) ModeratePost(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": "moderation actions are not available yet"})
}
