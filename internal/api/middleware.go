package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/serene-app/serene-backend/internal/db"
	"github.com/serene-app/serene-backend/pkg/logging"
)

// viewerHeader carries the authenticated user ID, set by the managed
// auth gateway in front of this service
const viewerHeader = "X-Viewer-ID"

// viewerKey is the gin context key holding the viewer ID
const viewerKey = "viewer_id"

// CORS applies the permissive cross-origin headers and answers
// pre-flight requests explicitly
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type, x-viewer-id")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Identity extracts the viewer ID header into the request context.
// The header may be absent; handlers that need it use RequireViewer.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if viewerID := c.GetHeader(viewerHeader); viewerID != "" {
			c.Set(viewerKey, viewerID)
		}
		c.Next()
	}
}

// RequireViewer rejects requests without a viewer identity before any
// work is done
func RequireViewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ViewerID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin verifies the admin role claim against the profiles
// table. The role is never trusted from the client.
func RequireAdmin(profiles *db.ProfileRepository) gin.HandlerFunc {
	logger := logging.WithComponent("api-auth")
	return func(c *gin.Context) {
		viewerID := ViewerID(c)
		if viewerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}

		profile, err := profiles.GetByID(c.Request.Context(), viewerID)
		if err != nil {
			logger.Error("Failed to load profile for role check",
				zap.String("viewer_id", viewerID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "role check failed"})
			return
		}
		if profile == nil || !profile.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// ViewerID returns the viewer identity for this request, or empty
func ViewerID(c *gin.Context) string {
	return c.GetString(viewerKey)
}
