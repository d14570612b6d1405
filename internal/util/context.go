package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thecueroom/backend/internal/models"
)

// GetUserFromContext pulls the full user record set by the auth middleware.
// On a miss it answers 401 itself and returns false; callers just return.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return nil, false
	}
	user, ok := v.(*models.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user data in context"})
		return nil, false
	}
	return user, true
}

// GetUserIDFromContext is the lighter variant for handlers that only need
// the ID. Same 401-on-miss contract as GetUserFromContext.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	id, ok := v.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user ID in context"})
		return "", false
	}
	return id, true
}
