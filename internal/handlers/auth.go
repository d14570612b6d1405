package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/thecueroom/backend/internal/auth"
	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/util"
	"go.uber.org/zap"
)

// Register creates a new artist account with email/password
// POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			util.RespondConflict(c, "email")
		case errors.Is(err, auth.ErrUsernameExists):
			util.RespondConflict(c, "username")
		default:
			logger.ErrorWithFields("Registration failed", err)
			util.RespondInternalError(c, "Failed to create account")
		}
		return
	}

	logger.Log.Info("🎉 New artist registered",
		zap.String("user_id", resp.User.ID),
		zap.String("username", resp.User.Username))

	c.JSON(http.StatusCreated, resp)
}

// Login authenticates with email/password
// POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidCredentials):
			util.RespondUnauthorized(c, "invalid email or password")
		case errors.Is(err, auth.ErrAccountSuspended):
			util.RespondForbidden(c, "account suspended")
		default:
			logger.ErrorWithFields("Login failed", err)
			util.RespondInternalError(c, "Failed to log in")
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user's profile
// GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AuthMiddleware validates the JWT bearer token and loads the user into
// the request context under "user_id" and "user".
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if strings.HasPrefix(authHeader, "Bearer ") {
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			} else {
				tokenString = authHeader
			}
		}

		if tokenString == "" {
			util.RespondUnauthorized(c, "missing authentication token")
			c.Abort()
			return
		}

		user, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrAccountSuspended) {
				util.RespondForbidden(c, "account suspended")
			} else {
				util.RespondUnauthorized(c, "invalid or expired token")
			}
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Next()
	}
}
