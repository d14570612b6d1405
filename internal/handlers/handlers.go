// Package handlers contains the HTTP handlers for the API.
package handlers

import (
	"github.com/thecueroom/backend/internal/auth"
	"github.com/thecueroom/backend/internal/cache"
	"github.com/thecueroom/backend/internal/websocket"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	authService *auth.Service
	wsHandler   *websocket.Handler
	redis       *cache.RedisClient
}

// NewHandlers creates a new handlers instance
func NewHandlers(authService *auth.Service) *Handlers {
	return &Handlers{
		authService: authService,
	}
}

// SetWebSocketHandler sets the WebSocket handler for real-time fan-out
func (h *Handlers) SetWebSocketHandler(ws *websocket.Handler) {
	h.wsHandler = ws
}

// SetRedisClient sets the Redis client for reaction count caching
func (h *Handlers) SetRedisClient(rc *cache.RedisClient) {
	h.redis = rc
}
