package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thecueroom/backend/internal/metrics"
)

// MetricsMiddleware collects HTTP metrics for Prometheus
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		method := c.Request.Method
		// Use the route template so path labels stay low-cardinality
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.HTTPActiveConnections.WithLabelValues(method, path).Inc()
		defer m.HTTPActiveConnections.WithLabelValues(method, path).Dec()

		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime).Seconds()

		// Numeric status as string so Grafana queries like status=~"5.." work
		statusStr := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)
	}
}

// RecordReaction counts a reaction write by type and action (set/remove)
func RecordReaction(reactionType, action string) {
	metrics.Get().ReactionsTotal.WithLabelValues(reactionType, action).Inc()
}

// RecordComment counts a comment creation
func RecordComment(threaded bool) {
	metrics.Get().CommentsTotal.WithLabelValues(strconv.FormatBool(threaded)).Inc()
}

// RecordCacheHit counts a cache hit
func RecordCacheHit(cacheName string) {
	metrics.Get().CacheHitsTotal.WithLabelValues(cacheName).Inc()
}

// RecordCacheMiss counts a cache miss
func RecordCacheMiss(cacheName string) {
	metrics.Get().CacheMissesTotal.WithLabelValues(cacheName).Inc()
}

// RecordError counts an error by type and endpoint
func RecordError(errorType, endpoint string) {
	metrics.Get().ErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// SetWebSocketConnections publishes the hub's active connection gauge
func SetWebSocketConnections(state string, count int64) {
	metrics.Get().WebSocketConnections.WithLabelValues(state).Set(float64(count))
}

// RecordWebSocketMessage counts a WebSocket message by direction and type
func RecordWebSocketMessage(direction, msgType string) {
	metrics.Get().WebSocketMessagesTotal.WithLabelValues(direction, msgType).Inc()
}

// RecordWebSocketDrop counts a client disconnected by the server
func RecordWebSocketDrop(reason string) {
	metrics.Get().WebSocketDroppedClients.WithLabelValues(reason).Inc()
}

// SetRoomOccupancy publishes how many clients are viewing a post's room
func SetRoomOccupancy(roomID string, count int) {
	metrics.Get().WebSocketRoomOccupancy.WithLabelValues(roomID).Set(float64(count))
}
