package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thecueroom/backend/internal/metrics"
)

func TestWebSocketMetrics(t *testing.T) {
	m := metrics.Initialize()

	t.Run("SetWebSocketConnections publishes the gauge", func(t *testing.T) {
		m.WebSocketConnections.Reset()

		SetWebSocketConnections("active", 3)
		SetWebSocketConnections("active", 2)

		gauge := m.WebSocketConnections.WithLabelValues("active")
		assert.NotNil(t, gauge, "Connections gauge should exist")
	})

	t.Run("RecordWebSocketMessage counts both directions", func(t *testing.T) {
		m.WebSocketMessagesTotal.Reset()

		RecordWebSocketMessage("inbound", "join_room")
		RecordWebSocketMessage("outbound", "comment_added")
		RecordWebSocketMessage("outbound", "comment_added")

		inbound := m.WebSocketMessagesTotal.WithLabelValues("inbound", "join_room")
		outbound := m.WebSocketMessagesTotal.WithLabelValues("outbound", "comment_added")
		assert.NotNil(t, inbound, "Inbound counter should exist")
		assert.NotNil(t, outbound, "Outbound counter should exist")
	})

	t.Run("RecordWebSocketDrop counts by reason", func(t *testing.T) {
		m.WebSocketDroppedClients.Reset()

		RecordWebSocketDrop("slow_consumer")

		counter := m.WebSocketDroppedClients.WithLabelValues("slow_consumer")
		assert.NotNil(t, counter, "Dropped clients counter should exist")
	})

	t.Run("SetRoomOccupancy tracks rooms separately", func(t *testing.T) {
		m.WebSocketRoomOccupancy.Reset()

		SetRoomOccupancy("post-1", 2)
		SetRoomOccupancy("post-2", 1)
		SetRoomOccupancy("post-1", 0)

		room1 := m.WebSocketRoomOccupancy.WithLabelValues("post-1")
		room2 := m.WebSocketRoomOccupancy.WithLabelValues("post-2")
		assert.NotNil(t, room1, "post-1 gauge should exist")
		assert.NotNil(t, room2, "post-2 gauge should exist")
		assert.NotEqual(t, room1, room2, "Different rooms should have different gauges")
	})
}

func TestErrorMetrics(t *testing.T) {
	m := metrics.Initialize()

	t.Run("RecordError counts by code and endpoint", func(t *testing.T) {
		m.ErrorsTotal.Reset()

		RecordError("NOT_FOUND", "/api/posts/:id")
		RecordError("VALIDATION_ERROR", "/api/posts/:id/comments")

		notFound := m.ErrorsTotal.WithLabelValues("NOT_FOUND", "/api/posts/:id")
		validation := m.ErrorsTotal.WithLabelValues("VALIDATION_ERROR", "/api/posts/:id/comments")
		assert.NotNil(t, notFound, "Not-found counter should exist")
		assert.NotNil(t, validation, "Validation counter should exist")
	})
}
