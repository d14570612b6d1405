// Package websocket provides the real-time fan-out layer for post rooms.
// Built on github.com/coder/websocket, the context-aware WebSocket library.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/middleware"
	"go.uber.org/zap"
)

// Hub owns every live connection and the room membership maps. All state
// changes flow through its channels so the event loop is the single writer;
// the mutex only guards concurrent readers of the maps.
type Hub struct {
	// Connections per user ID, for mention notifications and online checks.
	clients map[string]map[*Client]struct{}

	// Every connection, for global broadcasts.
	allClients map[*Client]struct{}

	// Post ID to the set of clients currently viewing that post.
	rooms map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	unicast    chan *UnicastMessage
	roomcast   chan *RoomMessage

	mu sync.RWMutex

	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	handlers map[string]MessageHandler

	rateLimitConfig RateLimitConfig
}

// Metrics counts hub activity. All fields are atomics so the pumps can
// bump them without taking the hub lock.
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
	RoomJoins          atomic.Int64
}

// RateLimitConfig bounds how fast one client may talk.
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
	Window               time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
		Window:               time.Second,
	}
}

// UnicastMessage targets every connection a single user holds.
type UnicastMessage struct {
	UserID  string
	Message *Message
}

// RoomMessage targets a room. Exclude, when set, skips that client,
// typically the sender who already rendered the event locally.
type RoomMessage struct {
	RoomID  string
	Exclude *Client
	Message *Message
}

// MessageHandler processes one inbound message type.
type MessageHandler func(client *Client, message *Message) error

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]map[*Client]struct{}),
		allClients:      make(map[*Client]struct{}),
		rooms:           make(map[string]map[*Client]struct{}),
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
		broadcast:       make(chan *Message, 256),
		unicast:         make(chan *UnicastMessage, 256),
		roomcast:        make(chan *RoomMessage, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		handlers:        make(map[string]MessageHandler),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// RegisterHandler binds an application handler to a message type.
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
	logger.Log.Info("📨 Registered WebSocket handler", zap.String("type", msgType))
}

func (h *Hub) GetHandler(msgType string) (MessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[msgType]
	return handler, ok
}

// Run is the hub event loop. Start it once, in its own goroutine.
func (h *Hub) Run() {
	logger.Log.Info("🔌 WebSocket hub starting...")

	for {
		select {
		case <-h.ctx.Done():
			logger.Log.Info("🔌 WebSocket hub shutting down...")
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.dropClient(client)
		case msg := <-h.broadcast:
			h.fanOutAll(msg)
		case u := <-h.unicast:
			h.fanOutUser(u.UserID, u.Message)
		case rm := <-h.roomcast:
			h.fanOutRoom(rm)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	h.allClients[client] = struct{}{}

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)
	middleware.SetWebSocketConnections("active", h.metrics.ActiveConnections.Load())

	logger.Log.Info("✅ Client connected",
		zap.String("user", client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()))
}

func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		return
	}
	delete(h.allClients, client)

	if conns, ok := h.clients[client.UserID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	h.removeFromRoomLocked(client)

	close(client.send)
	h.metrics.ActiveConnections.Add(-1)
	middleware.SetWebSocketConnections("active", h.metrics.ActiveConnections.Load())

	logger.Log.Info("❌ Client disconnected",
		zap.String("user", client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()))
}

// JoinRoom moves a client into a post's room. A client occupies at most one
// room, so joining implicitly leaves the previous one.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomLocked(client)

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	client.setRoom(roomID)

	h.metrics.RoomJoins.Add(1)
	middleware.SetRoomOccupancy(roomID, len(h.rooms[roomID]))

	logger.Log.Info("🚪 Client joined room",
		zap.String("user", client.UserID),
		zap.String("room", roomID),
		zap.Int("room_size", len(h.rooms[roomID])))
}

// LeaveRoom detaches a client from its current room, if any.
func (h *Hub) LeaveRoom(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(client)
}

// removeFromRoomLocked requires h.mu held. Empty rooms are reaped.
func (h *Hub) removeFromRoomLocked(client *Client) {
	roomID := client.Room()
	if roomID == "" {
		return
	}
	if members, ok := h.rooms[roomID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
		middleware.SetRoomOccupancy(roomID, len(members))
	}
	client.setRoom("")
}

func (h *Hub) fanOutAll(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("Error marshaling broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.allClients {
		h.deliverLocked(client, data, msg.Type)
	}
}

func (h *Hub) fanOutUser(userID string, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("Error marshaling unicast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		h.deliverLocked(client, data, msg.Type)
	}
}

func (h *Hub) fanOutRoom(rm *RoomMessage) {
	h.mu.RLock()
	members, ok := h.rooms[rm.RoomID]
	if !ok || len(members) == 0 {
		h.mu.RUnlock()
		return
	}

	data, err := json.Marshal(rm.Message)
	if err != nil {
		h.mu.RUnlock()
		logger.Log.Error("Error marshaling room message", zap.Error(err))
		return
	}

	for client := range members {
		if client == rm.Exclude {
			continue
		}
		h.deliverLocked(client, data, rm.Message.Type)
	}
	h.mu.RUnlock()
}

// deliverLocked queues a frame on one client. A full buffer means the
// client stopped reading; it gets unregistered rather than blocking the
// whole fan-out. Caller holds h.mu.
func (h *Hub) deliverLocked(client *Client, data []byte, msgType string) {
	select {
	case client.send <- data:
		h.metrics.MessagesSent.Add(1)
		middleware.RecordWebSocketMessage("outbound", msgType)
	default:
		h.metrics.ConnectionsDropped.Add(1)
		middleware.RecordWebSocketDrop("slow_consumer")
		go func(c *Client) {
			h.unregister <- c
		}(client)
	}
}

// Broadcast queues a message for every connection.
func (h *Hub) Broadcast(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.ctx.Done():
	}
}

// SendToUser queues a message for all of one user's connections.
func (h *Hub) SendToUser(userID string, message *Message) {
	select {
	case h.unicast <- &UnicastMessage{UserID: userID, Message: message}:
	case <-h.ctx.Done():
	}
}

// SendToRoom queues a message for a room. exclude=nil delivers to everyone;
// pass the originating client to skip the sender.
func (h *Hub) SendToRoom(roomID string, exclude *Client, message *Message) {
	select {
	case h.roomcast <- &RoomMessage{RoomID: roomID, Exclude: exclude, Message: message}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline reports whether a user holds at least one connection.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// GetRoomSize returns how many clients are viewing a post.
func (h *Hub) GetRoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// GetOnlineUsers lists the IDs of every connected user.
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
		RoomJoins:          h.metrics.RoomJoins.Load(),
	}
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
	RoomJoins          int64 `json:"room_joins"`
}

func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d joins=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped, m.RoomJoins,
	)
}

// Shutdown stops the event loop and waits for it to drain, bounded by ctx.
func (h *Hub) Shutdown(ctx context.Context) error {
	logger.Log.Info("🔌 Initiating WebSocket hub shutdown...")
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("🔌 WebSocket hub shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// closeAll notifies every client and tears the maps down. Runs inside the
// event loop as its final act.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	goodbye, _ := json.Marshal(&Message{
		Type:      MessageTypeSystem,
		Payload:   SystemPayload{Event: "server_shutdown"},
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	})

	for client := range h.allClients {
		select {
		case client.send <- goodbye:
		default:
		}
		close(client.send)
	}

	h.clients = make(map[string]map[*Client]struct{})
	h.allClients = make(map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	middleware.SetWebSocketConnections("active", 0)

	logger.Log.Info("🔌 Closed connections during shutdown",
		zap.Int64("count", h.metrics.ActiveConnections.Load()))
}

// SetRateLimitConfig applies to clients connecting after the call.
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
