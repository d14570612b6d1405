package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/middleware"
	"go.uber.org/zap"
)

const (
	// Deadline for a single outbound write.
	writeWait = 10 * time.Second

	// How long a read may block before the peer is considered gone.
	pongWait = 60 * time.Second

	// Ping cadence, kept under pongWait so a healthy peer never times out.
	pingPeriod = (pongWait * 9) / 10

	// 64KB is generous for a comment body plus a meme URL.
	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// Client is one live WebSocket connection bound to an authenticated user.
// A user may hold several clients at once (multiple tabs or devices).
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID     string
	Username   string
	ArtistName string

	// Outbound frames, drained by WritePump.
	send chan []byte

	// Post room the client is currently viewing, "" when none.
	room string

	ConnectedAt time.Time
	LastPingAt  time.Time
	RemoteAddr  string
	UserAgent   string

	rateLimiter *RateLimiter

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// RateLimiter is a token bucket shared by nothing; each client owns one.
type RateLimiter struct {
	mu        sync.Mutex
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
}

func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow consumes a token when one is available.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.tokens += now.Sub(r.lastTime).Seconds() * r.refill
	r.lastTime = now
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, username, artistName string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	limits := hub.GetRateLimitConfig()

	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		Username:    username,
		ArtistName:  artistName,
		send:        make(chan []byte, sendBufferSize),
		ConnectedAt: time.Now(),
		rateLimiter: NewRateLimiter(limits.MaxMessagesPerSecond, limits.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Room returns the post room the client currently occupies.
func (c *Client) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

// setRoom is called by the hub only; room membership lives in the hub maps
// and this field just mirrors it for fast reads.
func (c *Client) setRoom(roomID string) {
	c.mu.Lock()
	c.room = roomID
	c.mu.Unlock()
}

// ReadPump reads frames until the connection dies, feeding parsed messages
// into the dispatch path. It owns unregistration on the way out.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, raw, err := c.conn.Read(readCtx)
		readCancel()
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Info("Client disconnected normally", zap.String("user", c.UserID))
			} else if c.ctx.Err() == nil {
				logger.Log.Error("Read error for client", zap.String("user", c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.SendError("rate_limited", "Too many messages, please slow down")
			c.hub.metrics.Errors.Add(1)
			continue
		}
		c.hub.metrics.MessagesReceived.Add(1)

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Log.Warn("WebSocket JSON parse error",
				zap.String("user", c.UserID),
				zap.Error(err))
			c.SendError("invalid_json", "Failed to parse message")
			continue
		}
		c.dispatch(&msg)
	}
}

// WritePump drains the send channel onto the wire and keeps the
// connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "server shutdown")
			return

		case frame, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}
			writeCtx, writeCancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, frame)
			writeCancel()
			if err != nil {
				logger.Log.Error("Write error for client", zap.String("user", c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			c.LastPingAt = time.Now()
			c.mu.Unlock()

			pingCtx, pingCancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				logger.Log.Warn("Ping failed for client", zap.String("user", c.UserID), zap.Error(err))
				return
			}
		}
	}
}

// dispatch routes one inbound message: built-ins first, then whatever the
// application registered on the hub for that type.
func (c *Client) dispatch(msg *Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = FlexibleTime{Time: time.Now().UTC()}
	}
	middleware.RecordWebSocketMessage("inbound", msg.Type)

	switch msg.Type {
	case MessageTypePing, "heartbeat": // older clients send "heartbeat"
		c.answerPing(msg)
		return
	case MessageTypeAuth:
		// Auth happens at the handshake; answering keeps re-auth clients happy
		c.Send(NewMessage(MessageTypeAuth, AuthPayload{
			UserID: c.UserID,
			Status: "authenticated",
		}))
		return
	}

	if handler, ok := c.hub.GetHandler(msg.Type); ok {
		if err := handler(c, msg); err != nil {
			logger.Log.Error("Handler error",
				zap.String("type", msg.Type),
				zap.Error(err))
			c.SendError("handler_error", fmt.Sprintf("Failed to process %s", msg.Type))
		}
		return
	}

	logger.Log.Warn("Unknown message type",
		zap.String("user", c.UserID),
		zap.String("type", msg.Type))
	c.SendError("unknown_type", fmt.Sprintf("Unknown message type: %s", msg.Type))
}

// answerPing echoes the client clock back with the server's, so the client
// can estimate latency.
func (c *Client) answerPing(msg *Message) {
	var ping PingPayload
	if err := msg.ParsePayload(&ping); err != nil {
		ping.ClientTime = 0
	}

	serverTime := time.Now().UnixMilli()
	pong := NewMessage(MessageTypePong, PongPayload{
		ClientTime: ping.ClientTime,
		ServerTime: serverTime,
		Latency:    serverTime - ping.ClientTime,
	})
	if msg.ID != "" {
		pong.ReplyTo = msg.ID
	}

	// Best effort, the connection may already be tearing down
	_ = c.Send(pong)
}

// Send queues a message for delivery. It never blocks; a full buffer is an
// error the caller (usually the hub) turns into a disconnect.
func (c *Client) Send(msg *Message) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return fmt.Errorf("client connection closed")
	}
	c.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("client shutting down")
	default:
		return fmt.Errorf("send buffer full")
	}
}

// SendJSON writes a value directly, bypassing the send queue.
func (c *Client) SendJSON(ctx context.Context, v interface{}) error {
	return wsjson.Write(ctx, c.conn, v)
}

func (c *Client) SendError(code, message string) {
	c.Send(NewErrorMessage(code, message))
}

// Close is idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "closing")
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// GetInfo snapshots the connection metadata for the ops endpoints.
func (c *Client) GetInfo() ClientInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ClientInfo{
		UserID:      c.UserID,
		Username:    c.Username,
		ArtistName:  c.ArtistName,
		Room:        c.room,
		ConnectedAt: c.ConnectedAt,
		LastPingAt:  c.LastPingAt,
		RemoteAddr:  c.RemoteAddr,
		UserAgent:   c.UserAgent,
	}
}

type ClientInfo struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	ArtistName  string    `json:"artist_name,omitempty"`
	Room        string    `json:"room,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	LastPingAt  time.Time `json:"last_ping_at"`
	RemoteAddr  string    `json:"remote_addr"`
	UserAgent   string    `json:"user_agent"`
}
