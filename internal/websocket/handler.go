package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/thecueroom/backend/internal/database"
	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/models"
	"go.uber.org/zap"
)

// Handler upgrades HTTP requests to WebSocket connections and wires the
// application message handlers onto the hub.
type Handler struct {
	hub       *Hub
	jwtSecret []byte
}

func NewHandler(hub *Hub, jwtSecret []byte) *Handler {
	return &Handler{hub: hub, jwtSecret: jwtSecret}
}

// HandleWebSocket authenticates, upgrades, and runs the connection. The
// token arrives either as ?token= (browsers cannot set headers on the
// WebSocket handshake) or as a Bearer Authorization header.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Warn("WebSocket auth failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": err.Error(),
		})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // TODO: Configure allowed origins for production
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Username, user.ArtistName)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")
	h.hub.Register(client)

	client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to TheCueRoom!",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
			"session_id":  fmt.Sprintf("%p", client),
		},
	}))

	go client.WritePump()
	client.ReadPump() // blocks until the client disconnects
}

// authenticateRequest verifies the JWT and loads the account, rejecting
// suspended users at the door.
func (h *Handler) authenticateRequest(c *gin.Context) (*models.User, error) {
	tokenString := tokenFromRequest(c)
	if tokenString == "" {
		return nil, errors.New("no authentication token provided")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errors.New("token missing expiration")
	}
	if time.Unix(int64(exp), 0).Before(time.Now()) {
		return nil, errors.New("token expired")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errors.New("invalid user_id in token")
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if user.IsSuspended {
		return nil, errors.New("account suspended")
	}
	return &user, nil
}

// tokenFromRequest prefers the Authorization header over the query param
// when both are present.
func tokenFromRequest(c *gin.Context) string {
	token := c.Query("token")
	if auth := c.GetHeader("Authorization"); auth != "" {
		token = strings.TrimPrefix(auth, "Bearer ")
	}
	return token
}

// HandleMetrics exposes the hub counters for monitoring.
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket":    h.hub.GetMetrics(),
		"online_users": h.hub.GetOnlineUsers(),
		"timestamp":    time.Now().UTC(),
	})
}

// HandleOnlineStatus answers which of the requested users hold a live
// connection right now.
func (h *Handler) HandleOnlineStatus(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statuses := make(map[string]bool, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		statuses[userID] = h.hub.IsUserOnline(userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":  statuses,
		"timestamp": time.Now().UTC(),
	})
}

// RegisterDefaultHandlers registers the room and comment message handlers.
// Room scoping: a client must join_room for a post before it receives or
// relays that post's comment and typing traffic.
func (h *Handler) RegisterDefaultHandlers() {
	// join_room scopes this connection to a post's comment thread
	h.hub.RegisterHandler(MessageTypeJoinRoom, func(client *Client, msg *Message) error {
		var join JoinRoomPayload
		if err := msg.ParsePayload(&join); err != nil {
			return err
		}
		if join.RoomID == "" {
			client.SendError("invalid_room", "room_id is required")
			return nil
		}

		h.hub.JoinRoom(client, join.RoomID)

		// Acknowledge so the client knows the scope took effect
		client.Send(NewMessage(MessageTypeSystem, SystemPayload{
			Event: "room_joined",
			Data: map[string]interface{}{
				"room_id": join.RoomID,
				"members": h.hub.GetRoomSize(join.RoomID),
			},
		}))
		return nil
	})

	// leave_room detaches the connection from its current room
	h.hub.RegisterHandler(MessageTypeLeaveRoom, func(client *Client, msg *Message) error {
		h.hub.LeaveRoom(client)
		return nil
	})

	// new_comment from a client is relayed as comment_added to the rest
	// of the room. The sender already rendered its optimistic copy, so
	// it is excluded from the relay.
	h.hub.RegisterHandler(MessageTypeNewComment, func(client *Client, msg *Message) error {
		var comment CommentPayload
		if err := msg.ParsePayload(&comment); err != nil {
			return err
		}
		if comment.PostID == "" {
			client.SendError("invalid_comment", "post_id is required")
			return nil
		}
		if client.Room() != comment.PostID {
			client.SendError("not_in_room", "join the post's room before commenting")
			return nil
		}

		// Stamp sender identity server-side, never trust the payload
		comment.UserID = client.UserID
		comment.Username = client.Username
		comment.ArtistName = client.ArtistName
		if comment.CreatedAt == 0 {
			comment.CreatedAt = time.Now().UnixMilli()
		}

		h.hub.SendToRoom(comment.PostID, client, NewMessage(MessageTypeCommentAdded, comment))
		return nil
	})

	// typing indicators fan out to the room, sender excluded
	h.hub.RegisterHandler(MessageTypeTyping, func(client *Client, msg *Message) error {
		return h.relayTyping(client, msg, MessageTypeUserTyping)
	})

	h.hub.RegisterHandler(MessageTypeStopTyping, func(client *Client, msg *Message) error {
		return h.relayTyping(client, msg, MessageTypeUserStopTyping)
	})

	logger.Log.Info("📨 Registered default WebSocket message handlers")
}

// relayTyping rebroadcasts a typing event to the sender's room
func (h *Handler) relayTyping(client *Client, msg *Message, outType string) error {
	var typing TypingPayload
	if err := msg.ParsePayload(&typing); err != nil {
		return err
	}
	if typing.PostID == "" {
		typing.PostID = client.Room()
	}
	if typing.PostID == "" || client.Room() != typing.PostID {
		// Silently drop typing events outside the joined room
		return nil
	}

	typing.UserID = client.UserID
	typing.Username = client.Username
	typing.ArtistName = client.ArtistName
	typing.Timestamp = time.Now().UnixMilli()

	h.hub.SendToRoom(typing.PostID, client, NewMessage(outType, typing))
	return nil
}

// BroadcastCommentAdded pushes a REST-created comment to everyone in the
// post's room. Exclusion of the author's own connections is handled by
// the caller passing their client, or nil to include everyone.
func (h *Handler) BroadcastCommentAdded(postID string, payload *CommentPayload) {
	h.hub.SendToRoom(postID, nil, NewMessage(MessageTypeCommentAdded, payload))
}

// BroadcastReactionUpdate pushes refreshed reaction counts to a post's room
func (h *Handler) BroadcastReactionUpdate(postID string, counts map[string]int) {
	h.hub.SendToRoom(postID, nil, NewMessage(MessageTypeReactionUpdate, ReactionUpdatePayload{
		PostID:    postID,
		Counts:    counts,
		Timestamp: time.Now().UnixMilli(),
	}))
}

// Shutdown gracefully shuts down the WebSocket handler
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}

// GetHub returns the hub for external access
func (h *Handler) GetHub() *Hub {
	return h.hub
}
