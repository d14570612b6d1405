package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime accepts timestamps as either Unix milliseconds or RFC3339
// strings on the way in; different client libraries send both. It always
// marshals as RFC3339.
type FlexibleTime struct {
	time.Time
}

func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	// System messages
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"
	MessageTypeAuth   = "auth"

	// Room membership
	MessageTypeJoinRoom  = "join_room"
	MessageTypeLeaveRoom = "leave_room"

	// Client-sent events
	MessageTypeNewComment = "new_comment"
	MessageTypeTyping     = "typing"
	MessageTypeStopTyping = "stop_typing"

	// Server-relayed events
	MessageTypeCommentAdded   = "comment_added"
	MessageTypeUserTyping     = "user_typing"
	MessageTypeUserStopTyping = "user_stop_typing"
	MessageTypeReactionUpdate = "reaction_update"
)

// Message is the envelope every frame travels in. Type routes it; ID and
// ReplyTo support request/response pairs like ping/pong.
type Message struct {
	Type      string       `json:"type"`
	Payload   interface{}  `json:"payload,omitempty"`
	ID        string       `json:"id,omitempty"`
	ReplyTo   string       `json:"reply_to,omitempty"`
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage stamps the envelope with the current UTC time.
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

func NewErrorMessage(code string, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// ParsePayload round-trips the payload through JSON to type it. Inbound
// payloads arrive as map[string]interface{}, so a direct assertion to the
// concrete payload struct is never possible.
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

type AuthPayload struct {
	UserID string `json:"user_id,omitempty"`
	Status string `json:"status,omitempty"`
}

// JoinRoomPayload asks the hub to scope this connection to a post's room
type JoinRoomPayload struct {
	RoomID string `json:"room_id"`
}

// CommentPayload carries a new comment across the wire
type CommentPayload struct {
	CommentID    string `json:"comment_id"`
	PostID       string `json:"post_id"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	ArtistName   string `json:"artist_name,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	Body         string `json:"body"`
	ParentID     string `json:"parent_id,omitempty"`
	MemeImageURL string `json:"meme_image_url,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// TypingPayload indicates a user is typing a comment
type TypingPayload struct {
	PostID     string `json:"post_id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	ArtistName string `json:"artist_name,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// ReactionUpdatePayload carries refreshed reaction counts for a post
type ReactionUpdatePayload struct {
	PostID    string         `json:"post_id"`
	Counts    map[string]int `json:"counts"`
	Timestamp int64          `json:"timestamp"`
}

// SystemPayload represents system event payloads
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
