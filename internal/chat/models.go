package chat

import (
	"encoding/json"
	"time"
)

// Message is one persisted direct message between two matched users.
type Message struct {
	ID          int64     `json:"id" db:"id"`
	SenderID    int64     `json:"sender_id" db:"sender_id"`
	RecipientID int64     `json:"recipient_id" db:"recipient_id"`
	Content     string    `json:"content" db:"content"`
	IsRead      bool      `json:"is_read" db:"is_read"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Conversation summarizes the thread with one matched user.
type Conversation struct {
	OtherUserID   int64      `json:"other_user_id" db:"other_user_id"`
	OtherUsername string     `json:"other_username" db:"other_username"`
	LastMessage   *string    `json:"last_message" db:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at" db:"last_message_at"`
	UnreadCount   int        `json:"unread_count" db:"unread_count"`
}

// WSMessageType enumerates the frame types on the websocket.
type WSMessageType string

const (
	WSTypeMessage      WSMessageType = "message"
	WSTypeRead         WSMessageType = "read"
	WSTypeNewMatch     WSMessageType = "new_match"
	WSTypeMatchRevoked WSMessageType = "match_revoked"
	WSTypeError        WSMessageType = "error"
)

// WSMessage is the envelope for every websocket frame, both directions.
type WSMessage struct {
	Type      WSMessageType   `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// SendMessageRequest is the payload for sending a message, over REST or as
// the data of a "message" frame.
type SendMessageRequest struct {
	RecipientID int64  `json:"recipient_id" validate:"required"`
	Content     string `json:"content" validate:"required"`
}

// MatchNotice is the data of new_match and match_revoked frames.
type MatchNotice struct {
	MatchID     int64 `json:"match_id"`
	OtherUserID int64 `json:"other_user_id"`
}
