// internal/messaging/models.go

package messaging

import (
	"encoding/json"
	"time"

	"github.com/xperia/xperia-backend/internal/common/database"
)

// Conversation is the chat opened when a match becomes mutual. There is
// exactly one per match.
type Conversation struct {
	ID             int64      `json:"id" db:"id"`
	MatchID        int64      `json:"match_id" db:"match_id"`
	Participant1ID int64      `json:"participant1_id" db:"participant1_id"`
	Participant2ID int64      `json:"participant2_id" db:"participant2_id"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	LastMessage    *string    `json:"last_message,omitempty" db:"last_message"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Participants returns both participant ids
func (c *Conversation) Participants() []int64 {
	return []int64{c.Participant1ID, c.Participant2ID}
}

// HasParticipant reports whether userID takes part in the conversation
func (c *Conversation) HasParticipant(userID int64) bool {
	return userID != 0 && (c.Participant1ID == userID || c.Participant2ID == userID)
}

// Message represents a chat message
type Message struct {
	ID             int64     `json:"id" db:"id"`
	ConversationID int64     `json:"conversation_id" db:"conversation_id"`
	SenderID       int64     `json:"sender_id" db:"sender_id"`
	Content        string    `json:"content" db:"content"`
	MessageType    string    `json:"message_type" db:"message_type"`
	IsFromAgent    bool      `json:"is_from_agent" db:"is_from_agent"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	Sender *UserInfo `json:"sender,omitempty" db:"-"`
}

// UserInfo is the public identity shown next to conversations and messages
type UserInfo struct {
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// MatchSummary is the part of a match shown in the conversation list
type MatchSummary struct {
	ID                 int64               `json:"id"`
	CompatibilityScore int                 `json:"compatibility_score"`
	MatchReason        string              `json:"match_reason"`
	CommonInterests    database.StringList `json:"common_interests"`
}

// ConversationSummary is a conversation with the counterpart and its match
type ConversationSummary struct {
	*Conversation
	OtherUser *UserInfo     `json:"other_user"`
	Match     *MatchSummary `json:"match"`
}

// Message types
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeSystem = "system"
)

// WSMessage is the envelope of every websocket frame
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

type WSMessageType string

const (
	WSTypeMessage      WSMessageType = "message"
	WSTypeNotification WSMessageType = "notification"
	WSTypeTyping       WSMessageType = "typing"
	WSTypeStopTyping   WSMessageType = "stop_typing"
	WSTypeError        WSMessageType = "error"
)

// SendMessageRequest is the payload for sending a message
type SendMessageRequest struct {
	Content     string `json:"content" validate:"required,max=4000"`
	MessageType string `json:"message_type" validate:"omitempty,oneof=text image system"`
}

// wsSendMessage is an inbound websocket message
type wsSendMessage struct {
	ConversationID int64  `json:"conversation_id"`
	Content        string `json:"content"`
	MessageType    string `json:"message_type"`
}

// wsTyping is an inbound typing indicator
type wsTyping struct {
	ConversationID int64 `json:"conversation_id"`
}
