package models

import "time"

// Message is an immutable text message between two users.
type Message struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// MessageWithNames is a message annotated with resolved participant names.
type MessageWithNames struct {
	Message
	SenderName   string `json:"sender_name"`
	ReceiverName string `json:"receiver_name"`
}

// ClearWatermark hides everything at or before ClearedAt from OwnerID's view
// of the conversation with OtherUserID.
type ClearWatermark struct {
	OwnerID     string    `json:"owner_id"`
	OtherUserID string    `json:"other_user_id"`
	ClearedAt   time.Time `json:"cleared_at"`
}

// Hides reports whether the watermark hides a message sent at ts.
func (w ClearWatermark) Hides(ts time.Time) bool {
	return !ts.After(w.ClearedAt)
}

// ChatEvent is pushed to a user's websocket connections.
type ChatEvent struct {
	Type        string               `json:"type"`
	Message     *Message             `json:"message,omitempty"`
	MessageID   int64                `json:"message_id,omitempty"`
	OtherUserID string               `json:"other_user_id,omitempty"`
	ClearedAt   *time.Time           `json:"cleared_at,omitempty"`
	Deleted     *DeleteContactResult `json:"deleted,omitempty"`
}

const (
	EventMessage             = "message"
	EventMessageDeleted      = "message_deleted"
	EventContactDeleted      = "contact_deleted"
	EventConversationCleared = "conversation_cleared"
)
