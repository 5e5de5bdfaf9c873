package model

import "time"

// Conversation is a chat session scoping ordered messages for one owner.
// Its owner never changes after creation.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one utterance in a conversation. Messages are append-only:
// never mutated or individually deleted, cascade-deleted with their
// conversation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// TurnMessage is the (role, content) projection of a message handed to the
// decision layer as conversation context.
type TurnMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
