package storage

import (
	"context"
	"fmt"

	"github.com/hibari-ai/hibari/internal/model"
)

// AppendMessage inserts a message into a conversation. Messages are
// append-only; there is no update or individual delete path.
func (db *DB) AppendMessage(ctx context.Context, conversationID int64, userID string, role model.Role, content string) (model.Message, error) {
	msg := model.Message{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, user_id, role, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		conversationID, userID, string(role), content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return model.Message{}, fmt.Errorf("storage: append message: %w", err)
	}
	return msg, nil
}

// ListMessages returns all messages in a conversation ordered by created
// timestamp ascending.
func (db *DB) ListMessages(ctx context.Context, conversationID int64) ([]model.Message, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, conversation_id, user_id, role, content, created_at
		 FROM messages WHERE conversation_id = $1
		 ORDER BY created_at ASC, id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list messages: %w", err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
