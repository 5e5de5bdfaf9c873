package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hibari-ai/hibari/internal/model"
)

// CreateConversation inserts a new conversation for the owner.
func (db *DB) CreateConversation(ctx context.Context, userID string) (model.Conversation, error) {
	conv := model.Conversation{UserID: userID}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO conversations (user_id) VALUES ($1)
		 RETURNING id, created_at, updated_at`,
		userID,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("storage: create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation retrieves a conversation by (id, user_id).
func (db *DB) GetConversation(ctx context.Context, userID string, id int64) (model.Conversation, error) {
	var conv model.Conversation
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at
		 FROM conversations WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&conv.ID, &conv.UserID, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Conversation{}, ErrNotFound
	}
	if err != nil {
		return model.Conversation{}, fmt.Errorf("storage: get conversation: %w", err)
	}
	return conv, nil
}

// TouchConversation bumps a conversation's updated_at timestamp.
func (db *DB) TouchConversation(ctx context.Context, userID string, id int64) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("storage: touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
