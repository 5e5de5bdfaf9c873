package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hibari-ai/hibari/internal/model"
)

// TurnState is the durable state captured at the start of a chat turn:
// the resolved conversation, the history snapshot taken before the user
// message was inserted, and the committed user message itself.
type TurnState struct {
	Conversation model.Conversation
	History      []model.TurnMessage
	UserMessage  model.Message
}

// BeginChatTurn resolves (or lazily creates) a conversation, snapshots its
// ordered history, and persists the incoming user message — all in one
// transaction committed before the decision layer is invoked. That commit
// is the crash-recovery point: if the decision layer or the process fails
// afterward, the user's input is already durable.
//
// Returns ErrNotFound when conversationID is set but no such conversation
// exists for userID.
func (db *DB) BeginChatTurn(ctx context.Context, userID string, conversationID *int64, content string) (TurnState, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return TurnState{}, fmt.Errorf("storage: begin turn tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var state TurnState

	// 1. Resolve or create the conversation, bumping updated_at either way.
	if conversationID != nil {
		err = tx.QueryRow(ctx,
			`UPDATE conversations SET updated_at = now()
			 WHERE id = $1 AND user_id = $2
			 RETURNING id, user_id, created_at, updated_at`,
			*conversationID, userID,
		).Scan(&state.Conversation.ID, &state.Conversation.UserID,
			&state.Conversation.CreatedAt, &state.Conversation.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return TurnState{}, ErrNotFound
		}
		if err != nil {
			return TurnState{}, fmt.Errorf("storage: resolve conversation: %w", err)
		}
	} else {
		err = tx.QueryRow(ctx,
			`INSERT INTO conversations (user_id) VALUES ($1)
			 RETURNING id, user_id, created_at, updated_at`,
			userID,
		).Scan(&state.Conversation.ID, &state.Conversation.UserID,
			&state.Conversation.CreatedAt, &state.Conversation.UpdatedAt)
		if err != nil {
			return TurnState{}, fmt.Errorf("storage: create conversation: %w", err)
		}
	}

	// 2. Snapshot history before inserting the new user message, so the
	// decision layer receives exactly the prior context.
	rows, err := tx.Query(ctx,
		`SELECT role, content FROM messages
		 WHERE conversation_id = $1
		 ORDER BY created_at ASC, id ASC`,
		state.Conversation.ID,
	)
	if err != nil {
		return TurnState{}, fmt.Errorf("storage: load history: %w", err)
	}
	state.History = []model.TurnMessage{}
	for rows.Next() {
		var m model.TurnMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			rows.Close()
			return TurnState{}, fmt.Errorf("storage: scan history: %w", err)
		}
		state.History = append(state.History, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return TurnState{}, fmt.Errorf("storage: load history: %w", err)
	}

	// 3. Persist the user message inside the same transaction.
	state.UserMessage = model.Message{
		ConversationID: state.Conversation.ID,
		UserID:         userID,
		Role:           model.RoleUser,
		Content:        content,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, user_id, role, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		state.Conversation.ID, userID, string(model.RoleUser), content,
	).Scan(&state.UserMessage.ID, &state.UserMessage.CreatedAt)
	if err != nil {
		return TurnState{}, fmt.Errorf("storage: persist user message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return TurnState{}, fmt.Errorf("storage: commit turn tx: %w", err)
	}
	return state, nil
}
