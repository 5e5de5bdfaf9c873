// Package chat orchestrates one stateless conversation turn.
//
// All turn state lives in the database. The user message is committed
// before the decision layer runs, so a crash mid-turn loses the reply but
// never the message; the next request rebuilds context entirely from
// storage.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibari-ai/hibari/internal/agent"
	"github.com/hibari-ai/hibari/internal/fault"
	"github.com/hibari-ai/hibari/internal/model"
	"github.com/hibari-ai/hibari/internal/storage"
)

// Service runs chat turns over storage and the decision layer.
type Service struct {
	db     *storage.DB
	agent  agent.Agent
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(db *storage.DB, a agent.Agent, logger *slog.Logger) *Service {
	return &Service{db: db, agent: a, logger: logger}
}

// ProcessTurn handles one user message: resolve the conversation, persist
// the message, run the decision layer, persist the reply.
func (s *Service) ProcessTurn(ctx context.Context, userID string, req model.ChatRequest) (model.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return model.ChatResponse{}, fault.New(fault.ValidationError, "message is required")
	}

	turn, err := s.db.BeginChatTurn(ctx, userID, req.ConversationID, message)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return model.ChatResponse{}, fault.New(fault.ConversationNotFound, "conversation %v not found", *req.ConversationID)
	case err != nil:
		return model.ChatResponse{}, fault.Wrap(fault.DatabaseError, err, "begin chat turn")
	}

	// The user message is already durable; a decision-layer failure
	// degrades to an apology rather than losing the turn.
	result, err := s.agent.ProcessMessage(ctx, userID, message, turn.History)
	if err != nil {
		kind := fault.KindOf(err)
		s.logger.Error("chat: decision layer failed", "user_id", userID,
			"conversation_id", turn.Conversation.ID, "kind", string(kind), "error", err)
		result = agent.Result{Response: fault.UserMessage(kind)}
	}

	if _, err := s.db.AppendMessage(ctx, turn.Conversation.ID, userID, model.RoleAssistant, result.Response); err != nil {
		return model.ChatResponse{}, fault.Wrap(fault.DatabaseError, err, "persist assistant message")
	}
	if err := s.db.TouchConversation(ctx, userID, turn.Conversation.ID); err != nil {
		s.logger.Warn("chat: touch conversation", "conversation_id", turn.Conversation.ID, "error", err)
	}

	toolCalls := result.ToolCalls
	if toolCalls == nil {
		toolCalls = []model.ToolCallResult{}
	}
	return model.ChatResponse{
		ConversationID: turn.Conversation.ID,
		Response:       result.Response,
		ToolCalls:      toolCalls,
	}, nil
}
