package agent

import (
	"context"

	"github.com/hibari-ai/hibari/internal/model"
)

// noopReply is returned for every message when no model is configured.
const noopReply = "I'm running without a language model right now, so I can't act on that. " +
	"An operator needs to configure a decision-layer provider before I can manage tasks."

// Noop is the provider used when no model is configured. It keeps the chat
// endpoint functional (messages are still persisted) without calling out
// anywhere.
type Noop struct{}

// NewNoop creates the no-op provider.
func NewNoop() *Noop { return &Noop{} }

// ProcessMessage returns a fixed reply and performs no tool calls.
func (n *Noop) ProcessMessage(ctx context.Context, userID, message string, history []model.TurnMessage) (Result, error) {
	return Result{Response: noopReply}, nil
}
