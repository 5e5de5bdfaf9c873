// Package agent is the decision layer of the chat service.
//
// An Agent turns a user message plus conversation history into a reply,
// invoking task tools through the registry along the way. The agent never
// touches storage directly; every task effect goes through tool dispatch
// so owner isolation is enforced in exactly one place.
package agent

import (
	"context"
	"log/slog"

	"github.com/hibari-ai/hibari/internal/config"
	"github.com/hibari-ai/hibari/internal/model"
	"github.com/hibari-ai/hibari/internal/tools"
)

// Result is the outcome of one decision-layer invocation.
type Result struct {
	Response  string
	ToolCalls []model.ToolCallResult
}

// Agent decides how to respond to a user message.
type Agent interface {
	// ProcessMessage generates a reply for the user's message given the
	// prior conversation. History is ordered oldest first and does not
	// include the message being processed.
	ProcessMessage(ctx context.Context, userID, message string, history []model.TurnMessage) (Result, error)
}

// New selects a provider from configuration. In auto mode an OpenAI key
// enables the real provider; without one the service still runs, answering
// with the noop provider.
func New(cfg config.Config, registry *tools.Registry, logger *slog.Logger) Agent {
	provider := cfg.AgentProvider
	if provider == "auto" {
		if cfg.OpenAIAPIKey != "" {
			provider = "openai"
		} else {
			provider = "noop"
		}
	}

	switch provider {
	case "openai":
		logger.Info("agent: using openai provider", "model", cfg.OpenAIModel)
		return NewOpenAI(cfg, registry, logger)
	default:
		logger.Warn("agent: using noop provider, tool execution via chat is disabled")
		return NewNoop()
	}
}
