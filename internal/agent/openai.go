package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/hibari-ai/hibari/internal/config"
	"github.com/hibari-ai/hibari/internal/fault"
	"github.com/hibari-ai/hibari/internal/model"
	"github.com/hibari-ai/hibari/internal/tools"
)

// maxToolRounds bounds the tool-use loop for a single turn. A model that
// keeps requesting tools past this is looping, not working.
const maxToolRounds = 5

// OpenAI drives the chat-completions API with the task tools attached.
type OpenAI struct {
	baseURL  string
	apiKey   string
	model    string
	registry *tools.Registry
	httpc    *http.Client
	logger   *slog.Logger
}

// NewOpenAI creates the OpenAI-backed provider.
func NewOpenAI(cfg config.Config, registry *tools.Registry, logger *slog.Logger) *OpenAI {
	return &OpenAI{
		baseURL:  cfg.OpenAIBaseURL,
		apiKey:   cfg.OpenAIAPIKey,
		model:    cfg.OpenAIModel,
		registry: registry,
		httpc:    &http.Client{Timeout: cfg.AgentTimeout},
		logger:   logger,
	}
}

// ProcessMessage runs the tool-use loop: ask the model, execute any tool
// calls it requests through the registry, feed the results back, and stop
// when it produces a plain reply.
func (o *OpenAI) ProcessMessage(ctx context.Context, userID, message string, history []model.TurnMessage) (Result, error) {
	messages := make([]any, 0, len(history)+2)
	messages = append(messages, map[string]any{
		"role":    "system",
		"content": systemPrompt + "\n\nThe current user's ID is " + userID + ". Pass it as user_id on every tool call.",
	})
	for _, m := range history {
		messages = append(messages, map[string]any{"role": string(m.Role), "content": m.Content})
	}
	messages = append(messages, map[string]any{"role": "user", "content": message})

	toolDefs := o.toolDefinitions()
	var calls []model.ToolCallResult

	for round := 0; round < maxToolRounds; round++ {
		msg, err := o.complete(ctx, messages, toolDefs)
		if err != nil {
			return Result{}, err
		}

		toolCalls := msg.Get("tool_calls")
		if !toolCalls.Exists() || len(toolCalls.Array()) == 0 {
			reply := msg.Get("content").String()
			if reply == "" {
				reply = fault.UserMessage(fault.DecisionLayerError)
			}
			return Result{Response: reply, ToolCalls: calls}, nil
		}

		// Echo the assistant turn back verbatim so the tool results can
		// reference its call IDs.
		messages = append(messages, json.RawMessage(msg.Raw))

		for _, tc := range toolCalls.Array() {
			callID := tc.Get("id").String()
			name := tc.Get("function.name").String()

			args := map[string]any{}
			if raw := tc.Get("function.arguments").String(); raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					o.logger.Warn("agent: undecodable tool arguments", "tool", name, "error", err)
					args = map[string]any{}
				}
			}
			// The model's claimed user never overrides the authenticated one.
			args["user_id"] = userID

			record, content := o.executeTool(ctx, name, args)
			calls = append(calls, record)
			messages = append(messages, map[string]any{
				"role":         "tool",
				"tool_call_id": callID,
				"content":      content,
			})
		}
	}

	return Result{}, fault.New(fault.DecisionLayerError, "tool loop did not converge after %d rounds", maxToolRounds)
}

// executeTool dispatches one requested call and renders its outcome both
// as a ToolCallResult for the API response and as the text fed back to
// the model.
func (o *OpenAI) executeTool(ctx context.Context, name string, args map[string]any) (model.ToolCallResult, string) {
	record := model.ToolCallResult{Tool: name, Arguments: args}

	result, err := o.registry.Dispatch(ctx, name, args)
	if err != nil {
		kind := fault.KindOf(err)
		o.logger.Warn("agent: tool call failed", "tool", name, "kind", string(kind), "error", err)
		record.Error = map[string]any{
			"kind":    string(kind),
			"message": fault.UserMessage(kind),
		}
		data, _ := json.Marshal(record.Error)
		return record, string(data)
	}

	record.Result = result
	data, err := json.Marshal(result)
	if err != nil {
		return record, `{"status": "ok"}`
	}
	return record, string(data)
}

// complete performs one chat-completions request and returns the first
// choice's message.
func (o *OpenAI) complete(ctx context.Context, messages []any, toolDefs []map[string]any) (gjson.Result, error) {
	payload, err := json.Marshal(map[string]any{
		"model":    o.model,
		"messages": messages,
		"tools":    toolDefs,
	})
	if err != nil {
		return gjson.Result{}, fault.Wrap(fault.DecisionLayerError, err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, fault.Wrap(fault.DecisionLayerError, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpc.Do(req)
	if err != nil {
		return gjson.Result{}, fault.Wrap(fault.DecisionLayerError, err, "chat completions request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return gjson.Result{}, fault.Wrap(fault.DecisionLayerError, err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := gjson.GetBytes(body, "error.message").String()
		return gjson.Result{}, fault.New(fault.DecisionLayerError,
			"chat completions status %d: %s", resp.StatusCode, firstN(apiErr, 200))
	}

	msg := gjson.GetBytes(body, "choices.0.message")
	if !msg.Exists() {
		return gjson.Result{}, fault.New(fault.DecisionLayerError, "response has no choices")
	}
	return msg, nil
}

// toolDefinitions renders the registry's schemas in the function-calling
// shape the API expects.
func (o *OpenAI) toolDefinitions() []map[string]any {
	published := o.registry.Tools()
	defs := make([]map[string]any, 0, len(published))
	for _, t := range published {
		defs = append(defs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.InputSchema,
			},
		})
	}
	return defs
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
