package agent

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/hibari-ai/hibari/internal/config"
	"github.com/hibari-ai/hibari/internal/fault"
	"github.com/hibari-ai/hibari/internal/model"
	"github.com/hibari-ai/hibari/internal/tools"
)

func testOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		OpenAIBaseURL: srv.URL,
		OpenAIAPIKey:  "test-key",
		OpenAIModel:   "gpt-4o-mini",
		AgentTimeout:  5 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOpenAI(cfg, tools.NewRegistry(tools.NewHandler(nil)), logger)
}

func completion(message string) string {
	return `{"choices": [{"message": ` + message + `}]}`
}

func TestProcessMessagePlainReply(t *testing.T) {
	var captured []byte
	o := testOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		io.WriteString(w, completion(`{"role": "assistant", "content": "Hello! How can I help with your tasks?"}`))
	})

	history := []model.TurnMessage{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	}
	result, err := o.ProcessMessage(context.Background(), "u1", "what can you do?", history)
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help with your tasks?", result.Response)
	assert.Empty(t, result.ToolCalls)

	// The request carries the system prompt, the history, the new message,
	// and all five tool schemas.
	req := gjson.ParseBytes(captured)
	msgs := req.Get("messages").Array()
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Get("role").String())
	assert.Equal(t, "what can you do?", msgs[3].Get("content").String())
	assert.Len(t, req.Get("tools").Array(), 5)
}

func TestProcessMessageToolRound(t *testing.T) {
	var requests [][]byte
	o := testOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, body)
		if len(requests) == 1 {
			io.WriteString(w, completion(`{
				"role": "assistant",
				"content": null,
				"tool_calls": [{
					"id": "call_1",
					"type": "function",
					"function": {"name": "add_task", "arguments": "{\"user_id\": \"spoofed\", \"title\": \"\"}"}
				}]
			}`))
			return
		}
		io.WriteString(w, completion(`{"role": "assistant", "content": "That title didn't work, could you try another?"}`))
	})

	result, err := o.ProcessMessage(context.Background(), "real-user", "add a task", nil)
	require.NoError(t, err)
	assert.Equal(t, "That title didn't work, could you try another?", result.Response)

	require.Len(t, result.ToolCalls, 1)
	call := result.ToolCalls[0]
	assert.Equal(t, "add_task", call.Tool)
	// The authenticated user wins over whatever the model claimed.
	assert.Equal(t, "real-user", call.Arguments["user_id"])
	require.NotNil(t, call.Error)
	assert.Nil(t, call.Result)

	// The second request feeds the tool outcome back under the call ID.
	require.Len(t, requests, 2)
	second := gjson.ParseBytes(requests[1])
	msgs := second.Get("messages").Array()
	last := msgs[len(msgs)-1]
	assert.Equal(t, "tool", last.Get("role").String())
	assert.Equal(t, "call_1", last.Get("tool_call_id").String())
}

func TestProcessMessageAPIFailure(t *testing.T) {
	o := testOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": {"message": "upstream on fire"}}`)
	})

	_, err := o.ProcessMessage(context.Background(), "u1", "hello", nil)
	require.Error(t, err)
	assert.Equal(t, fault.DecisionLayerError, fault.KindOf(err))
}

func TestProcessMessageToolLoopBounded(t *testing.T) {
	calls := 0
	o := testOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, completion(`{
			"role": "assistant",
			"content": null,
			"tool_calls": [{
				"id": "call_x",
				"type": "function",
				"function": {"name": "imaginary_tool", "arguments": "{}"}
			}]
		}`))
	})

	_, err := o.ProcessMessage(context.Background(), "u1", "loop forever", nil)
	require.Error(t, err)
	assert.Equal(t, fault.DecisionLayerError, fault.KindOf(err))
	assert.Equal(t, maxToolRounds, calls)
}

func TestProcessMessageEmptyReplyFallsBack(t *testing.T) {
	o := testOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completion(`{"role": "assistant", "content": ""}`))
	})

	result, err := o.ProcessMessage(context.Background(), "u1", "hm", nil)
	require.NoError(t, err)
	assert.Equal(t, fault.UserMessage(fault.DecisionLayerError), result.Response)
}

func TestNoopProvider(t *testing.T) {
	n := NewNoop()
	result, err := n.ProcessMessage(context.Background(), "u1", "add milk", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Response)
	assert.Empty(t, result.ToolCalls)
}

func TestNewSelectsProvider(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := tools.NewRegistry(tools.NewHandler(nil))

	a := New(config.Config{AgentProvider: "auto"}, registry, logger)
	assert.IsType(t, &Noop{}, a)

	a = New(config.Config{AgentProvider: "auto", OpenAIAPIKey: "k"}, registry, logger)
	assert.IsType(t, &OpenAI{}, a)

	a = New(config.Config{AgentProvider: "noop", OpenAIAPIKey: "k"}, registry, logger)
	assert.IsType(t, &Noop{}, a)
}

// Ensure the wire type for a successful tool call marshals with the result
// inline, since the chat endpoint returns these records verbatim.
func TestToolCallResultShape(t *testing.T) {
	record := model.ToolCallResult{
		Tool:      "add_task",
		Arguments: map[string]any{"user_id": "u1", "title": "x"},
		Result:    tools.ActionResult{ID: 3, Status: "created", Title: "x"},
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)
	parsed := gjson.ParseBytes(data)
	assert.Equal(t, int64(3), parsed.Get("result.id").Int())
	assert.False(t, parsed.Get("error").Exists())
}
