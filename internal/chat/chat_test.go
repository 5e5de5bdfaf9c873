package chat_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibari-ai/hibari/internal/agent"
	"github.com/hibari-ai/hibari/internal/chat"
	"github.com/hibari-ai/hibari/internal/fault"
	"github.com/hibari-ai/hibari/internal/model"
	"github.com/hibari-ai/hibari/internal/storage"
	"github.com/hibari-ai/hibari/internal/testutil"
)

var testDB *storage.DB

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db, err := tc.NewTestDB(context.Background(), logger)
	if err != nil {
		tc.Terminate()
		os.Exit(1)
	}
	testDB = db

	code := m.Run()

	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

// scriptedAgent returns a fixed result and records what it was given.
type scriptedAgent struct {
	result      agent.Result
	err         error
	gotUserID   string
	gotMessage  string
	gotHistory  []model.TurnMessage
	invocations int
}

func (a *scriptedAgent) ProcessMessage(ctx context.Context, userID, message string, history []model.TurnMessage) (agent.Result, error) {
	a.invocations++
	a.gotUserID = userID
	a.gotMessage = message
	a.gotHistory = history
	return a.result, a.err
}

func newService(a agent.Agent) *chat.Service {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return chat.NewService(testDB, a, logger)
}

func TestProcessTurnRejectsBlankMessage(t *testing.T) {
	a := &scriptedAgent{}
	svc := newService(a)

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := svc.ProcessTurn(context.Background(), "u1", model.ChatRequest{Message: msg})
		assert.Equal(t, fault.ValidationError, fault.KindOf(err))
	}
	assert.Zero(t, a.invocations)
}

func TestProcessTurnNewConversation(t *testing.T) {
	a := &scriptedAgent{result: agent.Result{Response: "Done! Added it."}}
	svc := newService(a)

	resp, err := svc.ProcessTurn(context.Background(), "chat-u1", model.ChatRequest{Message: "  add buy milk  "})
	require.NoError(t, err)
	assert.NotZero(t, resp.ConversationID)
	assert.Equal(t, "Done! Added it.", resp.Response)
	assert.NotNil(t, resp.ToolCalls)
	assert.Empty(t, resp.ToolCalls)

	// The agent saw the trimmed message and an empty history.
	assert.Equal(t, "chat-u1", a.gotUserID)
	assert.Equal(t, "add buy milk", a.gotMessage)
	assert.Empty(t, a.gotHistory)

	// Both sides of the turn are persisted in order.
	msgs, err := testDB.ListMessages(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "add buy milk", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Done! Added it.", msgs[1].Content)
}

func TestProcessTurnContinuesConversation(t *testing.T) {
	a := &scriptedAgent{result: agent.Result{Response: "first reply"}}
	svc := newService(a)
	ctx := context.Background()

	resp, err := svc.ProcessTurn(ctx, "chat-u2", model.ChatRequest{Message: "turn one"})
	require.NoError(t, err)

	a.result = agent.Result{Response: "second reply"}
	resp2, err := svc.ProcessTurn(ctx, "chat-u2", model.ChatRequest{
		Message:        "turn two",
		ConversationID: &resp.ConversationID,
	})
	require.NoError(t, err)
	assert.Equal(t, resp.ConversationID, resp2.ConversationID)

	// The second turn's history is the first exchange, not the new message.
	require.Len(t, a.gotHistory, 2)
	assert.Equal(t, "turn one", a.gotHistory[0].Content)
	assert.Equal(t, "first reply", a.gotHistory[1].Content)

	msgs, err := testDB.ListMessages(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestProcessTurnUnknownConversation(t *testing.T) {
	svc := newService(&scriptedAgent{})

	missing := int64(424242)
	_, err := svc.ProcessTurn(context.Background(), "chat-u3", model.ChatRequest{
		Message:        "hello?",
		ConversationID: &missing,
	})
	assert.Equal(t, fault.ConversationNotFound, fault.KindOf(err))
}

func TestProcessTurnForeignConversation(t *testing.T) {
	a := &scriptedAgent{result: agent.Result{Response: "mine"}}
	svc := newService(a)
	ctx := context.Background()

	resp, err := svc.ProcessTurn(ctx, "chat-owner", model.ChatRequest{Message: "private"})
	require.NoError(t, err)

	_, err = svc.ProcessTurn(ctx, "chat-intruder", model.ChatRequest{
		Message:        "let me in",
		ConversationID: &resp.ConversationID,
	})
	assert.Equal(t, fault.ConversationNotFound, fault.KindOf(err))
}

func TestProcessTurnAgentFailureDegradesToApology(t *testing.T) {
	a := &scriptedAgent{err: fault.New(fault.DecisionLayerError, "model unreachable")}
	svc := newService(a)

	resp, err := svc.ProcessTurn(context.Background(), "chat-u4", model.ChatRequest{Message: "add a task"})
	require.NoError(t, err)
	assert.Equal(t, fault.UserMessage(fault.DecisionLayerError), resp.Response)

	// The user message and the apology are both durable.
	msgs, err := testDB.ListMessages(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "add a task", msgs[0].Content)
	assert.Equal(t, resp.Response, msgs[1].Content)
}

func TestProcessTurnAgentFailureNeverLeaksDetail(t *testing.T) {
	cause := errors.New("connection refused to 10.0.0.5:443")
	a := &scriptedAgent{err: fault.Wrap(fault.DecisionLayerError, cause, "chat completions request")}
	svc := newService(a)

	resp, err := svc.ProcessTurn(context.Background(), "chat-u5", model.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.NotContains(t, resp.Response, "10.0.0.5")
	assert.NotContains(t, resp.Response, "connection refused")
}

func TestProcessTurnPropagatesToolCalls(t *testing.T) {
	a := &scriptedAgent{result: agent.Result{
		Response: "✅ Task 'buy milk' has been successfully added.",
		ToolCalls: []model.ToolCallResult{{
			Tool:      "add_task",
			Arguments: map[string]any{"user_id": "chat-u6", "title": "buy milk"},
			Result:    map[string]any{"id": 1, "status": "created", "title": "buy milk"},
		}},
	}}
	svc := newService(a)

	resp, err := svc.ProcessTurn(context.Background(), "chat-u6", model.ChatRequest{Message: "add buy milk"})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "add_task", resp.ToolCalls[0].Tool)
}
