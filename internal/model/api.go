package model

// ChatRequest is the body of POST /api/{user_id}/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
}

// ToolCallResult summarizes one tool invocation performed during a chat turn.
// Exactly one of Result and Error is set.
type ToolCallResult struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result,omitempty"`
	Error     map[string]any `json:"error,omitempty"`
}

// ChatResponse is the body returned by the chat endpoint.
type ChatResponse struct {
	ConversationID int64            `json:"conversation_id"`
	Response       string           `json:"response"`
	ToolCalls      []ToolCallResult `json:"tool_calls"`
}

// ErrorResponse is the body of a failed chat request. Message is always a
// user-safe sentence; internal detail never appears here.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is the body of GET /health and GET /ready.
type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database,omitempty"`
	Uptime   int64  `json:"uptime_seconds,omitempty"`
}
