// Package rpc implements the JSON-RPC 2.0 tool-execution endpoint.
//
// The endpoint speaks the initialize / tools/list / tools/call subset of
// the protocol over plain HTTP POST. Tool schemas and error codes come
// from mcp-go; dispatch goes through the tool registry, so the endpoint
// itself carries no task semantics.
package rpc

import (
	"encoding/json"
	"log/slog"
	"net/http"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/hibari-ai/hibari/internal/fault"
	"github.com/hibari-ai/hibari/internal/tools"
)

// Version is reported in the initialize response.
const Version = "0.1.0"

// serverName identifies this endpoint to connecting clients.
const serverName = "hibari-mcp"

// request is an incoming JSON-RPC 2.0 request. The ID is kept raw so it
// echoes back byte-for-byte regardless of its JSON type.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Handler serves the protocol endpoint over a tool registry.
type Handler struct {
	registry *tools.Registry
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(registry *tools.Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// ServeRPC handles a single JSON-RPC request. Malformed JSON is the only
// case that changes the HTTP status; every other outcome is a 200 with a
// JSON-RPC result or error object.
func (h *Handler) ServeRPC(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("rpc: malformed request", "error", err)
		writeResponse(w, http.StatusBadRequest, response{
			JSONRPC: "2.0",
			ID:      json.RawMessage("null"),
			Error:   &rpcError{Code: mcplib.PARSE_ERROR, Message: "Parse error"},
		})
		return
	}

	if len(req.ID) == 0 {
		req.ID = json.RawMessage("null")
	}

	resp := response{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = h.initializeResult()

	case "tools/list":
		resp.Result = map[string]any{"tools": h.registry.Tools()}

	case "tools/call":
		result, rpcErr := h.callTool(r, req.Params)
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			resp.Result = result
		}

	default:
		resp.Error = &rpcError{
			Code:    mcplib.METHOD_NOT_FOUND,
			Message: "Method not found: " + req.Method,
		}
	}

	writeResponse(w, http.StatusOK, resp)
}

// Health handles GET on the endpoint's health path.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": serverName,
		"tools":   len(h.registry.Tools()),
	})
}

func (h *Handler) initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": mcplib.LATEST_PROTOCOL_VERSION,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": Version,
		},
	}
}

// callTool executes tools/call. Argument and state problems surface as
// invalid-params errors with the fault's message; everything else is an
// opaque internal error.
func (h *Handler) callTool(r *http.Request, params json.RawMessage) (*mcplib.CallToolResult, *rpcError) {
	var p callParams
	if err := json.Unmarshal(params, &p); err != nil || p.Name == "" {
		return nil, &rpcError{Code: mcplib.INVALID_PARAMS, Message: "Invalid params: tool name is required"}
	}

	result, err := h.registry.Dispatch(r.Context(), p.Name, p.Arguments)
	if err != nil {
		kind := fault.KindOf(err)
		if fault.IsValidation(kind) {
			return nil, &rpcError{Code: mcplib.INVALID_PARAMS, Message: err.Error()}
		}
		h.logger.Error("rpc: tool call failed", "tool", p.Name, "kind", string(kind), "error", err)
		return nil, &rpcError{Code: mcplib.INTERNAL_ERROR, Message: "Internal error"}
	}

	data, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("rpc: marshal tool result", "tool", p.Name, "error", err)
		return nil, &rpcError{Code: mcplib.INTERNAL_ERROR, Message: "Internal error"}
	}

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func writeResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
