package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibari-ai/hibari/internal/auth"
	"github.com/hibari-ai/hibari/internal/chat"
	"github.com/hibari-ai/hibari/internal/fault"
	"github.com/hibari-ai/hibari/internal/model"
	"github.com/hibari-ai/hibari/internal/storage"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	db       *storage.DB
	chatSvc  *chat.Service
	verifier *auth.Verifier
	logger   *slog.Logger

	version             string
	maxRequestBodyBytes int64
	startTime           time.Time
}

// HandlersDeps are the dependencies for NewHandlers.
type HandlersDeps struct {
	DB                  *storage.DB
	ChatSvc             *chat.Service
	Verifier            *auth.Verifier
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates the handler set.
func NewHandlers(deps HandlersDeps) *Handlers {
	return &Handlers{
		db:                  deps.DB,
		chatSvc:             deps.ChatSvc,
		verifier:            deps.Verifier,
		logger:              deps.Logger,
		version:             deps.Version,
		maxRequestBodyBytes: deps.MaxRequestBodyBytes,
		startTime:           time.Now(),
	}
}

// requireUser authenticates the request against the {user_id} path segment
// and stores the verified user in the context.
func (h *Handlers) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pathUserID := r.PathValue("user_id")
		userID, err := h.verifier.Authenticate(r.Header.Get("Authorization"), pathUserID)
		if err != nil {
			h.logger.Warn("auth failed", "path_user", pathUserID,
				"request_id", RequestIDFromContext(r.Context()), "error", err)
			writeDetail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandleChat handles POST /api/{user_id}/chat.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBodyBytes)

	var req model.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.chatSvc.ProcessTurn(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeFault translates a taxonomy error into an HTTP status and a fixed
// user-safe detail string. Internal detail goes to the log, never the wire.
func (h *Handlers) writeFault(w http.ResponseWriter, r *http.Request, err error) {
	kind := fault.KindOf(err)

	var status int
	var detail string
	switch kind {
	case fault.ValidationError:
		status, detail = http.StatusBadRequest, "message is required"
	case fault.ConversationNotFound:
		status, detail = http.StatusNotFound, "conversation not found"
	case fault.AuthError:
		status, detail = http.StatusUnauthorized, "authentication required"
	default:
		status, detail = http.StatusInternalServerError, "something went wrong"
	}

	if status >= 500 {
		h.logger.Error("request failed", "kind", string(kind),
			"request_id", RequestIDFromContext(r.Context()), "error", err)
	}
	writeDetail(w, status, detail)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{
		Status:  "healthy",
		Service: "hibari",
		Version: h.version,
		Uptime:  int64(time.Since(h.startTime).Seconds()),
	})
}

// HandleReady handles GET /ready. Unlike /health it checks the database,
// so orchestrators stop routing traffic when storage is gone.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Status:   "ready",
		Service:  "hibari",
		Version:  h.version,
		Database: "connected",
	}
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		resp.Status = "degraded"
		resp.Database = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
