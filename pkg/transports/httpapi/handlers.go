package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/flowlist/pkg/assistant"
	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/errorsx"
	"github.com/harunnryd/flowlist/pkg/llm"
)

const maxBodyBytes = 1 << 20

const labelBadRequest = "Bad Request"

// ChatMessage is one entry of the client-held conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ToMessages converts the client history. Only user and assistant turns are
// accepted from clients.
func (r ChatRequest) ToMessages() ([]llm.Message, error) {
	if len(r.Messages) == 0 {
		return nil, errors.New("messages is required")
	}
	out := make([]llm.Message, 0, len(r.Messages))
	for i, m := range r.Messages {
		role, err := llm.ParseRole(m.Role)
		if err != nil || (role != llm.RoleUser && role != llm.RoleAssistant) {
			return nil, fmt.Errorf("messages[%d]: role must be user or assistant", i)
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"message":   "FlowList AI API is running",
		"timestamp": s.opts.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.responder.Tools()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Stats())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: labelBadRequest, Message: "invalid JSON body"})
		return
	}
	prior, err := req.ToMessages()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: labelBadRequest, Message: err.Error()})
		return
	}

	user := s.identity(r)
	ctx := auth.WithIdentity(r.Context(), user)
	reply, err := s.responder.RespondWithHooks(ctx, prior, user, assistant.Hooks{})
	if err != nil {
		status, body := errorResponse(err)
		s.logger.Warn("http_chat_failed", "user_id", user.UserID, "status", status, "reason_code", string(errorsx.Reason(err)))
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Message: reply.Text})
}

func (s *Server) identity(r *http.Request) auth.Identity {
	id, ok := s.resolver.Resolve(r)
	if !ok {
		return auth.Identity{}
	}
	return id
}

// errorResponse maps a turn error to its status and body. Reasons outside the
// turn-fatal set are reported as internal errors without details.
func errorResponse(err error) (int, ErrorResponse) {
	reason := errorsx.Reason(err)
	body := ErrorResponse{Error: errorsx.Label(reason), Message: err.Error()}
	switch reason {
	case errorsx.ReasonUnauthorized:
		body.Message = ""
		return http.StatusUnauthorized, body
	case errorsx.ReasonConfiguration:
		return http.StatusInternalServerError, body
	case errorsx.ReasonAIService, errorsx.ReasonLLMRateLimit:
		if strings.TrimSpace(body.Message) == "" {
			body.Message = "Failed to get response from AI."
		}
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: errorsx.Label(reason)}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
