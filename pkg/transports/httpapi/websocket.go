package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harunnryd/flowlist/pkg/assistant"
	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/tools"
	"github.com/harunnryd/flowlist/pkg/turn"
)

const (
	EventState      = "state"
	EventToolResult = "tool_result"
	EventMessage    = "message"
	EventError      = "error"

	writeWait = 10 * time.Second
)

// Event is one server-to-client websocket frame.
type Event struct {
	Type       string `json:"type"`
	State      string `json:"state,omitempty"`
	From       string `json:"from,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Status     string `json:"status,omitempty"`
	Payload    any    `json:"payload,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) send(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(ev)
}

// handleWebsocket runs one turn per client frame. The identity is resolved
// once, at the handshake.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	user := s.identity(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	if !s.track(conn) {
		return
	}
	defer s.untrack(conn)
	conn.SetReadLimit(maxBodyBytes)

	sess := &wsSession{conn: conn}
	ctx := auth.WithIdentity(r.Context(), user)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("ws_read_failed", "error", err.Error())
			}
			return
		}
		if err := s.runTurn(ctx, sess, user, raw); err != nil {
			return
		}
	}
}

func (s *Server) runTurn(ctx context.Context, sess *wsSession, user auth.Identity, raw []byte) error {
	var req ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return sess.send(Event{Type: EventError, Error: labelBadRequest, Message: "invalid JSON message"})
	}
	prior, err := req.ToMessages()
	if err != nil {
		return sess.send(Event{Type: EventError, Error: labelBadRequest, Message: err.Error()})
	}

	hooks := assistant.Hooks{
		State: turn.ListenerFunc(func(ev turn.StateChange) {
			_ = sess.send(Event{Type: EventState, State: ev.ToState.String(), From: ev.FromState.String()})
		}),
		ToolResult: func(res tools.Result) {
			_ = sess.send(Event{
				Type:       EventToolResult,
				ToolCallID: res.ToolCallID,
				Name:       res.ToolName,
				Status:     res.Status(),
				Payload:    res.Payload,
			})
		},
	}
	reply, err := s.responder.RespondWithHooks(ctx, prior, user, hooks)
	if err != nil {
		_, body := errorResponse(err)
		return sess.send(Event{Type: EventError, Error: body.Error, Message: body.Message})
	}
	return sess.send(Event{Type: EventMessage, Message: reply.Text})
}
