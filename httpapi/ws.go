package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/planmesh/planmesh"
	"github.com/planmesh/planmesh/core"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsMaxMessage   = 1 << 20
)

type wsTurnRequest struct {
	AgentType      string `json:"agent_type"`
	OrganizationID int64  `json:"organization_id"`
	Message        string `json:"message"`
	Override       string `json:"override,omitempty"`
}

type wsTurnEvent struct {
	Type    string `json:"type"`
	Reply   string `json:"reply,omitempty"`
	Phase   string `json:"phase,omitempty"`
	Version int64  `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// handleConversationWS runs turns over a long-lived websocket. Each inbound
// text frame is one turn request; each turn yields exactly one outbound
// event. Turns arrive sequentially per connection, matching the
// per-conversation serialization the mesh enforces anyway.
func (s *Server) handleConversationWS(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		var req wsTurnRequest
		if err := parseJSON(data, &req); err != nil {
			s.writeWSEvent(conn, wsTurnEvent{Type: "error", Code: "invalid_client_message", Error: err.Error()})
			continue
		}

		var turnFns []func(o *planmesh.TurnOptions)
		if req.Override != "" {
			turnFns = append(turnFns, planmesh.WithOverride(req.Override))
		}
		res, err := s.mesh.RunTurn(r.Context(), req.AgentType, conversationID, req.OrganizationID, req.Message, turnFns...)
		if err != nil {
			s.writeWSEvent(conn, wsTurnEvent{Type: "error", Code: wsErrorCode(err), Error: err.Error()})
			continue
		}
		s.writeWSEvent(conn, wsTurnEvent{Type: "turn", Reply: res.Reply, Phase: res.Phase, Version: res.Version})
	}
}

func parseJSON(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

func wsErrorCode(err error) string {
	var denied *core.FeatureNotAvailableError
	var unsupported *core.UnsupportedAgentTypeError
	switch {
	case errors.As(err, &denied):
		return "feature_not_available"
	case errors.As(err, &unsupported):
		return "unsupported_agent_type"
	case errors.Is(err, core.ErrConversationNotFound):
		return "conversation_not_found"
	case errors.Is(err, core.ErrVersionConflict), errors.Is(err, core.ErrStateMismatch):
		return "conflict"
	default:
		return "internal_error"
	}
}

func (s *Server) writeWSEvent(conn *websocket.Conn, ev wsTurnEvent) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(ev); err != nil {
		s.logger.Debug("websocket write failed", "error", err)
	}
}
