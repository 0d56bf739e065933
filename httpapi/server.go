// Package httpapi exposes the planning mesh over REST and WebSocket.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/planmesh/planmesh"
	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/logging"
	"github.com/planmesh/planmesh/observability"
)

type Server struct {
	mesh     *planmesh.PlanMesh
	logger   logging.Logger
	upgrader websocket.Upgrader
}

// Options configures the HTTP server.
type Options struct {
	// AllowAnyOrigin disables the same-host origin check on websocket
	// upgrades. Leave false outside local development.
	AllowAnyOrigin bool
	Logger         logging.Logger
}

func New(mesh *planmesh.PlanMesh, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{
		mesh:   mesh,
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the
				// serving host unless explicitly opened up.
				if opts.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/agents", s.handleListAgents)
	r.Post("/v1/agents/{type}/conversations/{id}/turns", s.handleRunTurn)
	r.Get("/v1/conversations/{id}/transcript", s.handleTranscript)
	r.Get("/v1/conversations/{id}/memory", s.handleMemorySummary)
	r.Delete("/v1/conversations/{id}", s.handleDeleteConversation)
	r.Get("/v1/conversations/{id}/ws", s.handleConversationWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	types := s.mesh.AgentTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	respondJSON(w, http.StatusOK, map[string]any{"agent_types": names})
}

type turnRequest struct {
	OrganizationID int64  `json:"organization_id"`
	Message        string `json:"message"`
	Override       string `json:"override,omitempty"`
}

type turnResponse struct {
	Reply   string `json:"reply"`
	Phase   string `json:"phase"`
	Version int64  `json:"version"`
}

func (s *Server) handleRunTurn(w http.ResponseWriter, r *http.Request) {
	agentType := chi.URLParam(r, "type")
	conversationID := chi.URLParam(r, "id")

	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.OrganizationID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "organization_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	var turnFns []func(o *planmesh.TurnOptions)
	if req.Override != "" {
		turnFns = append(turnFns, planmesh.WithOverride(req.Override))
	}
	res, err := s.mesh.RunTurn(r.Context(), agentType, conversationID, req.OrganizationID, req.Message, turnFns...)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, turnResponse{Reply: res.Reply, Phase: res.Phase, Version: res.Version})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	transcript, err := s.mesh.Transcript(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": transcript})
}

func (s *Server) handleMemorySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.mesh.ContextSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.mesh.DeleteConversation(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	var denied *core.FeatureNotAvailableError
	var unsupported *core.UnsupportedAgentTypeError
	switch {
	case errors.As(err, &denied):
		respondError(w, http.StatusForbidden, "feature_not_available", err.Error())
	case errors.As(err, &unsupported):
		respondError(w, http.StatusBadRequest, "unsupported_agent_type", err.Error())
	case errors.Is(err, core.ErrConversationNotFound):
		respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
	case errors.Is(err, core.ErrVersionConflict), errors.Is(err, core.ErrStateMismatch):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
