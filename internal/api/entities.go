package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-airzone/internal/auth"
	"github.com/nerrad567/gray-logic-airzone/internal/bridges/azcloud"
	"github.com/nerrad567/gray-logic-airzone/internal/climate"
)

// entityResponse is the JSON representation of a climate entity.
type entityResponse struct {
	EntityID string         `json:"entity_id"`
	Name     string         `json:"name"`
	Kind     string         `json:"kind"`
	Modes    []string       `json:"modes"`
	State    map[string]any `json:"state"`
}

// commandRequest is the request body for POST /entities/{id}/command.
type commandRequest struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// commandResponse is the response body for an accepted command.
type commandResponse struct {
	CommandID string `json:"command_id"`
	EntityID  string `json:"entity_id"`
	Status    string `json:"status"`
}

// toEntityResponse builds the API representation of an entity.
func (s *Server) toEntityResponse(e climate.Entity) entityResponse {
	modes := make([]string, 0, len(e.Modes()))
	for _, m := range e.Modes() {
		modes = append(modes, string(m))
	}
	return entityResponse{
		EntityID: e.ID(),
		Name:     e.Name(),
		Kind:     string(e.Kind()),
		Modes:    modes,
		State:    s.stateOf(e),
	}
}

// handleListEntities returns all enumerated climate entities.
func (s *Server) handleListEntities(w http.ResponseWriter, _ *http.Request) {
	entities := s.entityList()
	out := make([]entityResponse, 0, len(entities))
	for _, e := range entities {
		out = append(out, s.toEntityResponse(e))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": out,
		"count":    len(out),
	})
}

// handleGetEntity returns a single climate entity.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entity, ok := s.entity(id)
	if !ok {
		writeNotFound(w, "entity not found: "+id)
		return
	}

	writeJSON(w, http.StatusOK, s.toEntityResponse(entity))
}

// handleGetEntityState returns the current state of an entity.
func (s *Server) handleGetEntityState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entity, ok := s.entity(id)
	if !ok {
		writeNotFound(w, "entity not found: "+id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": id,
		"state":     s.stateOf(entity),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleGetEntityHistory returns recent state snapshots for an entity.
func (s *Server) handleGetEntityHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.entity(id); !ok {
		writeNotFound(w, "entity not found: "+id)
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnsupported, "state history is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := s.history.GetHistory(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("failed to query state history", "entity", id, "error", err)
		writeInternalError(w, "failed to query state history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": id,
		"entries":   entries,
		"count":     len(entries),
	})
}

// handleEntityCommand publishes a climate command for the bridge to execute.
//
// Commands flow through MQTT rather than calling the vendor directly, so
// API-issued and Core-issued commands share one execution and ack path.
func (s *Server) handleEntityCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.entity(id); !ok {
		writeNotFound(w, "entity not found: "+id)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	if s.mqtt == nil || !s.mqtt.IsConnected() {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnsupported, "MQTT is not connected")
		return
	}

	cmd := azcloud.CommandMessage{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		EntityID:   id,
		Command:    req.Command,
		Parameters: req.Parameters,
		Source:     "api",
	}
	if claims, ok := r.Context().Value(ctxKeyClaims).(*auth.CustomClaims); ok {
		cmd.UserID = claims.Subject
	}

	payload, err := json.Marshal(&cmd)
	if err != nil {
		writeInternalError(w, "failed to encode command")
		return
	}

	if err := s.mqtt.Publish(azcloud.CommandTopic(id), payload, 1, false); err != nil {
		s.logger.Error("failed to publish command", "entity", id, "error", err)
		writeInternalError(w, "failed to publish command")
		return
	}

	writeJSON(w, http.StatusAccepted, commandResponse{
		CommandID: cmd.ID,
		EntityID:  id,
		Status:    "accepted",
	})
}
