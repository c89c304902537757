// Package http exposes the encounter service over a JSON API and a
// websocket notification stream.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/louisbranch/initiative/internal/content"
	"github.com/louisbranch/initiative/internal/encounter/service"
	apperrors "github.com/louisbranch/initiative/internal/platform/errors"
)

// Server routes encounter API requests to the service.
type Server struct {
	svc     *service.Service
	hub     *Hub
	library *content.Library
}

// NewServer wires the API around a service. The hub may be nil when no
// websocket stream is wanted; the library may be nil when no content
// directory is configured.
func NewServer(svc *service.Service, hub *Hub, library *content.Library) *Server {
	return &Server{svc: svc, hub: hub, library: library}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/encounters", s.handleCreateEncounter).Methods(http.MethodPost)
	api.HandleFunc("/encounters", s.handleListEncounters).Methods(http.MethodGet)
	api.HandleFunc("/encounters/{id}", s.handleGetEncounter).Methods(http.MethodGet)
	api.HandleFunc("/encounters/{id}", s.handleDeleteEncounter).Methods(http.MethodDelete)

	api.HandleFunc("/encounters/{id}/combatants", s.handleAddCombatant).Methods(http.MethodPost)
	api.HandleFunc("/encounters/{id}/combatants/{combatantId}", s.handleUpdateCombatant).Methods(http.MethodPatch)
	api.HandleFunc("/encounters/{id}/combatants/{combatantId}", s.handleRemoveCombatant).Methods(http.MethodDelete)
	api.HandleFunc("/encounters/{id}/combatants/{combatantId}/hp", s.handleHPDelta).Methods(http.MethodPost)

	api.HandleFunc("/encounters/{id}/start", s.handleStartCombat).Methods(http.MethodPost)
	api.HandleFunc("/encounters/{id}/end", s.handleEndCombat).Methods(http.MethodPost)
	api.HandleFunc("/encounters/{id}/reset", s.handleResetCombat).Methods(http.MethodPost)
	api.HandleFunc("/encounters/{id}/next-turn", s.handleNextTurn).Methods(http.MethodPost)
	api.HandleFunc("/encounters/{id}/prev-turn", s.handlePrevTurn).Methods(http.MethodPost)

	api.HandleFunc("/encounters/{id}/initiative/begin", s.handleBeginInitiative).Methods(http.MethodPost)
	api.HandleFunc("/encounters/{id}/initiative/submit", s.handleSubmitInitiative).Methods(http.MethodPost)
	api.HandleFunc("/encounters/{id}/initiative/commit", s.handleCommitInitiative).Methods(http.MethodPost)
	api.HandleFunc("/encounters/{id}/initiative/cancel", s.handleCancelInitiative).Methods(http.MethodPost)

	api.HandleFunc("/encounters/{id}/prompts", s.handleListPrompts).Methods(http.MethodGet)
	api.HandleFunc("/encounters/{id}/prompts/recharge/{promptId}", s.handleResolveRecharge).Methods(http.MethodPost)
	api.HandleFunc("/encounters/{id}/prompts/concentration/{promptId}", s.handleResolveConcentration).Methods(http.MethodPost)

	api.HandleFunc("/content", s.handleListContent).Methods(http.MethodGet)

	if s.hub != nil {
		r.HandleFunc("/ws/encounters/{id}", func(w http.ResponseWriter, req *http.Request) {
			s.hub.serveWS(w, req, mux.Vars(req)["id"])
		})
	}
	return r
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	var payload errorPayload
	payload.Error.Code = string(apperrors.CodeOf(err))
	payload.Error.Message = err.Error()
	writeJSON(w, apperrors.HTTPStatusOf(err), payload)
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeRequestInvalid, "invalid request body", err))
		return false
	}
	return true
}
