package escalation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var validate = validator.New()

// AcknowledgeRequest is the body of POST /escalations/{id}/acknowledge.
type AcknowledgeRequest struct {
	AgentID string `json:"agentId" validate:"required"`
}

// ResolveRequest is the body of POST /escalations/{id}/resolve.
type ResolveRequest struct {
	AgentID string `json:"agentId" validate:"required"`
	Notes   string `json:"notes" validate:"max=4000"`
}

// HandleListEscalations returns every escalation recorded for a thread.
func (s *Service) HandleListEscalations(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadId"]

	recs, err := s.ListForThread(r.Context(), threadID)
	if err != nil {
		slog.Error("Failed to list escalations", "threadId", threadID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if recs == nil {
		recs = []Record{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(recs)
}

// HandleAcknowledge moves an escalation to acknowledged.
func (s *Service) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "agentId is required")
		return
	}

	rec, err := s.Acknowledge(r.Context(), id, req.AgentID)
	if err != nil {
		writeTransitionError(w, id, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rec)
}

// HandleResolve closes an escalation.
func (s *Service) HandleResolve(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.Resolve(r.Context(), id, req.AgentID, req.Notes)
	if err != nil {
		writeTransitionError(w, id, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rec)
}

func writeTransitionError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "escalation not found")
	case errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Failed to update escalation", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// jsonMiddleware sets the Content-Type header to application/json.
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
