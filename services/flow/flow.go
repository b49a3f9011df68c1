package flow

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// StartSessionRequest is the body of POST /threads/{threadId}/sessions.
type StartSessionRequest struct {
	FlowID string `json:"flowId" validate:"required"`
}

// RespondRequest is the body of POST /sessions/{id}/responses.
type RespondRequest struct {
	Response any `json:"response"`
}

// DecisionRequest is the body of POST /threads/{threadId}/decision.
type DecisionRequest struct {
	DamageType     string `json:"damageType" validate:"required,max=64"`
	SelectedItemID string `json:"selectedItemId"`
}

// HandleListFlows returns the active flows of the category given in the query string.
func (s *Service) HandleListFlows(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}

	defs, err := s.catalog.ActiveFlowsByCategory(r.Context(), category)
	if err != nil {
		slog.Error("Failed to list flows", "category", category, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if defs == nil {
		defs = []Definition{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(defs)
}

// HandleGetFlow returns a flow definition.
func (s *Service) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	slog.Debug("Getting flow", "id", id)

	def, err := s.catalog.GetFlow(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get flow", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if def == nil {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(def)
}

// HandleStartSession starts a flow on a thread.
func (s *Service) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadId"]

	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "flowId is required")
		return
	}

	step, err := s.manager.Start(r.Context(), threadID, req.FlowID)
	if err != nil {
		writeManagerError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(step)
}

// HandleGetActiveSession returns the rendered view of the thread's active session.
func (s *Service) HandleGetActiveSession(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadId"]

	sess, err := s.manager.ActiveForThread(r.Context(), threadID)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}

	view, err := s.manager.View(r.Context(), sess.ID)
	if err != nil {
		writeManagerError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(view)
}

// HandleGetSession returns the rendered view of a session.
func (s *Service) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.manager.View(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeManagerError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(view)
}

// HandleRespond submits a response to the session's current node.
func (s *Service) HandleRespond(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	step, err := s.manager.Respond(r.Context(), id, req.Response)
	if err != nil {
		writeManagerError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(step)
}

// HandleRestart rewinds an in-progress session.
func (s *Service) HandleRestart(w http.ResponseWriter, r *http.Request) {
	step, err := s.manager.Restart(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeManagerError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(step)
}

// HandleDecide returns the routing decision and guidance for a damage classification.
func (s *Service) HandleDecide(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadId"]

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "damageType is required")
		return
	}

	rec := s.manager.Recommend(r.Context(), threadID, req.SelectedItemID, req.DamageType)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rec)
}

func writeManagerError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": verr.Message, "nodeId": verr.NodeID})
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrFlowNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSessionCompleted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoStartNode), errors.Is(err, ErrNodeNotFound), errors.Is(err, ErrNoNextStep):
		slog.Error("Flow configuration error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		slog.Error("Flow session operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
