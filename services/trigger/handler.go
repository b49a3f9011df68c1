package trigger

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var validate = validator.New()

// SuggestRequest is the body of POST /threads/{threadId}/flow-suggestions.
type SuggestRequest struct {
	Tag       string `json:"tag" validate:"required_without=Title"`
	Title     string `json:"title"`
	AutoStart bool   `json:"autoStart"`
}

// LoadRoutes registers the suggestion endpoint on the given router.
func (m *Matcher) LoadRoutes(parentRouter *mux.Router) {
	router := parentRouter.PathPrefix("/threads").Subrouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	})
	router.HandleFunc("/{threadId}/flow-suggestions", m.HandleSuggest).Methods("POST")
}

// HandleSuggest returns the suggested flow for a thread and optionally starts it.
func (m *Matcher) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadId"]

	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "tag or title is required")
		return
	}

	var out *Outcome
	var err error
	if req.AutoStart {
		out, err = m.AutoStart(r.Context(), threadID, req.Tag, req.Title)
	} else {
		var s *Suggestion
		s, err = m.Suggest(r.Context(), req.Tag, req.Title)
		out = &Outcome{Suggestion: s}
	}
	if err != nil {
		slog.Error("Failed to suggest flow", "threadId", threadID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(out)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
