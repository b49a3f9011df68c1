package flow

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var validate = validator.New()

// Service exposes the flow catalog and session manager over HTTP.
type Service struct {
	catalog Catalog
	manager *Manager
}

// NewService creates a Service over the given catalog and manager.
func NewService(catalog Catalog, manager *Manager) *Service {
	return &Service{catalog: catalog, manager: manager}
}

// Manager returns the session manager used by the service.
func (s *Service) Manager() *Manager {
	return s.manager
}

// jsonMiddleware sets the Content-Type header to application/json.
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// LoadRoutes registers flow and session HTTP handlers on the given router.
func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	flows := parentRouter.PathPrefix("/flows").Subrouter()
	flows.StrictSlash(false)
	flows.Use(jsonMiddleware)
	flows.HandleFunc("", s.HandleListFlows).Methods("GET")
	flows.HandleFunc("/{id}", s.HandleGetFlow).Methods("GET")

	threads := parentRouter.PathPrefix("/threads").Subrouter()
	threads.Use(jsonMiddleware)
	threads.HandleFunc("/{threadId}/sessions", s.HandleStartSession).Methods("POST")
	threads.HandleFunc("/{threadId}/session", s.HandleGetActiveSession).Methods("GET")
	threads.HandleFunc("/{threadId}/decision", s.HandleDecide).Methods("POST")

	sessions := parentRouter.PathPrefix("/sessions").Subrouter()
	sessions.Use(jsonMiddleware)
	sessions.HandleFunc("/{id}", s.HandleGetSession).Methods("GET")
	sessions.HandleFunc("/{id}/responses", s.HandleRespond).Methods("POST")
	sessions.HandleFunc("/{id}/restart", s.HandleRestart).Methods("POST")
}
