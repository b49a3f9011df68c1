package escalation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(svc *Service) *mux.Router {
	router := mux.NewRouter()
	svc.LoadRoutes(router)
	return router
}

func TestHandleListEscalations(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.Trigger(context.Background(), Request{ThreadID: "thread-1", EscalationType: TypeCarrierIssue})
	require.NoError(t, err)
	router := setupRouter(svc)

	req := httptest.NewRequest("GET", "/threads/thread-1/escalations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body []Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, TypeCarrierIssue, body[0].EscalationType)

	req = httptest.NewRequest("GET", "/threads/other/escalations", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleAcknowledgeAndResolve(t *testing.T) {
	svc := newTestService(nil)
	created, err := svc.Trigger(context.Background(), Request{ThreadID: "thread-1"})
	require.NoError(t, err)
	router := setupRouter(svc)

	req := httptest.NewRequest("POST", "/escalations/"+created.ID+"/acknowledge", strings.NewReader(`{"agentId":"agent-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusAcknowledged, body.Status)

	req = httptest.NewRequest("POST", "/escalations/"+created.ID+"/acknowledge", strings.NewReader(`{"agentId":"agent-1"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	req = httptest.NewRequest("POST", "/escalations/"+created.ID+"/resolve", strings.NewReader(`{"agentId":"agent-1","notes":"done"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusResolved, body.Status)
	assert.Equal(t, "done", body.ResolutionNotes)
}

func TestHandleAcknowledge_BadRequests(t *testing.T) {
	router := setupRouter(newTestService(nil))

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"invalid json", "/escalations/x/acknowledge", `{`, http.StatusBadRequest},
		{"missing agent", "/escalations/x/acknowledge", `{}`, http.StatusBadRequest},
		{"unknown escalation", "/escalations/x/acknowledge", `{"agentId":"a"}`, http.StatusNotFound},
		{"unknown resolve", "/escalations/x/resolve", `{"agentId":"a"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body["message"])
		})
	}
}
