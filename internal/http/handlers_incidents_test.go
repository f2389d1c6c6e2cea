package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/polibsk/incidents-ui-api/internal/adapters/backend"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := backend.NewClient(backend.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func authedRequest(t *testing.T, method, target string, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := SetSessionInContext(req.Context(), testSession("test-session-id"))
	return req.WithContext(ctx)
}

func TestIncidentHandlers_List(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/incidents", r.URL.Path)
		// The proxy must forward the backend trust token, not the provider access token.
		assert.Equal(t, "Bearer test-id-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"title":"Printer on fire","status":"OPEN"}]`))
	})

	h := &IncidentHandlers{Backend: client}
	w := httptest.NewRecorder()

	h.List(w, authedRequest(t, http.MethodGet, "/api/incidents", ""))

	assert.Equal(t, http.StatusOK, w.Code)

	var incidents []backend.Incident
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &incidents))
	require.Len(t, incidents, 1)
	assert.Equal(t, "Printer on fire", incidents[0].Title)
}

func TestIncidentHandlers_List_EmptyBackendListIsEmptyArray(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`null`))
	})

	h := &IncidentHandlers{Backend: client}
	w := httptest.NewRecorder()

	h.List(w, authedRequest(t, http.MethodGet, "/api/incidents", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestIncidentHandlers_List_NoSession(t *testing.T) {
	h := &IncidentHandlers{Backend: newTestBackend(t, func(_ http.ResponseWriter, _ *http.Request) {})}
	w := httptest.NewRecorder()

	req := httptest.NewRequest(http.MethodGet, "/api/incidents", nil)
	h.List(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIncidentHandlers_Create(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/incidents", r.URL.Path)

		var incident backend.Incident
		require.NoError(t, json.NewDecoder(r.Body).Decode(&incident))
		assert.Equal(t, "Outage", incident.Title)
		// Reporter is filled from the session when the client omits it.
		assert.Equal(t, "test@example.com", incident.ReportedBy)

		incident.ID = 7
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(incident)
	})

	h := &IncidentHandlers{Backend: client}
	w := httptest.NewRecorder()

	body := `{"title":"Outage","description":"All of it","status":"OPEN","priority":"HIGH","category":"infra"}`
	h.Create(w, authedRequest(t, http.MethodPost, "/api/incidents", body))

	assert.Equal(t, http.StatusCreated, w.Code)

	var created backend.Incident
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(7), created.ID)
}

func TestIncidentHandlers_Create_MissingTitle(t *testing.T) {
	h := &IncidentHandlers{Backend: newTestBackend(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("backend should not be called")
	})}
	w := httptest.NewRecorder()

	h.Create(w, authedRequest(t, http.MethodPost, "/api/incidents", `{"description":"no title"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing_title")
}

func TestIncidentHandlers_UpdateStatus(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/incidents/42/status", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "RESOLVED", body["status"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"title":"Outage","status":"RESOLVED"}`))
	})

	h := &IncidentHandlers{Backend: client}
	w := httptest.NewRecorder()

	req := authedRequest(t, http.MethodPut, "/api/incidents/42/status", `{"status":"RESOLVED"}`)
	req.SetPathValue("id", "42")
	h.UpdateStatus(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var updated backend.Incident
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "RESOLVED", updated.Status)
}

func TestIncidentHandlers_UpdateStatus_InvalidID(t *testing.T) {
	h := &IncidentHandlers{Backend: newTestBackend(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("backend should not be called")
	})}
	w := httptest.NewRecorder()

	req := authedRequest(t, http.MethodPut, "/api/incidents/abc/status", `{"status":"RESOLVED"}`)
	req.SetPathValue("id", "abc")
	h.UpdateStatus(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_id")
}

func TestIncidentHandlers_Delete(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/incidents/9", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	h := &IncidentHandlers{Backend: client}
	w := httptest.NewRecorder()

	req := authedRequest(t, http.MethodDelete, "/api/incidents/9", "")
	req.SetPathValue("id", "9")
	h.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestIncidentHandlers_BackendStatusErrorPassesThrough(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not yours", http.StatusForbidden)
	})

	h := &IncidentHandlers{Backend: client}
	w := httptest.NewRecorder()

	h.List(w, authedRequest(t, http.MethodGet, "/api/incidents", ""))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "backend_error")
}

func TestIncidentHandlers_BackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	client, err := backend.NewClient(backend.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	srv.Close() // backend gone before the call

	h := &IncidentHandlers{Backend: client}
	w := httptest.NewRecorder()

	h.List(w, authedRequest(t, http.MethodGet, "/api/incidents", ""))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "backend_unreachable")
}

func TestUserHandlers_List(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "Bearer test-id-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"email":"a@example.com","name":"A","role":"User"}]`))
	})

	h := &UserHandlers{Backend: client}
	w := httptest.NewRecorder()

	h.List(w, authedRequest(t, http.MethodGet, "/api/users", ""))

	assert.Equal(t, http.StatusOK, w.Code)

	var users []backend.BackendUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "a@example.com", users[0].Email)
}

func TestUserHandlers_Delete(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/users/3", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	h := &UserHandlers{Backend: client}
	w := httptest.NewRecorder()

	req := authedRequest(t, http.MethodDelete, "/api/users/3", "")
	req.SetPathValue("id", "3")
	h.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
