package httpx

import (
	"log/slog"
	"net/http"

	"github.com/polibsk/incidents-ui-api/internal/adapters/backend"
)

// UserHandlers proxies the backend's user administration endpoints. Routes
// are registered behind admin-only capability middleware.
type UserHandlers struct {
	Backend *backend.Client
	Logger  *slog.Logger
}

func (h *UserHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// List handles GET /api/users.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeMissingSession(w)
		return
	}

	users, err := h.Backend.ListUsers(r.Context(), session.BackendTrustToken)
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}
	if users == nil {
		users = []backend.BackendUser{}
	}

	WriteJSON(w, http.StatusOK, users)
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeMissingSession(w)
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Backend.DeleteUser(r.Context(), id, session.BackendTrustToken); err != nil {
		h.writeBackendError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandlers) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	writeUpstreamError(w, err)
	h.logger().WarnContext(r.Context(), "backend request failed",
		"path", r.URL.Path,
		"error", err)
}
