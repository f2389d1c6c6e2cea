package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/polibsk/incidents-ui-api/internal/adapters/backend"
)

// IncidentHandlers proxies gated incident operations to the backend API.
// Every call authenticates with the session's backend trust token; the
// middleware guarantees a session is present in the request context.
type IncidentHandlers struct {
	Backend *backend.Client
	Logger  *slog.Logger
}

func (h *IncidentHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// List handles GET /api/incidents.
func (h *IncidentHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeMissingSession(w)
		return
	}

	incidents, err := h.Backend.ListIncidents(r.Context(), session.BackendTrustToken)
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}
	if incidents == nil {
		incidents = []backend.Incident{}
	}

	WriteJSON(w, http.StatusOK, incidents)
}

// Create handles POST /api/incidents.
func (h *IncidentHandlers) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeMissingSession(w)
		return
	}

	var incident backend.Incident
	if !DecodeJSON(w, r, &incident) {
		return
	}
	if incident.Title == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_title",
			Err:     errors.New("incident title is required"),
		})
		return
	}
	// The backend records the reporter from the authenticated identity's
	// perspective; fill it from the session when the client omits it.
	if incident.ReportedBy == "" {
		incident.ReportedBy = session.Email
	}

	created, err := h.Backend.CreateIncident(r.Context(), incident, session.BackendTrustToken)
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// UpdateStatus handles PUT /api/incidents/{id}/status.
func (h *IncidentHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeMissingSession(w)
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	if body.Status == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_status",
			Err:     errors.New("status is required"),
		})
		return
	}

	updated, err := h.Backend.UpdateIncidentStatus(r.Context(), id, body.Status, session.BackendTrustToken)
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/incidents/{id}.
func (h *IncidentHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeMissingSession(w)
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Backend.DeleteIncident(r.Context(), id, session.BackendTrustToken); err != nil {
		h.writeBackendError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeBackendError maps backend failures onto the gateway's response: status
// errors pass the upstream code through, transport errors become 502.
func (h *IncidentHandlers) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	writeUpstreamError(w, err)
	h.logger().WarnContext(r.Context(), "backend request failed",
		"path", r.URL.Path,
		"error", err)
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		WriteError(w, ErrorParams{
			Code:    statusErr.StatusCode,
			ErrCode: "backend_error",
			Err:     err,
		})
		return
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusBadGateway,
		ErrCode: "backend_unreachable",
		Err:     err,
	})
}

func writeMissingSession(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "authentication_required",
		Err:     errors.New("authentication required"),
	})
}

// pathID parses the {id} path value, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_id",
			Err:     errors.New("invalid id"),
		})
		return 0, false
	}
	return id, true
}
