package httpx

import (
	"io"
	"net/http"
)

const healthResponse = `{"status":"ok","service":"incidents-ui-api"}`

// healthHandler answers liveness/readiness probes. Auth state is
// deliberately not consulted: the process is healthy even when the auth
// pipeline is degraded to unauthenticated.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
