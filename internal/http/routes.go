package httpx

import (
	"log/slog"
	"net/http"

	"github.com/polibsk/incidents-ui-api/internal/adapters/backend"
	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         AuthServiceInterface
	Backend      *backend.Client
	CookieDomain string
	// LogoutURL is the provider's end-session endpoint (optional).
	LogoutURL string
	Logger    *slog.Logger // Logger for handler warnings (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	if services.Auth != nil {
		authHandlers := &AuthHandlers{
			Svc:          services.Auth,
			CookieDomain: services.CookieDomain,
			LogoutURL:    services.LogoutURL,
			Logger:       services.Logger,
		}
		registerAuthRoutes(mux, authHandlers)
	}

	if services.Auth != nil && services.Backend != nil {
		incidentHandlers := &IncidentHandlers{Backend: services.Backend, Logger: services.Logger}
		registerIncidentRoutes(mux, incidentHandlers, services.Auth)

		userHandlers := &UserHandlers{Backend: services.Backend, Logger: services.Logger}
		registerUserRoutes(mux, userHandlers, services.Auth)
	}

	return mux
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/session", h.Session)
	mux.HandleFunc("GET /auth/refresh", h.Refresh)
}

// registerIncidentRoutes gates each incident operation behind its capability:
// reads and writes need an authenticated session, deletion needs admin.
func registerIncidentRoutes(mux *http.ServeMux, h *IncidentHandlers, auth AuthServiceInterface) {
	viewer := RequireCapability(auth, domainauth.CanAccessDashboard)
	creator := RequireCapability(auth, domainauth.CanCreateIncidents)
	updater := RequireCapability(auth, domainauth.CanUpdateIncidentStatus)
	deleter := RequireCapability(auth, domainauth.CanDeleteIncidents)

	mux.Handle("GET /api/incidents", viewer(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/incidents", creator(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /api/incidents/{id}/status", updater(http.HandlerFunc(h.UpdateStatus)))
	mux.Handle("DELETE /api/incidents/{id}", deleter(http.HandlerFunc(h.Delete)))
}

// registerUserRoutes gates user administration behind admin capabilities.
func registerUserRoutes(mux *http.ServeMux, h *UserHandlers, auth AuthServiceInterface) {
	lister := RequireCapability(auth, domainauth.CanViewUsersList)
	deleter := RequireCapability(auth, domainauth.CanDeleteUsers)

	mux.Handle("GET /api/users", lister(http.HandlerFunc(h.List)))
	mux.Handle("DELETE /api/users/{id}", deleter(http.HandlerFunc(h.Delete)))
}
