package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
	"github.com/polibsk/incidents-ui-api/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	RefreshSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
	AbortLogin(ctx context.Context, reason error)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	// LogoutURL is the provider's end-session endpoint. When set, sign-out
	// redirects there after local state is cleared.
	LogoutURL string
	Logger    *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login handles the login initiation endpoint.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	// Get the redirect URI from query params, default to root
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     err,
		})
		return
	}

	// Store state, nonce, PKCE verifier, and the original redirect URI in secure cookies
	h.setOAuthCookies(w, r, oauthCookieParams{
		State:        result.State,
		Nonce:        result.Nonce,
		PKCEVerifier: result.PKCEVerifier,
		RedirectURI:  redirectURI,
	})

	// Redirect to the identity provider
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback handles the OAuth callback endpoint.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	// Rejections before the exchange still resolve the flow: the provider is
	// never going to call back again, so the session cache must not stay
	// unresolved on an abandoned or tampered callback.
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		err := errors.New("authorization code is required")
		h.Svc.AbortLogin(r.Context(), err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     err,
		})
		return
	}
	if state == "" {
		err := errors.New("state parameter is required")
		h.Svc.AbortLogin(r.Context(), err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_state",
			Err:     err,
		})
		return
	}

	// Verify state and read nonce
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value != state {
		stateErr := errors.New("invalid or missing state parameter")
		h.Svc.AbortLogin(r.Context(), stateErr)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     stateErr,
		})
		return
	}
	nonceCookie, err := r.Cookie("oauth_nonce")
	if err != nil {
		nonceErr := errors.New("missing nonce parameter")
		h.Svc.AbortLogin(r.Context(), nonceErr)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     nonceErr,
		})
		return
	}

	// The verifier cookie is absent for providers that skip PKCE.
	verifier := ""
	if verifierCookie, cookieErr := r.Cookie("oauth_verifier"); cookieErr == nil {
		verifier = verifierCookie.Value
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:         code,
		State:        state,
		Nonce:        nonceCookie.Value,
		PKCEVerifier: verifier,
	})
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_completion_failed",
			Err:     err,
		})
		return
	}

	// Set session cookie and clear temporary OAuth cookies
	h.setSessionCookie(w, r, result.Session)
	h.clearCookie(w, r, "oauth_state")
	h.clearCookie(w, r, "oauth_nonce")
	h.clearCookie(w, r, "oauth_verifier")

	// Redirect to the original destination
	redirectURI := h.getPostLoginRedirect(w, r)
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// Logout handles the logout endpoint.
// POST /auth/logout.
// Local state (server-side session, cookies) is cleared before the caller is
// sent on to the provider's end-session endpoint, so nothing can read a token
// that is about to be invalidated upstream.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionCookie, err := r.Cookie("session_id"); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), sessionCookie.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	} else {
		// No cookie: still clear any process-level cached credentials.
		if logoutErr := h.Svc.Logout(r.Context(), ""); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}

	// Clear session cookie on the client
	h.clearCookie(w, r, "session_id")

	signedOutURL := h.LogoutURL
	if signedOutURL == "" {
		signedOutURL = "/"
	}

	// AJAX requests get a JSON payload; regular requests redirect
	isAJAX := strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
	if isAJAX {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": signedOutURL,
		})
		return
	}

	http.Redirect(w, r, signedOutURL, http.StatusFound)
}

// Session returns the client-visible projection of the current session.
// GET /auth/session.
// An absent or invalid session is not an error: the response degrades to the
// unauthenticated projection with a 200.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	sessionCookie, err := r.Cookie("session_id")
	if err != nil {
		WriteJSON(w, http.StatusOK, domainauth.Project(nil))
		return
	}

	session, err := h.Svc.GetSession(r.Context(), sessionCookie.Value)
	if err != nil {
		// Session is invalid or expired, clear the cookie
		h.clearCookie(w, r, "session_id")
		WriteJSON(w, http.StatusOK, domainauth.Project(nil))
		return
	}

	WriteJSON(w, http.StatusOK, domainauth.Project(session))
}

// Refresh re-runs role derivation for the current session and returns the
// updated projection.
// GET /auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	sessionCookie, err := r.Cookie("session_id")
	if err != nil {
		WriteJSON(w, http.StatusOK, domainauth.Project(nil))
		return
	}

	session, err := h.Svc.RefreshSession(r.Context(), sessionCookie.Value)
	if err != nil {
		h.clearCookie(w, r, "session_id")
		WriteJSON(w, http.StatusOK, domainauth.Project(nil))
		return
	}

	h.setSessionCookie(w, r, *session)
	WriteJSON(w, http.StatusOK, domainauth.Project(session))
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	cd := h.CookieDomain
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   cd,
		HttpOnly: true,
		Secure:   isSecure,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// oauthCookieParams groups values needed to set OAuth cookies (≤3 params rule).
type oauthCookieParams struct {
	State        string
	Nonce        string
	PKCEVerifier string
	RedirectURI  string
}

// setOAuthCookies stores OAuth state, nonce, PKCE verifier, and the
// post-login redirect in secure cookies. All four share a 10 minute window;
// a login that takes longer starts over.
func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	cd := h.CookieDomain

	values := map[string]string{
		"oauth_state":         p.State,
		"oauth_nonce":         p.Nonce,
		"oauth_verifier":      p.PKCEVerifier,
		"post_login_redirect": p.RedirectURI,
	}
	for name, value := range values {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   cd,
			HttpOnly: true,
			Secure:   isSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   600, // 10 minutes
		})
	}
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	cd := h.CookieDomain
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    s.ID,
		Path:     "/",
		Domain:   cd,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// getPostLoginRedirect returns the post-login redirect URL and clears the cookie.
func (h *AuthHandlers) getPostLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	redirectURI := "/"
	if redirectCookie, err := r.Cookie("post_login_redirect"); err == nil {
		// Defensive re-validation: allow only relative paths
		redirectURI = safeRedirectPath(redirectCookie.Value)
		h.clearCookie(w, r, "post_login_redirect")
	}
	return redirectURI
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
