package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
	mocks "github.com/polibsk/incidents-ui-api/internal/mocks/auth"
	"github.com/polibsk/incidents-ui-api/internal/service"
	"github.com/polibsk/incidents-ui-api/internal/sessioncache"
)

// mockAuthService is a test double for service.AuthService.
type mockAuthService struct {
	beginLoginFunc     func(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	completeLoginFunc  func(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	getSessionFunc     func(ctx context.Context, sessionID string) (*domainauth.Session, error)
	refreshSessionFunc func(ctx context.Context, sessionID string) (*domainauth.Session, error)
	logoutFunc         func(ctx context.Context, sessionID string) error
	abortLoginCalls    int
}

func testSession(id string) *domainauth.Session {
	return &domainauth.Session{
		ID:                  id,
		Subject:             "test-user",
		DisplayName:         "Test User",
		Email:               "test@example.com",
		IdentityToken:       "test-id-token",
		ProviderAccessToken: "test-access-token",
		BackendTrustToken:   "test-id-token",
		Roles:               []domainauth.Role{domainauth.RoleUser},
		ExpiresAt:           time.Now().Add(time.Hour),
	}
}

func (m *mockAuthService) BeginLogin(
	ctx context.Context,
	redirectURL string,
) (*service.BeginLoginResult, error) {
	if m.beginLoginFunc != nil {
		return m.beginLoginFunc(ctx, redirectURL)
	}
	return &service.BeginLoginResult{
		AuthURL:      "https://example.com/auth?state=test-state&nonce=test-nonce",
		State:        "test-state",
		Nonce:        "test-nonce",
		PKCEVerifier: "test-verifier",
	}, nil
}

func (m *mockAuthService) CompleteLogin(
	ctx context.Context,
	input service.CompleteLoginInput,
) (*service.CompleteLoginResult, error) {
	if m.completeLoginFunc != nil {
		return m.completeLoginFunc(ctx, input)
	}
	return &service.CompleteLoginResult{Session: *testSession("test-session-id")}, nil
}

func (m *mockAuthService) GetSession(
	ctx context.Context,
	sessionID string,
) (*domainauth.Session, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID)
	}
	return testSession(sessionID), nil
}

func (m *mockAuthService) RefreshSession(
	ctx context.Context,
	sessionID string,
) (*domainauth.Session, error) {
	if m.refreshSessionFunc != nil {
		return m.refreshSessionFunc(ctx, sessionID)
	}
	return testSession(sessionID), nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) AbortLogin(_ context.Context, _ error) {
	m.abortLoginCalls++
}

func TestAuthHandlers_Login_Success(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	w := httptest.NewRecorder()

	handlers.Login(w, req)

	assert.Equal(t, http.StatusFound, w.Code)

	// Check that cookies were set
	resp := w.Result()
	defer resp.Body.Close()
	cookies := resp.Cookies()
	assert.Len(t, cookies, 4) // oauth_state, oauth_nonce, oauth_verifier, post_login_redirect
	byName := make(map[string]string, len(cookies))
	for _, cookie := range cookies {
		byName[cookie.Name] = cookie.Value
	}
	assert.Equal(t, "test-state", byName["oauth_state"])
	assert.Equal(t, "test-verifier", byName["oauth_verifier"])

	// Check redirect location
	location := w.Header().Get("Location")
	assert.Contains(t, location, "https://example.com/auth")
}

func TestAuthHandlers_Login_WithRedirectURI(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/incidents", nil)
	w := httptest.NewRecorder()

	handlers.Login(w, req)

	assert.Equal(t, http.StatusFound, w.Code)

	resp := w.Result()
	defer resp.Body.Close()
	var redirectCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "post_login_redirect" {
			redirectCookie = cookie
		}
	}
	require.NotNil(t, redirectCookie)
	assert.Equal(t, "/incidents", redirectCookie.Value)
}

func TestAuthHandlers_Login_RejectsAbsoluteRedirect(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=https://evil.example/", nil)
	w := httptest.NewRecorder()

	handlers.Login(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "post_login_redirect" {
			assert.Equal(t, "/", cookie.Value)
		}
	}
}

func TestAuthHandlers_Login_ServiceError(t *testing.T) {
	mockSvc := &mockAuthService{
		beginLoginFunc: func(_ context.Context, _ string) (*service.BeginLoginResult, error) {
			return nil, errors.New("provider down")
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	w := httptest.NewRecorder()

	handlers.Login(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "login_failed")
}

func TestAuthHandlers_Callback_Success(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=test-state", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "test-nonce"})
	req.AddCookie(&http.Cookie{Name: "post_login_redirect", Value: "/incidents"})
	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/incidents", w.Header().Get("Location"))

	// Session cookie was set to the new session ID
	resp := w.Result()
	defer resp.Body.Close()
	var sessionCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_id" {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Equal(t, "test-session-id", sessionCookie.Value)
}

func TestAuthHandlers_Callback_ForwardsPKCEVerifier(t *testing.T) {
	var captured service.CompleteLoginInput
	mockSvc := &mockAuthService{
		completeLoginFunc: func(_ context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
			captured = input
			return &service.CompleteLoginResult{Session: *testSession("test-session-id")}, nil
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=test-state", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "test-nonce"})
	req.AddCookie(&http.Cookie{Name: "oauth_verifier", Value: "test-verifier"})
	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "test-verifier", captured.PKCEVerifier)
	assert.Equal(t, "test-nonce", captured.Nonce)
}

func TestAuthHandlers_Callback_MissingCode(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=test-state", nil)
	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing_code")
	assert.Equal(t, 1, mockSvc.abortLoginCalls)
}

func TestAuthHandlers_Callback_StateMismatch(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=tampered", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "test-nonce"})
	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_state")
	assert.Equal(t, 1, mockSvc.abortLoginCalls)
}

func TestAuthHandlers_Callback_MissingNonce(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=test-state", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing_nonce")
	assert.Equal(t, 1, mockSvc.abortLoginCalls)
}

// A user backing out at the consent screen sends the callback with an error
// instead of a code. The flow is over, so the cache must settle on
// unauthenticated rather than sit unresolved forever.
func TestAuthHandlers_Callback_CancelledLoginResolvesCache(t *testing.T) {
	cache := sessioncache.New(sessioncache.Options{})
	svc := service.NewAuthService(service.AuthServiceOptions{
		Provider: mocks.NewMockAuthProvider(),
		Sessions: mocks.NewMemorySessionStore(),
		Roles:    mocks.StaticRoleSource{},
		Cache:    cache,
	})
	handlers := &AuthHandlers{Svc: svc}

	loginReq := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	loginW := httptest.NewRecorder()
	handlers.Login(loginW, loginReq)
	require.Equal(t, http.StatusFound, loginW.Code)
	_, status := cache.Current()
	require.Equal(t, sessioncache.StatusUnresolved, status)

	callbackReq := httptest.NewRequest(
		http.MethodGet, "/auth/callback?error=access_denied&state=state-1", nil)
	for _, c := range loginW.Result().Cookies() {
		callbackReq.AddCookie(c)
	}
	callbackW := httptest.NewRecorder()
	handlers.Callback(callbackW, callbackReq)

	assert.Equal(t, http.StatusBadRequest, callbackW.Code)
	projected, status := cache.Current()
	assert.Equal(t, sessioncache.StatusUnauthenticated, status)
	assert.False(t, projected.IsAuthenticated)
}

func TestAuthHandlers_Callback_CompleteLoginError(t *testing.T) {
	mockSvc := &mockAuthService{
		completeLoginFunc: func(_ context.Context, _ service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
			return nil, errors.New("exchange failed")
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=test-state", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "test-nonce"})
	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "login_completion_failed")
}

func TestAuthHandlers_Logout_RedirectsToProviderLogout(t *testing.T) {
	var loggedOutID string
	mockSvc := &mockAuthService{
		logoutFunc: func(_ context.Context, sessionID string) error {
			loggedOutID = sessionID
			return nil
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc, LogoutURL: "https://idp.example.com/logout"}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "test-session-id"})
	w := httptest.NewRecorder()

	handlers.Logout(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://idp.example.com/logout", w.Header().Get("Location"))
	assert.Equal(t, "test-session-id", loggedOutID)

	// Session cookie was cleared
	resp := w.Result()
	defer resp.Body.Close()
	var sessionCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_id" {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Empty(t, sessionCookie.Value)
	assert.Negative(t, sessionCookie.MaxAge)
}

func TestAuthHandlers_Logout_AJAXReturnsJSON(t *testing.T) {
	handlers := &AuthHandlers{Svc: &mockAuthService{}, LogoutURL: "https://idp.example.com/logout"}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "test-session-id"})
	w := httptest.NewRecorder()

	handlers.Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "https://idp.example.com/logout", body["redirect_to"])
}

func TestAuthHandlers_Logout_NoCookieStillClearsState(t *testing.T) {
	var called bool
	mockSvc := &mockAuthService{
		logoutFunc: func(_ context.Context, sessionID string) error {
			called = true
			assert.Empty(t, sessionID)
			return nil
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	handlers.Logout(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, called)
}

func TestAuthHandlers_Session_Authenticated(t *testing.T) {
	handlers := &AuthHandlers{Svc: &mockAuthService{}}

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "test-session-id"})
	w := httptest.NewRecorder()

	handlers.Session(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var projected domainauth.Projected
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projected))
	assert.True(t, projected.IsAuthenticated)
	assert.Equal(t, "Test User", projected.User.Name)
	assert.Equal(t, "test@example.com", projected.User.Email)
	assert.Equal(t, []domainauth.Role{domainauth.RoleUser}, projected.Roles)
	// The projection carries the backend trust token, not the provider access token.
	assert.Equal(t, "test-id-token", projected.AccessToken)
}

func TestAuthHandlers_Session_NoCookie(t *testing.T) {
	handlers := &AuthHandlers{Svc: &mockAuthService{}}

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	w := httptest.NewRecorder()

	handlers.Session(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var projected domainauth.Projected
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projected))
	assert.False(t, projected.IsAuthenticated)
	assert.Empty(t, projected.AccessToken)
}

func TestAuthHandlers_Session_InvalidSessionClearsCookie(t *testing.T) {
	mockSvc := &mockAuthService{
		getSessionFunc: func(_ context.Context, _ string) (*domainauth.Session, error) {
			return nil, errors.New("session expired")
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "stale"})
	w := httptest.NewRecorder()

	handlers.Session(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var projected domainauth.Projected
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projected))
	assert.False(t, projected.IsAuthenticated)

	resp := w.Result()
	defer resp.Body.Close()
	var sessionCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_id" {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Negative(t, sessionCookie.MaxAge)
}

func TestAuthHandlers_Refresh_Success(t *testing.T) {
	refreshed := testSession("test-session-id")
	refreshed.Roles = []domainauth.Role{domainauth.RoleAdmin}
	mockSvc := &mockAuthService{
		refreshSessionFunc: func(_ context.Context, sessionID string) (*domainauth.Session, error) {
			assert.Equal(t, "test-session-id", sessionID)
			return refreshed, nil
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "test-session-id"})
	w := httptest.NewRecorder()

	handlers.Refresh(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var projected domainauth.Projected
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projected))
	assert.True(t, projected.IsAuthenticated)
	assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin}, projected.Roles)
}

func TestAuthHandlers_Refresh_FailureDegradesToUnauthenticated(t *testing.T) {
	mockSvc := &mockAuthService{
		refreshSessionFunc: func(_ context.Context, _ string) (*domainauth.Session, error) {
			return nil, errors.New("session expired")
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "stale"})
	w := httptest.NewRecorder()

	handlers.Refresh(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var projected domainauth.Projected
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projected))
	assert.False(t, projected.IsAuthenticated)
}

func TestSafeRedirectPath(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{name: "empty", candidate: "", want: "/"},
		{name: "relative path", candidate: "/incidents", want: "/incidents"},
		{name: "relative with query", candidate: "/incidents?status=open", want: "/incidents?status=open"},
		{name: "absolute URL", candidate: "https://evil.example/", want: "/"},
		{name: "scheme relative", candidate: "//evil.example/path", want: "/"},
		{name: "no leading slash", candidate: "incidents", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, safeRedirectPath(tt.candidate))
		})
	}
}
