// Package integration contains integration tests for the API
package integration

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jborjar/paquetes/internal/interface/middleware"
	"github.com/jborjar/paquetes/pkg/config"
	"github.com/jborjar/paquetes/tests/testutil"
)

// AuthTestSuite is the test suite for auth-related endpoints
type AuthTestSuite struct {
	suite.Suite
	backend string
	server  *testutil.TestServer
}

// SetupTest runs before each test
func (s *AuthTestSuite) SetupTest() {
	s.server = testutil.NewTestServer(s.T(), testutil.WithBackend(s.backend))
}

func TestAuthSuite_Memory(t *testing.T) {
	suite.Run(t, &AuthTestSuite{backend: config.BackendMemory})
}

func TestAuthSuite_SQLite(t *testing.T) {
	suite.Run(t, &AuthTestSuite{backend: config.BackendSQLite})
}

func TestAuthSuite_Redis(t *testing.T) {
	testutil.SkipUnlessIntegration(t)
	suite.Run(t, &AuthTestSuite{backend: config.BackendRedis})
}

func TestAuthSuite_Postgres(t *testing.T) {
	testutil.SkipUnlessIntegration(t)
	suite.Run(t, &AuthTestSuite{backend: config.BackendPostgres})
}

func (s *AuthTestSuite) do(req testutil.HTTPRequest) *testutil.HTTPResponse {
	return testutil.DoRequest(s.T(), s.server.Echo, req)
}

// =============================================================================
// Login Tests
// =============================================================================

func (s *AuthTestSuite) TestLogin_Success() {
	resp := s.do(testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Body: map[string]string{
			"username": testutil.AliceUsername,
			"password": testutil.AlicePassword,
		},
	})

	resp.AssertStatus(http.StatusOK).
		AssertJSONPathExists("data.session_id").
		AssertJSONPath("data.username", testutil.AliceUsername).
		AssertJSONPath("data.scopes", []interface{}{"reports", "sales:read"}).
		AssertJSONPath("data.expires_in", float64(testutil.SessionTTL.Seconds()))

	cookie := resp.GetCookie(middleware.DefaultSessionCookieName)
	s.Require().NotNil(cookie)
	s.Equal(resp.GetJSONData()["session_id"], cookie.Value)
	s.True(cookie.HttpOnly)
	s.Equal(int(testutil.SessionTTL.Seconds()), cookie.MaxAge)

	csrf := resp.GetCookie(middleware.CSRFCookieName)
	s.Require().NotNil(csrf)
	s.NotEmpty(csrf.Value)
}

func (s *AuthTestSuite) TestLogin_FormBodyIgnoresRequestedScopes() {
	// the accounts file decides scopes, so requested ones are dropped
	resp := s.do(testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Form: url.Values{
			"username": {testutil.BobUsername},
			"password": {testutil.BobPassword},
			"scopes":   {"sessions:admin"},
		},
	})

	resp.AssertStatus(http.StatusOK).
		AssertJSONPath("data.username", testutil.BobUsername).
		AssertJSONPath("data.scopes", []interface{}{})
	s.NotNil(resp.GetCookie(middleware.DefaultSessionCookieName))
}

func (s *AuthTestSuite) TestLogin_InvalidPassword() {
	resp := s.do(testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Body: map[string]string{
			"username": testutil.AliceUsername,
			"password": "wrong",
		},
	})

	resp.AssertStatus(http.StatusUnauthorized).
		AssertJSONError("INVALID_CREDENTIALS", "invalid username or password")
	s.Nil(resp.GetCookie(middleware.DefaultSessionCookieName))
}

func (s *AuthTestSuite) TestLogin_UnknownUser() {
	resp := s.do(testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Body: map[string]string{
			"username": "mallory",
			"password": "whatever",
		},
	})

	resp.AssertStatus(http.StatusUnauthorized).
		AssertJSONError("INVALID_CREDENTIALS", "")
}

func (s *AuthTestSuite) TestLogin_ValidationError() {
	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "missing password", body: map[string]string{"username": testutil.AliceUsername}},
		{name: "missing username", body: map[string]string{"password": testutil.AlicePassword}},
		{name: "invalid username", body: map[string]string{"username": "bad user", "password": "x"}},
		{name: "invalid scopes", body: map[string]string{"username": testutil.BobUsername, "password": testutil.BobPassword, "scopes": "a b"}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.do(testutil.HTTPRequest{
				Method: http.MethodPost,
				Path:   "/api/v1/auth/login",
				Body:   tt.body,
			}).AssertStatus(http.StatusBadRequest).
				AssertJSONError("VALIDATION_ERROR", "")
		})
	}
}

func (s *AuthTestSuite) TestLogin_EvictsOldestSessionOverLimit() {
	first := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)
	s.server.Clock.Advance(time.Second)
	second := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)
	s.server.Clock.Advance(time.Second)
	third := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", SessionCookie: first}).
		AssertStatus(http.StatusUnauthorized)

	resp := s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/sessions", AccessToken: third})
	resp.AssertStatus(http.StatusOK).
		AssertJSONPath("meta.total", float64(testutil.AliceMaxSessions))

	var ids []string
	for _, item := range resp.GetJSONDataList() {
		ids = append(ids, item["session_id"].(string))
	}
	s.ElementsMatch([]string{second, third}, ids)
}

func (s *AuthTestSuite) TestLogin_DefaultLimitApplies() {
	var ids []string
	for i := 0; i < testutil.DefaultMaxSessions+1; i++ {
		ids = append(ids, s.server.Login(s.T(), testutil.BobUsername, testutil.BobPassword))
		s.server.Clock.Advance(time.Second)
	}

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/sessions", AccessToken: ids[len(ids)-1]}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("meta.total", float64(testutil.DefaultMaxSessions))
}

// =============================================================================
// Session Tests
// =============================================================================

func (s *AuthTestSuite) TestSession_ByCookieAndBearer() {
	sessionID := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", SessionCookie: sessionID}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("data.session_id", sessionID).
		AssertJSONPath("data.username", testutil.AliceUsername)

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", AccessToken: sessionID}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("data.session_id", sessionID)
}

func (s *AuthTestSuite) TestSession_MissingToken() {
	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session"}).
		AssertStatus(http.StatusUnauthorized).
		AssertJSONError("UNAUTHORIZED", "not authenticated")
}

func (s *AuthTestSuite) TestSession_MalformedAuthorizationHeader() {
	sessionID := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)

	s.do(testutil.HTTPRequest{
		Method:        http.MethodGet,
		Path:          "/api/v1/auth/session",
		Headers:       map[string]string{"Authorization": "Token " + sessionID},
		SessionCookie: sessionID,
	}).AssertStatus(http.StatusUnauthorized).
		AssertJSONError("UNAUTHORIZED", "invalid Authorization format")
}

func (s *AuthTestSuite) TestSession_UnknownAndMalformedIDs() {
	for _, token := range []string{"6f1c1c53-5a43-4d0b-9d36-3ed2e8f2b7a1", "not-a-session-id"} {
		s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", AccessToken: token}).
			AssertStatus(http.StatusUnauthorized).
			AssertJSONError("UNAUTHORIZED", "invalid or expired session")
	}
}

func (s *AuthTestSuite) TestSession_ExpiresAfterInactivity() {
	sessionID := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)

	s.server.Clock.Advance(testutil.SessionTTL + time.Second)

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", AccessToken: sessionID}).
		AssertStatus(http.StatusUnauthorized)
}

func (s *AuthTestSuite) TestSession_ActivityExtendsLifetime() {
	sessionID := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)

	// 認証付きリクエストで最終アクティビティが更新される
	s.server.Clock.Advance(20 * time.Minute)
	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/sessions", AccessToken: sessionID}).
		AssertStatus(http.StatusOK)

	s.server.Clock.Advance(20 * time.Minute)
	resp := s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", AccessToken: sessionID})
	resp.AssertStatus(http.StatusOK)

	// GET /auth/session は有効期限を延ばさない
	s.server.Clock.Advance(15 * time.Minute)
	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", AccessToken: sessionID}).
		AssertStatus(http.StatusUnauthorized)
}

// =============================================================================
// Logout Tests
// =============================================================================

func (s *AuthTestSuite) TestLogout_Success() {
	sessionID := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)

	resp := s.do(testutil.HTTPRequest{Method: http.MethodPost, Path: "/api/v1/auth/logout", SessionCookie: sessionID})
	resp.AssertStatus(http.StatusOK).
		AssertJSONPath("meta.message", "logged out successfully")

	cookie := resp.GetCookie(middleware.DefaultSessionCookieName)
	s.Require().NotNil(cookie)
	s.Empty(cookie.Value)
	s.Less(cookie.MaxAge, 0)

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", SessionCookie: sessionID}).
		AssertStatus(http.StatusUnauthorized)
}

func (s *AuthTestSuite) TestLogout_UnknownSession() {
	sessionID := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)
	s.do(testutil.HTTPRequest{Method: http.MethodPost, Path: "/api/v1/auth/logout", AccessToken: sessionID}).
		AssertStatus(http.StatusOK)

	s.do(testutil.HTTPRequest{Method: http.MethodPost, Path: "/api/v1/auth/logout", AccessToken: sessionID}).
		AssertStatus(http.StatusBadRequest).
		AssertJSONError("INVALID_REQUEST", "session not found")
}

func (s *AuthTestSuite) TestLogout_NotAuthenticated() {
	s.do(testutil.HTTPRequest{Method: http.MethodPost, Path: "/api/v1/auth/logout"}).
		AssertStatus(http.StatusUnauthorized)
}

func (s *AuthTestSuite) TestLogoutAll_DeletesOnlyOwnSessions() {
	first := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)
	s.server.Clock.Advance(time.Second)
	second := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)
	bob := s.server.Login(s.T(), testutil.BobUsername, testutil.BobPassword)

	s.do(testutil.HTTPRequest{Method: http.MethodPost, Path: "/api/v1/auth/logout-all", AccessToken: second}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("data.deleted", float64(2))

	for _, id := range []string{first, second} {
		s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", AccessToken: id}).
			AssertStatus(http.StatusUnauthorized)
	}
	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", AccessToken: bob}).
		AssertStatus(http.StatusOK)
}

// =============================================================================
// Admin Tests
// =============================================================================

func (s *AuthTestSuite) TestAdmin_RequiresScope() {
	bob := s.server.Login(s.T(), testutil.BobUsername, testutil.BobPassword)

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/admin/sessions", AccessToken: bob}).
		AssertStatus(http.StatusForbidden).
		AssertJSONError("FORBIDDEN", "missing required scopes: sessions:admin")

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/admin/sessions"}).
		AssertStatus(http.StatusUnauthorized)
}

func (s *AuthTestSuite) TestAdmin_ListSessions() {
	admin := s.server.Login(s.T(), testutil.AdminUsername, testutil.AdminPassword)
	s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)
	s.server.Login(s.T(), testutil.BobUsername, testutil.BobPassword)

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/admin/sessions", AccessToken: admin}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("meta.total", float64(3))

	resp := s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/admin/sessions?username=alice", AccessToken: admin})
	resp.AssertStatus(http.StatusOK).
		AssertJSONPath("meta.total", float64(1))
	s.Equal(testutil.AliceUsername, resp.GetJSONDataList()[0]["username"])
}

func (s *AuthTestSuite) TestAdmin_RevokeSession() {
	admin := s.server.Login(s.T(), testutil.AdminUsername, testutil.AdminPassword)
	alice := s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)

	s.do(testutil.HTTPRequest{Method: http.MethodDelete, Path: "/api/v1/admin/sessions/" + alice, AccessToken: admin}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("meta.message", "session revoked")

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/api/v1/auth/session", AccessToken: alice}).
		AssertStatus(http.StatusUnauthorized)

	s.do(testutil.HTTPRequest{Method: http.MethodDelete, Path: "/api/v1/admin/sessions/" + alice, AccessToken: admin}).
		AssertStatus(http.StatusNotFound).
		AssertJSONError("NOT_FOUND", "")

	s.do(testutil.HTTPRequest{Method: http.MethodDelete, Path: "/api/v1/admin/sessions/not-a-uuid", AccessToken: admin}).
		AssertStatus(http.StatusBadRequest).
		AssertJSONError("VALIDATION_ERROR", "")
}

func (s *AuthTestSuite) TestAdmin_RevokeUserSessions() {
	admin := s.server.Login(s.T(), testutil.AdminUsername, testutil.AdminPassword)
	s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)
	s.server.Clock.Advance(time.Second)
	s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)

	s.do(testutil.HTTPRequest{Method: http.MethodDelete, Path: "/api/v1/admin/users/alice/sessions", AccessToken: admin}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("data.deleted", float64(2))

	s.do(testutil.HTTPRequest{Method: http.MethodDelete, Path: "/api/v1/admin/users/alice/sessions", AccessToken: admin}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("data.deleted", float64(0))
}

func (s *AuthTestSuite) TestAdmin_CleanupExpiredSessions() {
	s.server.Login(s.T(), testutil.BobUsername, testutil.BobPassword)
	s.server.Login(s.T(), testutil.AliceUsername, testutil.AlicePassword)

	s.server.Clock.Advance(testutil.SessionTTL + time.Minute)
	admin := s.server.Login(s.T(), testutil.AdminUsername, testutil.AdminPassword)

	s.do(testutil.HTTPRequest{Method: http.MethodPost, Path: "/api/v1/admin/sessions/cleanup", AccessToken: admin}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("data.removed", float64(2))

	s.do(testutil.HTTPRequest{Method: http.MethodPost, Path: "/api/v1/admin/sessions/cleanup", AccessToken: admin}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("data.removed", float64(0))
}

// =============================================================================
// Health Tests
// =============================================================================

func (s *AuthTestSuite) TestHealth() {
	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/health"}).
		AssertStatus(http.StatusOK).
		AssertJSONPath("status", "ok")

	s.do(testutil.HTTPRequest{Method: http.MethodGet, Path: "/ready"}).
		AssertStatus(http.StatusOK)
}

// =============================================================================
// CSRF and Rate Limit Tests
// =============================================================================

func TestCSRF_CookieAuthenticatedRequests(t *testing.T) {
	server := testutil.NewTestServer(t, testutil.WithCSRF())

	login := testutil.DoRequest(t, server.Echo, testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Body: map[string]string{
			"username": testutil.AliceUsername,
			"password": testutil.AlicePassword,
		},
	})
	login.AssertStatus(http.StatusOK)
	sessionCookie := login.GetCookie(middleware.DefaultSessionCookieName)
	csrfCookie := login.GetCookie(middleware.CSRFCookieName)

	// トークンヘッダーなし
	testutil.DoRequest(t, server.Echo, testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/api/v1/auth/logout-all",
		Cookies: []*http.Cookie{sessionCookie, csrfCookie},
	}).AssertStatus(http.StatusForbidden).
		AssertJSONError("FORBIDDEN", "CSRF token header missing")

	// Bearer認証はCSRF検証の対象外
	testutil.DoRequest(t, server.Echo, testutil.HTTPRequest{
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/sessions",
		AccessToken: sessionCookie.Value,
	}).AssertStatus(http.StatusOK)

	testutil.DoRequest(t, server.Echo, testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/api/v1/auth/logout-all",
		Headers: map[string]string{middleware.CSRFHeaderName: csrfCookie.Value},
		Cookies: []*http.Cookie{sessionCookie, csrfCookie},
	}).AssertStatus(http.StatusOK).
		AssertJSONPath("data.deleted", float64(1))

	// 古いセッションCookieが残っていてもログインできる
	testutil.DoRequest(t, server.Echo, testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/api/v1/auth/login",
		Cookies: []*http.Cookie{sessionCookie},
		Body: map[string]string{
			"username": testutil.AliceUsername,
			"password": testutil.AlicePassword,
		},
	}).AssertStatus(http.StatusOK)
}

func TestLogin_RateLimitedByIP(t *testing.T) {
	server := testutil.NewTestServer(t, testutil.WithLoginRateLimit(2, time.Minute))

	attempt := func() *testutil.HTTPResponse {
		return testutil.DoRequest(t, server.Echo, testutil.HTTPRequest{
			Method: http.MethodPost,
			Path:   "/api/v1/auth/login",
			Body: map[string]string{
				"username": testutil.AliceUsername,
				"password": "wrong",
			},
		})
	}

	attempt().AssertStatus(http.StatusUnauthorized)
	attempt().AssertStatus(http.StatusUnauthorized)

	resp := attempt()
	resp.AssertStatus(http.StatusTooManyRequests).
		AssertJSONError("RATE_LIMIT_EXCEEDED", "")
	if resp.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header is not set")
	}
}
