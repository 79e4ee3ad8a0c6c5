package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testController() *Controller {
	return &Controller{
		AdminToken: "test-token",
		AuthUser:   "admin",
		AuthPass:   "hunter2",
		JWTSecret:  []byte("test-secret"),
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthBearerToken(t *testing.T) {
	c := testController()
	h := c.RequireAuth(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/polls/1", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsBadToken(t *testing.T) {
	c := testController()
	h := c.RequireAuth(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/polls/1", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsMissingAuth(t *testing.T) {
	c := testController()
	h := c.RequireAuth(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/polls/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthSessionCookie(t *testing.T) {
	c := testController()
	h := c.RequireAuth(okHandler())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	ss, err := token.SignedString(c.JWTSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/polls/1", nil)
	req.AddCookie(&http.Cookie{Name: "mb_session", Value: ss})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthExpiredSession(t *testing.T) {
	c := testController()
	h := c.RequireAuth(okHandler())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	ss, err := token.SignedString(c.JWTSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/polls/1", nil)
	req.AddCookie(&http.Cookie{Name: "mb_session", Value: ss})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginIssuesSession(t *testing.T) {
	c := testController()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	c.HandleLogin(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "mb_session", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	c := testController()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"nope"}`))
	rec := httptest.NewRecorder()
	c.HandleLogin(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}
