package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func authedHandler(cfg AuthConfig) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := GetClaimsFromContext(r.Context()); ok {
			w.Header().Set("X-User", claims.UserID)
		}
		w.WriteHeader(http.StatusOK)
	})
	return AuthMiddleware(cfg)(inner)
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	h := authedHandler(AuthConfig{Enabled: false})

	req := httptest.NewRequest(http.MethodPost, "/v1/codebooks", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	h := authedHandler(AuthConfig{Enabled: true, JWTSecret: testSecret})

	req := httptest.NewRequest(http.MethodGet, "/v1/codebooks/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_PublicPath(t *testing.T) {
	h := authedHandler(AuthConfig{
		Enabled:     true,
		JWTSecret:   testSecret,
		PublicPaths: []string{"/v1/health"},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	h := authedHandler(AuthConfig{Enabled: true, JWTSecret: testSecret})

	token, err := GenerateToken("alice", []string{"writer"}, testSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/codebooks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Header().Get("X-User"))
}

func TestAuthMiddleware_WriteRequiresWriterRole(t *testing.T) {
	h := authedHandler(AuthConfig{Enabled: true, JWTSecret: testSecret})

	token, err := GenerateToken("bob", []string{"reader"}, testSecret, time.Hour)
	require.NoError(t, err)

	// Reads pass.
	req := httptest.NewRequest(http.MethodGet, "/v1/codebooks/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Mutations are refused.
	req = httptest.NewRequest(http.MethodPost, "/v1/codebooks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthMiddleware_BadTokens(t *testing.T) {
	h := authedHandler(AuthConfig{Enabled: true, JWTSecret: testSecret})

	wrongSecret, err := GenerateToken("eve", []string{"writer"}, "other-secret", time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken("eve", []string{"writer"}, testSecret, -time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"wrong secret": "Bearer " + wrongSecret,
		"expired":      "Bearer " + expired,
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not.a.token",
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/codebooks/x", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}
