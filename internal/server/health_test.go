package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korima-app/korima/internal/credential"
)

func serveHealth(t *testing.T, h http.Handler) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil, "")
	h.SetReady(false)

	code, body := serveHealth(t, h.LivenessHandler())

	// Liveness does not depend on readiness.
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, healthStatusOK, body["status"])
}

func TestHealthChecker_Readiness(t *testing.T) {
	h := NewHealthChecker(nil, "")
	assert.True(t, h.IsReady())

	code, body := serveHealth(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, healthStatusOK, body["status"])

	h.SetReady(false)
	code, body = serveHealth(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusNotReady, body["status"])
	assert.Equal(t, map[string]any{"ready": healthStatusNotReady}, body["checks"])
}

func TestHealthChecker_DetailedCredential(t *testing.T) {
	store := credential.NewMemoryStore(nil)
	h := NewHealthChecker(store, "")

	code, body := serveHealth(t, h.DetailedHealthHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, credentialAbsent, body["credential"])
	assert.NotEmpty(t, body["uptime"])

	require.NoError(t, store.Save(context.Background(), credential.DefaultAccount, &credential.Credential{
		Token:        "access",
		RefreshToken: "refresh",
	}))

	_, body = serveHealth(t, h.DetailedHealthHandler())
	assert.Equal(t, credentialPresent, body["credential"])
}

func TestHealthChecker_DetailedWithoutStore(t *testing.T) {
	h := NewHealthChecker(nil, "")
	h.SetReady(false)

	code, body := serveHealth(t, h.DetailedHealthHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusNotReady, body["status"])
	_, hasCredential := body["credential"]
	assert.False(t, hasCredential)
}
