package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/korima-app/korima/internal/credential"
)

const (
	healthStatusOK       = "ok"
	healthStatusNotReady = "not ready"

	credentialPresent = "present"
	credentialAbsent  = "absent"
)

const credentialLookupTimeout = 2 * time.Second

// HealthChecker serves the probe endpoints. It starts ready; Server.Shutdown
// flips it so load balancers stop routing before connections drain.
type HealthChecker struct {
	ready   atomic.Bool
	started time.Time

	// store and account back the credential field of /healthz/detailed.
	store   credential.Store
	account string
}

// NewHealthChecker accepts a nil store, which drops the credential field.
func NewHealthChecker(store credential.Store, account string) *HealthChecker {
	if account == "" {
		account = credential.DefaultAccount
	}
	h := &HealthChecker{store: store, account: account, started: time.Now()}
	h.ready.Store(true)
	return h
}

func (h *HealthChecker) SetReady(ready bool) { h.ready.Store(ready) }

func (h *HealthChecker) IsReady() bool { return h.ready.Load() }

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Credential string `json:"credential,omitempty"`
}

// readiness returns the status word and HTTP code for the current state.
func (h *HealthChecker) readiness() (string, int) {
	if h.ready.Load() {
		return healthStatusOK, http.StatusOK
	}
	return healthStatusNotReady, http.StatusServiceUnavailable
}

// LivenessHandler always answers 200 while the process runs.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers 503 once shutdown has begun.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status, code := h.readiness()
		writeJSON(w, code, HealthResponse{Status: status, Checks: map[string]string{"ready": status}})
	})
}

// DetailedHealthHandler adds uptime and whether a Google credential is held.
// No credential is a normal state and does not fail the check.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, code := h.readiness()
		writeJSON(w, code, DetailedHealthResponse{
			Status:     status,
			Uptime:     time.Since(h.started).Truncate(time.Second).String(),
			Credential: h.credentialState(r.Context()),
		})
	})
}

func (h *HealthChecker) credentialState(ctx context.Context) string {
	if h.store == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, credentialLookupTimeout)
	defer cancel()
	if _, err := h.store.Load(ctx, h.account); err != nil {
		return credentialAbsent
	}
	return credentialPresent
}

// RegisterHealthEndpoints mounts /healthz, /readyz and /healthz/detailed.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("GET /healthz", h.LivenessHandler())
	mux.Handle("GET /readyz", h.ReadinessHandler())
	mux.Handle("GET /healthz/detailed", h.DetailedHealthHandler())
}
