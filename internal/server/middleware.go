package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/felixge/httpsnoop"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/korima-app/korima/internal/instrumentation"
)

// unmatchedRoute labels requests that matched no registered pattern, keeping
// the path label bounded.
const unmatchedRoute = "other"

// recoverMiddleware turns a panic in a handler into a JSON 500.
func recoverMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error("Recovered from handler panic",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			writeInternalError(w)
		}()
		next.ServeHTTP(w, r)
	})
}

// tracingMiddleware starts a server span per request.
func tracingMiddleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "korima.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	)
}

// accessLogMiddleware logs every request and records the HTTP metrics. The
// route label is the mux pattern, so it has to run outside the mux but on the
// same *http.Request.
func accessLogMiddleware(logger *slog.Logger, metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}

		metrics.RecordHTTPRequest(r.Context(), r.Method, route, m.Code, m.Duration)

		level := slog.LevelInfo
		if m.Code >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration,
			"trace_id", instrumentation.GetTraceID(r.Context()),
		)
	})
}
