// Package server provides the HTTP surface of korima.
//
// # Key Components
//
// Server routes the public API:
//   - GET /                          readiness message
//   - GET /api/auth/google           Google authorization URL
//   - GET /api/auth/google/callback  code exchange, then redirect to the frontend
//   - GET /api/daily-briefing        the next upcoming calendar events
//   - /mcp                           optional MCP streamable HTTP endpoint
//
// Every route is wrapped with panic recovery, OpenTelemetry HTTP spans,
// request logging and metrics, and CORS restricted to the frontend origin.
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed for Kubernetes
// probes. MetricsServer exposes Prometheus metrics on a dedicated port.
package server
