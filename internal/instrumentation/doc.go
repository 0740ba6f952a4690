// Package instrumentation provides OpenTelemetry metrics and tracing for the
// korima backend.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, route pattern, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// OAuth Metrics:
//   - oauth_auth_total: Counter of authorization callbacks by result (success or error kind)
//   - oauth_token_refresh_total: Counter of token refreshes by result
//
// Briefing Metrics:
//   - briefings_total: Counter of daily briefings by result (success or error kind)
//   - briefing_events: Histogram of events returned per briefing
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Spans are created for:
//   - HTTP request handling (otelhttp)
//   - the authorization code exchange (google.oauth2.exchange)
//   - Calendar API calls (google.calendar.list)
//   - MCP tool invocations (tool.<name>)
//
// # Configuration
//
// Config is a plain struct; the config package fills it from flags and
// environment. Exporters are prometheus, otlp or stdout for metrics and
// otlp, stdout or none for traces. The Prometheus exporter gets its own
// registry, which also carries the Go runtime and process collectors.
// Resource attributes include OTEL_RESOURCE_ATTRIBUTES and the host name.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, cfg.Instrumentation(version))
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar,
//		instrumentation.OperationList, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
