package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Label values shared by metrics and spans.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultExpired = "expired"

	ServiceCalendar = "calendar"
	ServiceOAuth    = "oauth2"

	OperationList     = "list"
	OperationExchange = "exchange"
	OperationRefresh  = "refresh"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrAccount   = "account"
)

var (
	httpBuckets     = []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10}
	upstreamBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	eventBuckets    = []float64{0, 1, 2, 3, 4, 5, 10, 25, 50, 100, 250}
)

// timed is a request counter paired with a latency histogram in seconds.
type timed struct {
	count   metric.Int64Counter
	seconds metric.Float64Histogram
}

func (t timed) record(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	if t.count == nil || t.seconds == nil {
		return
	}
	opt := metric.WithAttributes(attrs...)
	t.count.Add(ctx, 1, opt)
	t.seconds.Record(ctx, d.Seconds(), opt)
}

// Metrics records the service's counters and histograms. Every method is a
// no-op on a nil or zero Metrics, which is what a disabled Provider hands out.
type Metrics struct {
	http     timed
	upstream timed
	tools    timed

	oauthCallbacks metric.Int64Counter
	oauthRefreshes metric.Int64Counter

	briefings      metric.Int64Counter
	briefingEvents metric.Int64Histogram

	detailedLabels bool
}

// instruments collects creation errors so NewMetrics reads as a list.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		in.errs = append(in.errs, fmt.Errorf("counter %s: %w", name, err))
	}
	return c
}

func (in *instruments) seconds(name, desc string, buckets []float64) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		in.errs = append(in.errs, fmt.Errorf("histogram %s: %w", name, err))
	}
	return h
}

// NewMetrics creates every instrument on meter. detailedLabels adds the
// credential account to briefing metrics.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	in := &instruments{meter: meter}

	m := &Metrics{
		http: timed{
			count:   in.counter("http_requests_total", "HTTP requests served", "{request}"),
			seconds: in.seconds("http_request_duration_seconds", "HTTP request latency", httpBuckets),
		},
		upstream: timed{
			count:   in.counter("google_api_operations_total", "Calls to Google APIs", "{operation}"),
			seconds: in.seconds("google_api_operation_duration_seconds", "Google API call latency", upstreamBuckets),
		},
		tools: timed{
			count:   in.counter("mcp_tool_invocations_total", "MCP tool calls", "{invocation}"),
			seconds: in.seconds("mcp_tool_duration_seconds", "MCP tool latency", upstreamBuckets),
		},
		oauthCallbacks: in.counter("oauth_auth_total", "OAuth callbacks by result", "{attempt}"),
		oauthRefreshes: in.counter("oauth_token_refresh_total", "Access token refreshes by result", "{attempt}"),
		briefings:      in.counter("briefings_total", "Daily briefings by result", "{briefing}"),
		detailedLabels: detailedLabels,
	}

	events, err := meter.Int64Histogram("briefing_events",
		metric.WithDescription("Events per successful briefing"),
		metric.WithUnit("{event}"),
		metric.WithExplicitBucketBoundaries(eventBuckets...),
	)
	if err != nil {
		in.errs = append(in.errs, fmt.Errorf("histogram briefing_events: %w", err))
	}
	m.briefingEvents = events

	if err := errors.Join(in.errs...); err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return m, nil
}

// RecordHTTPRequest counts one served request. route must be the matched
// pattern, never the raw path.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.http.record(ctx, duration,
		attribute.String(attrMethod, method),
		attribute.String(attrPath, route),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
}

// RecordGoogleAPIOperation counts one call to a Google service, e.g.
// (ServiceCalendar, OperationList, StatusSuccess).
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstream.record(ctx, duration,
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
}

// RecordOAuthAuth counts an authorization callback. result is
// OAuthResultSuccess or an authorization error kind.
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthCallbacks == nil {
		return
	}
	m.oauthCallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthTokenRefresh counts a refresh with one of the OAuthResult values.
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthRefreshes == nil {
		return
	}
	m.oauthRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordBriefing counts a briefing. result is StatusSuccess or a briefing
// error kind; events is only observed on success.
func (m *Metrics) RecordBriefing(ctx context.Context, result, account string, events int) {
	if m == nil || m.briefings == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(attrResult, result)}
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}
	m.briefings.Add(ctx, 1, metric.WithAttributes(attrs...))

	if result == StatusSuccess && m.briefingEvents != nil {
		m.briefingEvents.Record(ctx, int64(events))
	}
}

// RecordToolInvocation counts one MCP tool call.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.tools.record(ctx, duration,
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
}
