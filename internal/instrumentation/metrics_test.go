package instrumentation

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newRecordedMetrics returns Metrics backed by a manual reader so tests can
// collect what was recorded.
func newRecordedMetrics(t *testing.T, detailedLabels bool) (*Metrics, func() map[string]metricdata.Aggregation) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailedLabels)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	collect := func() map[string]metricdata.Aggregation {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			t.Fatalf("Collect: %v", err)
		}
		out := map[string]metricdata.Aggregation{}
		for _, sm := range rm.ScopeMetrics {
			for _, md := range sm.Metrics {
				out[md.Name] = md.Data
			}
		}
		return out
	}
	return m, collect
}

func sumPoints(t *testing.T, data metricdata.Aggregation) []metricdata.DataPoint[int64] {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("aggregation is %T, want Sum[int64]", data)
	}
	return sum.DataPoints
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m, collect := newRecordedMetrics(t, false)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "GET", "GET /api/daily-briefing", 200, 100*time.Millisecond)
	m.RecordHTTPRequest(ctx, "GET", "GET /api/daily-briefing", 200, 20*time.Millisecond)
	m.RecordHTTPRequest(ctx, "GET", "GET /api/auth/google/callback", 400, 50*time.Millisecond)

	got := collect()
	points := sumPoints(t, got["http_requests_total"])
	if len(points) != 2 {
		t.Fatalf("series = %d, want 2 (one per route/status)", len(points))
	}
	for _, p := range points {
		status, _ := p.Attributes.Value(attrStatus)
		want := int64(2)
		if status.AsString() == "400" {
			want = 1
		}
		if p.Value != want {
			t.Errorf("status %s count = %d, want %d", status.AsString(), p.Value, want)
		}
	}

	hist, ok := got["http_request_duration_seconds"].(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 2 {
		t.Fatalf("duration histogram = %#v", got["http_request_duration_seconds"])
	}
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	m, collect := newRecordedMetrics(t, false)
	ctx := context.Background()

	m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationList, StatusSuccess, 200*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationList, StatusError, 500*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceOAuth, OperationExchange, StatusSuccess, 100*time.Millisecond)

	if n := len(sumPoints(t, collect()["google_api_operations_total"])); n != 3 {
		t.Errorf("series = %d, want 3", n)
	}
}

func TestMetrics_OAuthCounters(t *testing.T) {
	m, collect := newRecordedMetrics(t, false)
	ctx := context.Background()

	m.RecordOAuthAuth(ctx, OAuthResultSuccess)
	m.RecordOAuthAuth(ctx, "invalid_state")
	m.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultExpired)

	got := collect()
	if n := len(sumPoints(t, got["oauth_auth_total"])); n != 2 {
		t.Errorf("oauth_auth_total series = %d, want 2", n)
	}
	if n := len(sumPoints(t, got["oauth_token_refresh_total"])); n != 3 {
		t.Errorf("oauth_token_refresh_total series = %d, want 3", n)
	}
}

func TestMetrics_RecordBriefing(t *testing.T) {
	tests := []struct {
		name           string
		detailedLabels bool
		wantAccount    bool
	}{
		{name: "account omitted by default", detailedLabels: false, wantAccount: false},
		{name: "account with detailed labels", detailedLabels: true, wantAccount: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, collect := newRecordedMetrics(t, tt.detailedLabels)
			ctx := context.Background()

			m.RecordBriefing(ctx, StatusSuccess, "default", 5)
			m.RecordBriefing(ctx, "unauthenticated", "default", 0)

			got := collect()
			for _, p := range sumPoints(t, got["briefings_total"]) {
				_, has := p.Attributes.Value(attribute.Key(attrAccount))
				if has != tt.wantAccount {
					t.Errorf("account label present = %v, want %v", has, tt.wantAccount)
				}
			}

			events, ok := got["briefing_events"].(metricdata.Histogram[int64])
			if !ok || len(events.DataPoints) != 1 {
				t.Fatalf("briefing_events = %#v", got["briefing_events"])
			}
			if dp := events.DataPoints[0]; dp.Count != 1 || dp.Sum != 5 {
				t.Errorf("briefing_events count=%d sum=%d, want only the successful briefing", dp.Count, dp.Sum)
			}
		})
	}
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	m, collect := newRecordedMetrics(t, false)
	ctx := context.Background()

	m.RecordToolInvocation(ctx, "calendar_daily_briefing", StatusSuccess, 100*time.Millisecond)
	m.RecordToolInvocation(ctx, "calendar_daily_briefing", StatusError, 500*time.Millisecond)

	if n := len(sumPoints(t, collect()["mcp_tool_invocations_total"])); n != 2 {
		t.Errorf("series = %d, want 2", n)
	}
}

func TestNewMetrics_NoopMeter(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"), true)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordBriefing(context.Background(), StatusSuccess, "default", 1)
}

func TestMetrics_ZeroAndNilAreNoOps(t *testing.T) {
	ctx := context.Background()

	for name, m := range map[string]*Metrics{"zero": {}, "nil": nil} {
		t.Run(name, func(t *testing.T) {
			m.RecordHTTPRequest(ctx, "GET", "GET /", 200, time.Millisecond)
			m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationList, StatusError, time.Millisecond)
			m.RecordOAuthAuth(ctx, OAuthResultFailure)
			m.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)
			m.RecordBriefing(ctx, "upstream_unavailable", "default", 0)
			m.RecordToolInvocation(ctx, "test_tool", StatusError, time.Millisecond)
		})
	}
}
