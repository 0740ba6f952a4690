package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans installs a recording tracer provider for the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func onlySpan(t *testing.T, rec *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	return ended[0]
}

func attrValue(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartSpan_Attributes(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartSpan(context.Background(), "briefing.daily", AccountAttr("default"), CalendarAttr("primary"))
	span.SetAttributes(EventCountAttr(3))
	SetSpanSuccess(span)
	span.End()

	got := onlySpan(t, rec)
	if got.Name() != "briefing.daily" {
		t.Errorf("name = %q", got.Name())
	}
	if got.SpanKind() != trace.SpanKindInternal {
		t.Errorf("kind = %v, want internal", got.SpanKind())
	}
	if got.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", got.Status().Code)
	}

	want := map[string]attribute.Value{
		SpanAttrAccount:    attribute.StringValue("default"),
		SpanAttrCalendarID: attribute.StringValue("primary"),
		SpanAttrEventCount: attribute.IntValue(3),
	}
	for key, v := range want {
		if gotV, ok := attrValue(got, key); !ok || gotV != v {
			t.Errorf("%s = %v (present %v), want %v", key, gotV.Emit(), ok, v.Emit())
		}
	}
}

func TestStartToolSpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartToolSpan(context.Background(), "calendar_daily_briefing")
	span.End()

	got := onlySpan(t, rec)
	if got.Name() != "tool.calendar_daily_briefing" {
		t.Errorf("name = %q", got.Name())
	}
	if got.SpanKind() != trace.SpanKindServer {
		t.Errorf("kind = %v, want server", got.SpanKind())
	}
	if v, _ := attrValue(got, SpanAttrTool); v.AsString() != "calendar_daily_briefing" {
		t.Errorf("%s = %q", SpanAttrTool, v.AsString())
	}
}

func TestStartGoogleAPISpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartGoogleAPISpan(context.Background(), ServiceCalendar, OperationList, CalendarAttr("team@example.com"))
	span.End()

	got := onlySpan(t, rec)
	if got.Name() != "google.calendar.list" {
		t.Errorf("name = %q", got.Name())
	}
	if got.SpanKind() != trace.SpanKindClient {
		t.Errorf("kind = %v, want client", got.SpanKind())
	}
	for key, want := range map[string]string{
		SpanAttrService:    ServiceCalendar,
		SpanAttrOperation:  OperationList,
		SpanAttrCalendarID: "team@example.com",
	} {
		if v, _ := attrValue(got, key); v.AsString() != want {
			t.Errorf("%s = %q, want %q", key, v.AsString(), want)
		}
	}
}

func TestSetSpanErrorKind(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartSpan(context.Background(), "briefing.daily")
	SetSpanErrorKind(span, "upstream_unavailable", errors.New("connection refused"))
	span.End()

	got := onlySpan(t, rec)
	if got.Status().Code != codes.Error || got.Status().Description != "connection refused" {
		t.Errorf("status = %+v", got.Status())
	}
	if v, _ := attrValue(got, SpanAttrErrorKind); v.AsString() != "upstream_unavailable" {
		t.Errorf("%s = %q", SpanAttrErrorKind, v.AsString())
	}
	if len(got.Events()) != 1 || got.Events()[0].Name != "exception" {
		t.Errorf("events = %+v, want one exception", got.Events())
	}
}

func TestSetSpanError_NilLeavesStatus(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartSpan(context.Background(), "noop")
	SetSpanError(span, nil)
	span.End()

	if got := onlySpan(t, rec); got.Status().Code != codes.Unset || len(got.Events()) != 0 {
		t.Errorf("status = %+v events = %d", got.Status(), len(got.Events()))
	}
}

func TestAddSpanEvent(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartToolSpan(context.Background(), "calendar_daily_briefing")
	AddSpanEvent(span, "tool.error_result", attribute.String("reason", "unauthenticated"))
	span.End()

	events := onlySpan(t, rec).Events()
	if len(events) != 1 || events[0].Name != "tool.error_result" {
		t.Fatalf("events = %+v", events)
	}
}

func TestGetTraceID(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID without span = %q, want empty", id)
	}

	recordSpans(t)
	ctx, span := StartSpan(context.Background(), "outer")
	defer span.End()

	id := GetTraceID(ctx)
	if id != span.SpanContext().TraceID().String() {
		t.Errorf("GetTraceID = %q, want %q", id, span.SpanContext().TraceID())
	}
	if len(id) != 32 {
		t.Errorf("trace id %q is not 32 hex chars", id)
	}
}
