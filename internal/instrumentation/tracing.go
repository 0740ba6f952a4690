package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer behind every span this service starts.
const TracerName = "github.com/korima-app/korima"

// Span attribute keys.
const (
	SpanAttrTool       = "mcp.tool"
	SpanAttrService    = "google.service"
	SpanAttrOperation  = "google.operation"
	SpanAttrAccount    = "korima.account"
	SpanAttrCalendarID = "calendar.id"
	SpanAttrEventCount = "calendar.event_count"
	SpanAttrErrorKind  = "korima.error_kind"
)

// AccountAttr tags a span with the credential account.
func AccountAttr(account string) attribute.KeyValue {
	return attribute.String(SpanAttrAccount, account)
}

// CalendarAttr tags a span with the calendar being read.
func CalendarAttr(calendarID string) attribute.KeyValue {
	return attribute.String(SpanAttrCalendarID, calendarID)
}

// EventCountAttr tags a span with the number of events returned.
func EventCountAttr(n int) attribute.KeyValue {
	return attribute.Int(SpanAttrEventCount, n)
}

// tracer resolves through the global provider on every call so spans follow
// whichever Provider was installed last.
func tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts an internal span. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts the server span of an MCP tool call, named "tool.<name>".
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
}

// StartGoogleAPISpan starts the client span of a Google call, named
// "google.<service>.<operation>".
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// SetSpanError marks span failed. A nil err leaves it untouched.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanErrorKind is SetSpanError plus the classified kind as an attribute.
func SetSpanErrorKind(span trace.Span, kind string, err error) {
	span.SetAttributes(attribute.String(SpanAttrErrorKind, kind))
	SetSpanError(span, err)
}

// SetSpanSuccess marks span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent records a named event on span.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID of the span in ctx, or "" when there is
// no sampled or remote span.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
