package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/korima-app/korima/internal/instrumentation"
)

// DefaultCalendarID selects the signed-in user's primary calendar.
const DefaultCalendarID = "primary"

// ClientOptions configures a Client.
type ClientOptions struct {
	// Endpoint overrides the Calendar API base URL. Empty uses Google's.
	Endpoint string

	Metrics *instrumentation.Metrics
}

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	metrics *instrumentation.Metrics
}

// NewClient creates a Calendar client that sends every request through
// httpClient, which is expected to carry the user's authorization.
func NewClient(ctx context.Context, httpClient *http.Client, opts ClientOptions) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:     svc,
		metrics: opts.Metrics,
	}, nil
}

// UpcomingEvents lists up to maxResults events of a calendar starting at or after
// from, with recurring events expanded into single occurrences and ordered by
// start time. The order of the API response is preserved.
func (c *Client) UpcomingEvents(ctx context.Context, calendarID string, from time.Time, maxResults int64) ([]EventSummary, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList,
		instrumentation.CalendarAttr(calendarID))
	defer span.End()

	start := time.Now()
	events, err := c.svc.Events.List(calendarID).
		TimeMin(from.UTC().Format(time.RFC3339)).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList,
			instrumentation.StatusError, time.Since(start))
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList,
		instrumentation.StatusSuccess, time.Since(start))

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		if event == nil {
			continue
		}
		summaries = append(summaries, toEventSummary(event))
	}

	span.SetAttributes(instrumentation.EventCountAttr(len(summaries)))
	instrumentation.SetSpanSuccess(span)
	return summaries, nil
}
