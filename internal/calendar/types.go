package calendar

import (
	"fmt"

	calendar "google.golang.org/api/calendar/v3"
)

// untitled is shown for events the owner never gave a title.
const untitled = "(No title)"

// EventSummary is the simplified view of a calendar event used by the briefing.
type EventSummary struct {
	ID    string
	Title string

	// Start is the event's start dateTime (RFC 3339) or, for all-day events,
	// its start date (YYYY-MM-DD), exactly as returned by the API.
	Start  string
	AllDay bool
}

// Line renders the summary as a briefing line.
func (e EventSummary) Line() string {
	return fmt.Sprintf("Event: %s at %s", e.Title, e.Start)
}

// toEventSummary converts a Google Calendar event to an EventSummary.
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:    event.Id,
		Title: event.Summary,
	}
	if summary.Title == "" {
		summary.Title = untitled
	}

	// Prefer the full date-time over the all-day date
	if event.Start != nil {
		if event.Start.DateTime != "" {
			summary.Start = event.Start.DateTime
		} else {
			summary.Start = event.Start.Date
			summary.AllDay = event.Start.Date != ""
		}
	}

	return summary
}
