package google

import (
	calendar "google.golang.org/api/calendar/v3"
)

// DefaultOAuthScopes are the scopes requested at login.
//
// The backend only reads the user's upcoming events, so it asks for the
// read-only Calendar scope and nothing else.
var DefaultOAuthScopes = []string{
	calendar.CalendarReadonlyScope,
}
