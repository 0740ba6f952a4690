// Package calendar provides a read-only client for the Google Calendar v3 API.
//
// The client only lists upcoming events and reduces each one to an
// EventSummary. Authorization is supplied by the caller as an *http.Client,
// so the package never touches tokens itself.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, authorizedHTTPClient, calendar.ClientOptions{})
//	if err != nil {
//	    return err
//	}
//
//	events, err := client.UpcomingEvents(ctx, calendar.DefaultCalendarID, time.Now(), 5)
//	if err != nil {
//	    return err
//	}
package calendar
