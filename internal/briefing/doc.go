// Package briefing builds the daily briefing: the next few events on the
// user's calendar, each reduced to one line.
//
// Service.Daily reads the credential from the injected store, calls the
// Calendar API with it and returns either a *Briefing or an *Error whose Kind
// says what went wrong (unauthenticated, upstream_unavailable,
// upstream_rejected or malformed_response).
//
// Access tokens are refreshed on use and the refreshed token is written back to
// the store. When Google rejects the refresh or the Calendar API rejects the
// token, the credential is deleted and the briefing fails as unauthenticated.
package briefing
