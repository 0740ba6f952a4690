// Package google implements the OAuth2 authorization-code flow against Google.
//
// OAuthClient builds the consent URL (offline access, incremental scopes) and
// exchanges the returned code for a credential. Exchange failures come back as
// a typed *AuthError so handlers can answer with a structured error instead of
// failing opaquely. StateStore issues the single-use state values that tie a
// callback to the login it started from.
//
// HTTPClient turns a stored credential into an authenticated *http.Client whose
// refreshed tokens are handed back to the caller for persistence.
package google
