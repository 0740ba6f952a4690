package google

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// AuthErrorKind classifies a failed authorization callback.
type AuthErrorKind string

const (
	// AuthAccessDenied means the user declined consent or the provider
	// reported an error on the redirect.
	AuthAccessDenied AuthErrorKind = "access_denied"

	// AuthMissingCode means the callback carried no authorization code.
	AuthMissingCode AuthErrorKind = "missing_code"

	// AuthInvalidState means the state was unknown, expired or already used.
	AuthInvalidState AuthErrorKind = "invalid_state"

	// AuthExchangeRejected means the token endpoint refused the code.
	AuthExchangeRejected AuthErrorKind = "exchange_rejected"

	// AuthExchangeUnavailable means the token endpoint could not be reached
	// or answered with something that is not a token.
	AuthExchangeUnavailable AuthErrorKind = "exchange_unavailable"
)

// HTTPStatus returns the status code a handler answers with for this kind.
func (k AuthErrorKind) HTTPStatus() int {
	switch k {
	case AuthAccessDenied:
		return http.StatusForbidden
	case AuthMissingCode, AuthInvalidState, AuthExchangeRejected:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// Message returns the user-facing message for this kind.
func (k AuthErrorKind) Message() string {
	switch k {
	case AuthAccessDenied:
		return "Access to your calendar was not granted."
	case AuthMissingCode:
		return "Authorization code is missing."
	case AuthInvalidState:
		return "Login session is invalid or has expired. Please log in again."
	case AuthExchangeRejected:
		return "Authorization code was rejected. Please log in again."
	default:
		return "Could not complete login with Google. Please try again later."
	}
}

// AuthError is returned by OAuthClient.Exchange when a callback cannot be
// turned into a credential.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// AsAuthError returns the *AuthError in err's chain, if any.
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// ErrReauthRequired is wrapped into token errors that cannot be fixed
// without a new login: the refresh token was rejected or there is none.
var ErrReauthRequired = errors.New("re-authentication required")

// classifyExchangeError maps a token endpoint failure to an AuthErrorKind.
func classifyExchangeError(err error) AuthErrorKind {
	if grantRejected(err) {
		return AuthExchangeRejected
	}
	return AuthExchangeUnavailable
}

// grantRejected reports whether the token endpoint answered with a 4xx OAuth
// error such as invalid_grant or invalid_client.
func grantRejected(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	if re.Response == nil {
		return re.ErrorCode != ""
	}
	return re.Response.StatusCode >= 400 && re.Response.StatusCode < 500
}
