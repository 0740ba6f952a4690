package briefing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/korima-app/korima/internal/google"
)

// Kind classifies why a briefing could not be produced.
type Kind string

const (
	// KindUnauthenticated means there is no usable credential: none was
	// stored, the refresh was rejected, or the Calendar API refused the token.
	KindUnauthenticated Kind = "unauthenticated"

	// KindUpstreamUnavailable covers network failures, timeouts, rate limits
	// and 5xx answers from Google.
	KindUpstreamUnavailable Kind = "upstream_unavailable"

	// KindUpstreamRejected means the Calendar API refused the request for a
	// reason other than authentication.
	KindUpstreamRejected Kind = "upstream_rejected"

	// KindMalformedResponse means the Calendar API answered with a body that
	// is not a valid events list.
	KindMalformedResponse Kind = "malformed_response"
)

const (
	messageUnauthenticated = "User not authenticated. Please log in."
	messageRetrieval       = "Could not retrieve calendar events."
)

// HTTPStatus returns the status code a handler answers with for this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUpstreamRejected, KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

// Message returns the user-facing message for this kind. Every retrieval
// failure shares one message; the kind tells them apart.
func (k Kind) Message() string {
	if k == KindUnauthenticated {
		return messageUnauthenticated
	}
	return messageRetrieval
}

// Error is returned by Service.Daily when no briefing can be produced.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var bErr *Error
	if errors.As(err, &bErr) {
		return bErr, true
	}
	return nil, false
}

// rateLimitReasons are the 403 reasons Calendar uses for usage limits.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

func isRateLimited(apiErr *googleapi.Error) bool {
	if apiErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range apiErr.Errors {
		if rateLimitReasons[item.Reason] {
			return true
		}
	}
	return false
}

// classify maps a failed Calendar call to a Kind.
func classify(err error) Kind {
	if errors.Is(err, google.ErrReauthRequired) {
		return KindUnauthenticated
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return KindUnauthenticated
		case apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= 500, isRateLimited(apiErr):
			return KindUpstreamUnavailable
		default:
			return KindUpstreamRejected
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindMalformedResponse
	}

	// Transport failures, timeouts and cancellations
	return KindUpstreamUnavailable
}
