package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/cors"
)

// corsMethods are the methods the frontend may use.
var corsMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodHead,
}

// originOf reduces a URL to its origin (scheme://host[:port]).
func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid frontend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid frontend URL %q: scheme and host are required", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// corsLogger routes rs/cors debug output through slog.
type corsLogger struct {
	logger *slog.Logger
}

func (l corsLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "cors")
}

// newCORS allows credentialed cross-origin requests from exactly one origin.
// With debug set, rs/cors decisions are logged to logger at debug level.
func newCORS(origin string, debug bool, logger *slog.Logger) *cors.Cors {
	opts := cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   corsMethods,
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	if debug {
		opts.Logger = corsLogger{logger: logger}
	}
	return cors.New(opts)
}
