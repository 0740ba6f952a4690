// Package logging provides structured logging utilities for korima.
//
// It centralizes attribute naming so every component logs the same keys with
// the standard library's slog package, and builds the process logger from the
// configured level and format.
//
// # Usage Patterns
//
//	logger := logging.WithOperation(slog.Default(), "briefing.daily")
//	logger.Warn("calendar fetch failed",
//	    logging.Kind("upstream_unavailable"),
//	    logging.Err(err))
//
// # Security Considerations
//
// Tokens and client secrets are never logged directly; use SanitizeToken when a
// token has to be referenced at all.
package logging
