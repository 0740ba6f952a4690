package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Attribute keys used across packages.
const (
	KeyOperation = "operation"
	KeyAccount   = "account"
	KeyKind      = "kind"
	KeyError     = "error"
)

// secretKeys are masked by every logger built with New, whatever the caller
// passed as the value.
var secretKeys = []string{"access_token", "refresh_token", "client_secret", "code"}

func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(Operation(operation))
}

func WithAccount(logger *slog.Logger, account string) *slog.Logger {
	return logger.With(Account(account))
}

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

func Account(account string) slog.Attr { return slog.String(KeyAccount, account) }

// Kind tags a log line with a classified error kind.
func Kind(kind string) slog.Attr { return slog.String(KeyKind, kind) }

// Err is safe to call with a nil error: the empty group it returns is
// dropped by slog.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken keeps only a token's length.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// redactSecrets is a slog ReplaceAttr that masks string values of secretKeys.
// Values that were already sanitized are left alone.
func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	key := strings.ToLower(a.Key)
	for _, secret := range secretKeys {
		if key != secret {
			continue
		}
		v := a.Value.String()
		if strings.HasPrefix(v, "[token:") || v == "<empty>" {
			return a
		}
		return slog.String(a.Key, SanitizeToken(v))
	}
	return a
}
