package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/korima-app/korima/internal/credential"
	"github.com/korima-app/korima/internal/instrumentation"
	"github.com/korima-app/korima/internal/logging"
)

// HTTPClient returns a client that authorizes requests with cred.
//
// When the access token has expired it is refreshed against the credential's
// own token endpoint, and onRefresh (if non-nil) receives the new token so the
// caller can persist it. Token errors that need a new login wrap
// ErrReauthRequired.
func (c *OAuthClient) HTTPClient(ctx context.Context, cred *credential.Credential, onRefresh func(*oauth2.Token)) *http.Client {
	ctx = c.clientContext(ctx)
	token := cred.OAuth2Token()

	src := &refreshingTokenSource{
		ctx:        ctx,
		base:       cred.OAuth2Config().TokenSource(ctx, token),
		last:       token.AccessToken,
		hasRefresh: cred.RefreshToken != "",
		onRefresh:  onRefresh,
		metrics:    c.metrics,
		logger:     c.logger,
	}
	return oauth2.NewClient(ctx, src)
}

// refreshingTokenSource reports every new access token the underlying source
// hands out and classifies refresh failures.
type refreshingTokenSource struct {
	ctx        context.Context
	base       oauth2.TokenSource
	hasRefresh bool
	onRefresh  func(*oauth2.Token)
	metrics    *instrumentation.Metrics
	logger     *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *refreshingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.base.Token()
	if err != nil {
		if !s.hasRefresh || grantRejected(err) {
			s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultExpired)
			return nil, fmt.Errorf("%w: %w", ErrReauthRequired, err)
		}
		s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if token.AccessToken != s.last {
		s.last = token.AccessToken
		s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultSuccess)
		s.logger.Debug("Refreshed access token",
			logging.Operation("oauth.refresh"),
			slog.String("access_token", logging.SanitizeToken(token.AccessToken)),
			slog.Time("expiry", token.Expiry),
		)
		if s.onRefresh != nil {
			s.onRefresh(token)
		}
	}
	return token, nil
}
