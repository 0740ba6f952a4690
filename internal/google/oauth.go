package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/korima-app/korima/internal/credential"
	"github.com/korima-app/korima/internal/instrumentation"
	"github.com/korima-app/korima/internal/logging"
)

// Config configures an OAuthClient.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Scopes defaults to DefaultOAuthScopes.
	Scopes []string

	// Endpoint defaults to Google's authorization and token endpoints.
	Endpoint oauth2.Endpoint

	// HTTPClient is used for token endpoint calls and as the base transport
	// of authorized clients. Defaults to an HTTP/1.1 client.
	HTTPClient *http.Client

	// States defaults to a new StateStore with DefaultStateTTL.
	States *StateStore

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Callback holds the query parameters Google sends to the redirect URL.
type Callback struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
}

// CallbackFromQuery extracts the callback parameters from a redirect query.
func CallbackFromQuery(q url.Values) Callback {
	return Callback{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// OAuthClient drives the authorization-code flow for a single web client.
type OAuthClient struct {
	config     *oauth2.Config
	states     *StateStore
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// NewOAuthClient creates an OAuthClient from cfg.
func NewOAuthClient(cfg Config) (*OAuthClient, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("redirect URL is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	states := cfg.States
	if states == nil {
		states = NewStateStore(DefaultStateTTL)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OAuthClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       append([]string(nil), scopes...),
		},
		states:     states,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     logger,
	}, nil
}

// AuthorizationURL issues a new state and returns the consent URL carrying it.
// The URL asks for offline access so the exchange yields a refresh token, and
// for previously granted scopes to be included.
func (c *OAuthClient) AuthorizationURL() (string, error) {
	state, err := c.states.Issue()
	if err != nil {
		return "", err
	}
	return c.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// Exchange validates a callback and redeems its code for a credential.
// Every failure is an *AuthError.
func (c *OAuthClient) Exchange(ctx context.Context, cb Callback) (*credential.Credential, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth, instrumentation.OperationExchange)
	defer span.End()

	cred, err := c.exchange(ctx, cb)
	if err != nil {
		kind := AuthExchangeUnavailable
		if authErr, ok := AsAuthError(err); ok {
			kind = authErr.Kind
		}
		instrumentation.SetSpanErrorKind(span, string(kind), err)
		c.metrics.RecordOAuthAuth(ctx, string(kind))
		c.logger.Warn("Authorization callback failed",
			logging.Operation("oauth.exchange"),
			logging.Kind(string(kind)),
			logging.Err(err),
		)
		return nil, err
	}

	instrumentation.SetSpanSuccess(span)
	c.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	c.logger.Info("Authorization callback succeeded",
		logging.Operation("oauth.exchange"),
		slog.String("access_token", logging.SanitizeToken(cred.Token)),
		slog.Bool("refresh_token", cred.RefreshToken != ""),
		slog.Any("scopes", cred.Scopes),
	)
	return cred, nil
}

func (c *OAuthClient) exchange(ctx context.Context, cb Callback) (*credential.Credential, error) {
	if cb.Error != "" {
		// The state is spent either way.
		_ = c.states.Consume(cb.State)
		return nil, &AuthError{
			Kind: AuthAccessDenied,
			Err:  fmt.Errorf("provider returned %q: %s", cb.Error, cb.ErrorDescription),
		}
	}
	if cb.Code == "" {
		return nil, &AuthError{Kind: AuthMissingCode}
	}
	if err := c.states.Consume(cb.State); err != nil {
		return nil, &AuthError{Kind: AuthInvalidState, Err: err}
	}

	start := time.Now()
	token, err := c.config.Exchange(c.clientContext(ctx), cb.Code)
	if err != nil {
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth, instrumentation.OperationExchange,
			instrumentation.StatusError, time.Since(start))
		return nil, &AuthError{
			Kind: classifyExchangeError(err),
			Err:  fmt.Errorf("failed to exchange auth code: %w", err),
		}
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth, instrumentation.OperationExchange,
		instrumentation.StatusSuccess, time.Since(start))

	return c.newCredential(token), nil
}

// newCredential captures the token together with the client metadata needed
// to refresh it later.
func (c *OAuthClient) newCredential(token *oauth2.Token) *credential.Credential {
	scopes := append([]string(nil), c.config.Scopes...)
	if granted, ok := token.Extra("scope").(string); ok && strings.TrimSpace(granted) != "" {
		scopes = strings.Fields(granted)
	}

	return &credential.Credential{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		TokenURI:     c.config.Endpoint.TokenURL,
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		Scopes:       scopes,
	}
}

// clientContext makes the oauth2 package use our HTTP client.
func (c *OAuthClient) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// defaultHTTPClient returns a client pinned to HTTP/1.1, avoiding HTTP/2
// protocol errors seen against Google APIs.
func defaultHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ForceAttemptHTTP2 = false
	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}
