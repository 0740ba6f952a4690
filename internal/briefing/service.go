package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/korima-app/korima/internal/calendar"
	"github.com/korima-app/korima/internal/credential"
	"github.com/korima-app/korima/internal/instrumentation"
	"github.com/korima-app/korima/internal/logging"
)

const (
	// DefaultMaxEvents is how many upcoming events a briefing lists.
	DefaultMaxEvents = 5

	// MaxEventsLimit is the largest page the Calendar API serves.
	MaxEventsLimit = 250

	DescriptionNoEvents = "You have no upcoming events in your calendar."
	DescriptionUpcoming = "Your upcoming events are:"
)

// Briefing is the simplified view of the user's next events.
type Briefing struct {
	Description string   `json:"description"`
	Events      []string `json:"events,omitempty"`
}

// TokenClient turns a stored credential into an authorized HTTP client.
// onRefresh receives every token obtained by refreshing the credential.
type TokenClient interface {
	HTTPClient(ctx context.Context, cred *credential.Credential, onRefresh func(*oauth2.Token)) *http.Client
}

// Config configures a Service.
type Config struct {
	Store  credential.Store
	Tokens TokenClient

	// Account defaults to credential.DefaultAccount.
	Account string

	// CalendarID defaults to calendar.DefaultCalendarID.
	CalendarID string

	// MaxEvents defaults to DefaultMaxEvents.
	MaxEvents int64

	// CalendarEndpoint overrides the Calendar API base URL.
	CalendarEndpoint string

	// Now defaults to time.Now.
	Now func() time.Time

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Service produces daily briefings from the stored credential.
type Service struct {
	store      credential.Store
	tokens     TokenClient
	account    string
	calendarID string
	maxEvents  int64
	endpoint   string
	now        func() time.Time
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// NewService creates a Service from cfg.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token client is required")
	}
	if cfg.MaxEvents < 0 || cfg.MaxEvents > MaxEventsLimit {
		return nil, fmt.Errorf("max events must be between 1 and %d, got %d", MaxEventsLimit, cfg.MaxEvents)
	}

	s := &Service{
		store:      cfg.Store,
		tokens:     cfg.Tokens,
		account:    cfg.Account,
		calendarID: cfg.CalendarID,
		maxEvents:  cfg.MaxEvents,
		endpoint:   cfg.CalendarEndpoint,
		now:        cfg.Now,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
	if s.account == "" {
		s.account = credential.DefaultAccount
	}
	if s.calendarID == "" {
		s.calendarID = calendar.DefaultCalendarID
	}
	if s.maxEvents == 0 {
		s.maxEvents = DefaultMaxEvents
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = logging.WithAccount(s.logger, s.account)
	return s, nil
}

// Daily returns the briefing for the upcoming events. Failures are *Error.
func (s *Service) Daily(ctx context.Context) (*Briefing, error) {
	ctx, span := instrumentation.StartSpan(ctx, "briefing.daily",
		instrumentation.AccountAttr(s.account),
		instrumentation.CalendarAttr(s.calendarID))
	defer span.End()

	b, err := s.daily(ctx)
	if err != nil {
		kind := KindUpstreamUnavailable
		if bErr, ok := AsError(err); ok {
			kind = bErr.Kind
		}
		instrumentation.SetSpanErrorKind(span, string(kind), err)
		s.metrics.RecordBriefing(ctx, string(kind), s.account, 0)
		return nil, err
	}

	span.SetAttributes(instrumentation.EventCountAttr(len(b.Events)))
	instrumentation.SetSpanSuccess(span)
	s.metrics.RecordBriefing(ctx, instrumentation.StatusSuccess, s.account, len(b.Events))
	return b, nil
}

func (s *Service) daily(ctx context.Context) (*Briefing, error) {
	cred, err := s.store.Load(ctx, s.account)
	if errors.Is(err, credential.ErrNotFound) {
		return nil, &Error{Kind: KindUnauthenticated, Err: err}
	}
	if err != nil {
		return nil, &Error{Kind: KindUpstreamUnavailable, Err: fmt.Errorf("failed to load credential: %w", err)}
	}

	httpClient := s.tokens.HTTPClient(ctx, cred, func(token *oauth2.Token) {
		s.persistRefresh(ctx, cred, token)
	})
	client, err := calendar.NewClient(ctx, httpClient, calendar.ClientOptions{
		Endpoint: s.endpoint,
		Metrics:  s.metrics,
	})
	if err != nil {
		return nil, &Error{Kind: KindUpstreamUnavailable, Err: err}
	}

	events, err := client.UpcomingEvents(ctx, s.calendarID, s.now(), s.maxEvents)
	if err != nil {
		kind := classify(err)
		s.logger.Error("Could not retrieve calendar events",
			logging.Operation("briefing.daily"),
			logging.Kind(string(kind)),
			logging.Err(err),
		)
		if kind == KindUnauthenticated {
			s.forget(ctx, cred)
		}
		return nil, &Error{Kind: kind, Err: err}
	}

	if len(events) == 0 {
		return &Briefing{Description: DescriptionNoEvents}, nil
	}

	lines := make([]string, 0, len(events))
	for _, event := range events {
		lines = append(lines, event.Line())
	}
	return &Briefing{Description: DescriptionUpcoming, Events: lines}, nil
}

// persistRefresh writes a refreshed token back to the store, unless a new
// login replaced the credential while the request was in flight.
func (s *Service) persistRefresh(ctx context.Context, cred *credential.Credential, token *oauth2.Token) {
	if !s.stillCurrent(ctx, cred) {
		return
	}
	if err := s.store.Save(ctx, s.account, cred.WithToken(token)); err != nil {
		s.logger.Warn("Failed to persist refreshed token", logging.Err(err))
	}
}

// forget deletes a credential Google no longer accepts, returning the account
// to the logged-out state.
func (s *Service) forget(ctx context.Context, cred *credential.Credential) {
	if !s.stillCurrent(ctx, cred) {
		return
	}
	if err := s.store.Delete(ctx, s.account); err != nil {
		s.logger.Warn("Failed to delete rejected credential", logging.Err(err))
		return
	}
	s.logger.Info("Deleted rejected credential; a new login is required")
}

// stillCurrent reports whether the store still holds the credential this
// request started with, matched by refresh token.
func (s *Service) stillCurrent(ctx context.Context, cred *credential.Credential) bool {
	current, err := s.store.Load(ctx, s.account)
	if err != nil {
		return false
	}
	return current.RefreshToken == cred.RefreshToken && current.ClientID == cred.ClientID
}
