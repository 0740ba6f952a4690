package google

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultStateTTL is how long a login may take between consent URL and callback.
	DefaultStateTTL = 10 * time.Minute

	stateBytes = 32
)

var (
	// ErrUnknownState is returned for a state that was never issued or was already consumed.
	ErrUnknownState = errors.New("unknown oauth state")

	// ErrStateExpired is returned for a state whose TTL has passed.
	ErrStateExpired = errors.New("oauth state expired")
)

// StateStore tracks the state values handed out with consent URLs.
// Each state can be consumed once.
type StateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

// NewStateStore creates a StateStore whose states live for ttl.
// A non-positive ttl selects DefaultStateTTL.
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{
		states: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue generates and records a new state value.
func (s *StateStore) Issue() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.states[state] = now.Add(s.ttl)
	return state, nil
}

// Consume validates a state and removes it so it cannot be replayed.
func (s *StateStore) Consume(state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.states[state]
	if !ok {
		return ErrUnknownState
	}
	delete(s.states, state)

	if s.now().After(expiry) {
		return ErrStateExpired
	}
	return nil
}

// Len returns the number of outstanding states.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *StateStore) pruneLocked(now time.Time) {
	for state, expiry := range s.states {
		if now.After(expiry) {
			delete(s.states, state)
		}
	}
}
