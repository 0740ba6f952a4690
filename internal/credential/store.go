package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNotFound is returned when no credential is stored for an account.
var ErrNotFound = errors.New("credential not found")

// Store holds OAuth credentials keyed by account.
type Store interface {
	// Save stores the credential for the account, replacing any previous one.
	Save(ctx context.Context, account string, cred *Credential) error

	// Load returns the credential for the account or ErrNotFound.
	Load(ctx context.Context, account string) (*Credential, error)

	// Delete removes the credential for the account. Deleting a missing
	// credential is not an error.
	Delete(ctx context.Context, account string) error
}

// MemoryStore keeps credentials in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	credentials map[string]*Credential
	logger      *slog.Logger
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		credentials: make(map[string]*Credential),
		logger:      logger,
	}
}

// Save stores a copy of the credential for the account.
func (s *MemoryStore) Save(_ context.Context, account string, cred *Credential) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}
	if cred == nil {
		return fmt.Errorf("credential cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced := s.credentials[account]
	s.credentials[account] = cred.Clone()
	s.logger.Debug("Saved credential",
		"account", account,
		"replaced", replaced,
		"expiry", cred.Expiry,
	)
	return nil
}

// Load returns a copy of the credential stored for the account.
func (s *MemoryStore) Load(_ context.Context, account string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.credentials[account]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", account, ErrNotFound)
	}
	return cred.Clone(), nil
}

// Delete removes the credential stored for the account.
func (s *MemoryStore) Delete(_ context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[account]; ok {
		delete(s.credentials, account)
		s.logger.Info("Deleted credential", "account", account)
	}
	return nil
}

// Len returns the number of stored credentials.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.credentials)
}
