// Package store persists credentials. Stores return sentinel errors; the
// credential service translates them into domain errors.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sessionsale/internal/credential/models"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/sentinel"
)

// InMemoryStore keeps credentials in a map for tests and local development.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]*models.Credential
	byPhone     map[string]id.CredentialID
}

// NewInMemory constructs an empty in-memory credential store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		credentials: make(map[id.CredentialID]*models.Credential),
		byPhone:     make(map[string]id.CredentialID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[c.ID]; ok {
		return fmt.Errorf("credential %s already exists: %w", c.ID, sentinel.ErrConflict)
	}
	if _, ok := s.byPhone[c.PhoneNumber]; ok {
		return fmt.Errorf("phone number already onboarded: %w", sentinel.ErrConflict)
	}
	s.credentials[c.ID] = c.Clone()
	s.byPhone[c.PhoneNumber] = c.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[credentialID]
	if !ok {
		return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	return c.Clone(), nil
}

// Execute validates and mutates a credential under the store lock.
// validate sees a copy; when it fails nothing is written.
func (s *InMemoryStore) Execute(_ context.Context, credentialID id.CredentialID, validate func(*models.Credential) error, mutate func(*models.Credential)) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.credentials[credentialID]
	if !ok {
		return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.credentials[credentialID] = working
	return working.Clone(), nil
}

// MarkSoldIfSellable swaps in the retired credential in one assignment so no
// reader sees SOLD with the secret still present.
func (s *InMemoryStore) MarkSoldIfSellable(_ context.Context, credentialID id.CredentialID, price decimal.Decimal, at time.Time) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.credentials[credentialID]
	if !ok {
		return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	if err := current.CanMarkSold(at); err != nil {
		return nil, translateMarkSoldError(current, err)
	}
	retired := current.Clone()
	retired.ApplySold(price, at)
	s.credentials[credentialID] = retired
	return retired.Clone(), nil
}

// ListSold returns SOLD credentials ordered by sale time.
func (s *InMemoryStore) ListSold(_ context.Context) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Credential
	for _, c := range s.credentials {
		if c.IsSold() {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SoldAt.Before(*out[j].SoldAt)
	})
	return out, nil
}

// translateMarkSoldError maps a failed retirement precondition to a sentinel.
func translateMarkSoldError(c *models.Credential, err error) error {
	if c.IsSold() || !c.HasSessionMaterial() {
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrAlreadyUsed)
	}
	return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrInvalidState)
}
