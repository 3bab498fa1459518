// Package store is the sale ledger. Records are appended on initiation and
// only ever move forward along the sale status table; terminal records are
// never written again.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sessionsale/internal/sale/models"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/sentinel"
)

// InMemoryStore keeps the ledger in memory. seq preserves insertion order
// for records created within the same instant.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.SaleID]*entry
	seq     uint64
}

type entry struct {
	record *models.SaleRecord
	seq    uint64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.SaleID]*entry)}
}

// CreateIfNoActive appends r unless its credential already has a PENDING or
// APPROVED record. The check and the insert share one critical section.
func (s *InMemoryStore) CreateIfNoActive(_ context.Context, r *models.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.records {
		if e.record.CredentialID == r.CredentialID && e.record.Status.IsActive() {
			return fmt.Errorf("credential %s has active sale %s: %w", r.CredentialID, e.record.ID, sentinel.ErrConflict)
		}
	}
	if _, ok := s.records[r.ID]; ok {
		return fmt.Errorf("sale %s already exists: %w", r.ID, sentinel.ErrConflict)
	}
	s.seq++
	s.records[r.ID] = &entry{record: r.Clone(), seq: s.seq}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, saleID id.SaleID) (*models.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[saleID]
	if !ok {
		return nil, fmt.Errorf("sale not found: %w", sentinel.ErrNotFound)
	}
	return e.record.Clone(), nil
}

// RecordReview applies a decision to a PENDING record.
func (s *InMemoryStore) RecordReview(_ context.Context, saleID id.SaleID, decision models.Decision, review models.Review, buyer *models.Buyer) (*models.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[saleID]
	if !ok {
		return nil, fmt.Errorf("sale not found: %w", sentinel.ErrNotFound)
	}
	if err := e.record.CanReview(decision); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), sentinel.ErrInvalidState)
	}
	updated := e.record.Clone()
	updated.ApplyReview(decision, review, buyer)
	e.record = updated
	return updated.Clone(), nil
}

// RecordCompletion moves an APPROVED record to COMPLETED.
func (s *InMemoryStore) RecordCompletion(_ context.Context, saleID id.SaleID, buyer *models.Buyer, at time.Time) (*models.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[saleID]
	if !ok {
		return nil, fmt.Errorf("sale not found: %w", sentinel.ErrNotFound)
	}
	if err := e.record.CanComplete(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), sentinel.ErrInvalidState)
	}
	updated := e.record.Clone()
	updated.ApplyCompletion(buyer, at)
	e.record = updated
	return updated.Clone(), nil
}

// LatestByCredential returns the most recently created record.
func (s *InMemoryStore) LatestByCredential(ctx context.Context, credentialID id.CredentialID) (*models.SaleRecord, error) {
	list, err := s.ListByCredential(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no sales for credential: %w", sentinel.ErrNotFound)
	}
	return list[0], nil
}

// ListByCredential returns the credential's records, newest first.
func (s *InMemoryStore) ListByCredential(_ context.Context, credentialID id.CredentialID) ([]*models.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []*entry
	for _, e := range s.records {
		if e.record.CredentialID == credentialID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })
	out := make([]*models.SaleRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.record.Clone())
	}
	return out, nil
}

// ListApprovedBefore returns APPROVED records reviewed before cutoff, oldest first.
func (s *InMemoryStore) ListApprovedBefore(_ context.Context, cutoff time.Time) ([]*models.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SaleRecord
	for _, e := range s.records {
		r := e.record
		if r.Status == models.SaleStatusApproved && r.Review != nil && r.Review.ReviewedAt.Before(cutoff) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Review.ReviewedAt.Before(out[j].Review.ReviewedAt) })
	return out, nil
}
