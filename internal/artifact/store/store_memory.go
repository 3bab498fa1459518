// Package store persists the artifact manifest.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sessionsale/internal/artifact/models"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/sentinel"
)

// InMemoryStore keeps manifest entries per credential.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[id.ArtifactID]*models.Artifact
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[id.ArtifactID]*models.Artifact)}
}

// Register adds an entry. A duplicate path or a second live primary for the
// same credential is sentinel.ErrConflict.
func (s *InMemoryStore) Register(_ context.Context, a *models.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.artifacts {
		if existing.CredentialID != a.CredentialID {
			continue
		}
		if existing.Path == a.Path {
			return fmt.Errorf("artifact %s already registered: %w", a.Path, sentinel.ErrConflict)
		}
		if a.IsPrimary() && existing.IsPrimary() && !existing.IsDeleted() {
			return fmt.Errorf("credential already has a primary artifact: %w", sentinel.ErrConflict)
		}
	}
	s.artifacts[a.ID] = a.Clone()
	return nil
}

// ListByCredential returns every entry, deleted ones included, oldest first.
func (s *InMemoryStore) ListByCredential(_ context.Context, credentialID id.CredentialID) ([]*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Artifact
	for _, a := range s.artifacts {
		if a.CredentialID == credentialID {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].Path < out[j].Path
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

// MarkDeleted stamps the deletion time. Marking twice keeps the first time.
func (s *InMemoryStore) MarkDeleted(_ context.Context, artifactID id.ArtifactID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[artifactID]
	if !ok {
		return fmt.Errorf("artifact not found: %w", sentinel.ErrNotFound)
	}
	a.MarkDeleted(at)
	return nil
}
