package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sessionsale/internal/artifact/models"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/sentinel"
)

type InMemoryManifestSuite struct {
	suite.Suite
	store *InMemoryStore
	cred  id.CredentialID
	now   time.Time
}

func TestInMemoryManifestSuite(t *testing.T) {
	suite.Run(t, new(InMemoryManifestSuite))
}

func (s *InMemoryManifestSuite) SetupTest() {
	s.store = NewInMemory()
	s.cred = id.NewCredentialID()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryManifestSuite) artifact(path string, kind models.Kind, offset time.Duration) *models.Artifact {
	a, err := models.NewArtifact(id.NewArtifactID(), s.cred, path, kind, "", s.now.Add(offset))
	s.Require().NoError(err)
	return a
}

func (s *InMemoryManifestSuite) TestRegisterAndList() {
	ctx := context.Background()
	primary := s.artifact("a.session", models.KindPrimary, 0)
	journal := s.artifact("a.session-journal", models.KindSidecar, time.Second)
	s.Require().NoError(s.store.Register(ctx, journal))
	s.Require().NoError(s.store.Register(ctx, primary))

	other := id.NewCredentialID()
	foreign, err := models.NewArtifact(id.NewArtifactID(), other, "b.session", models.KindPrimary, "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Register(ctx, foreign))

	list, err := s.store.ListByCredential(ctx, s.cred)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("a.session", list[0].Path)
	s.Equal("a.session-journal", list[1].Path)
}

func (s *InMemoryManifestSuite) TestRegisterConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Register(ctx, s.artifact("a.session", models.KindPrimary, 0)))

	s.Run("duplicate path", func() {
		err := s.store.Register(ctx, s.artifact("a.session", models.KindSidecar, 0))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("second live primary", func() {
		err := s.store.Register(ctx, s.artifact("b.session", models.KindPrimary, 0))
		s.ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *InMemoryManifestSuite) TestMarkDeleted() {
	ctx := context.Background()
	a := s.artifact("a.session", models.KindPrimary, 0)
	s.Require().NoError(s.store.Register(ctx, a))

	s.Require().NoError(s.store.MarkDeleted(ctx, a.ID, s.now))
	s.Require().NoError(s.store.MarkDeleted(ctx, a.ID, s.now.Add(time.Hour)))

	list, err := s.store.ListByCredential(ctx, s.cred)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Require().NotNil(list[0].DeletedAt)
	s.Equal(s.now, *list[0].DeletedAt)

	s.ErrorIs(s.store.MarkDeleted(ctx, id.NewArtifactID(), s.now), sentinel.ErrNotFound)

	// A deleted primary frees the slot.
	s.NoError(s.store.Register(ctx, s.artifact("c.session", models.KindPrimary, 0)))
}
