//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sessionsale/internal/artifact/models"
	"sessionsale/internal/artifact/store"
	credentialmodels "sessionsale/internal/credential/models"
	credentialstore "sessionsale/internal/credential/store"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/sentinel"
	"sessionsale/pkg/testutil/containers"
)

type PostgresManifestSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	cred     id.CredentialID
	now      time.Time
}

func TestPostgresManifestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresManifestSuite))
}

func (s *PostgresManifestSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresManifestSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "credential_artifacts", "sale_records", "credentials"))
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c, err := credentialmodels.NewCredential(id.NewCredentialID(), "+15550200", "", "", "secret", s.now)
	s.Require().NoError(err)
	s.Require().NoError(credentialstore.NewPostgres(s.postgres.DB).Create(ctx, c))
	s.cred = c.ID
}

func (s *PostgresManifestSuite) artifact(path string, kind models.Kind, offset time.Duration) *models.Artifact {
	a, err := models.NewArtifact(id.NewArtifactID(), s.cred, path, kind, "digest-"+path, s.now.Add(offset))
	s.Require().NoError(err)
	return a
}

func (s *PostgresManifestSuite) TestManifestLifecycle() {
	ctx := context.Background()
	primary := s.artifact("a.session", models.KindPrimary, 0)
	journal := s.artifact("a.session-journal", models.KindSidecar, time.Second)
	s.Require().NoError(s.store.Register(ctx, primary))
	s.Require().NoError(s.store.Register(ctx, journal))

	s.Run("one live primary", func() {
		err := s.store.Register(ctx, s.artifact("b.session", models.KindPrimary, 0))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Require().NoError(s.store.MarkDeleted(ctx, primary.ID, s.now.Add(time.Minute)))
	s.Require().NoError(s.store.MarkDeleted(ctx, primary.ID, s.now.Add(time.Hour)))

	list, err := s.store.ListByCredential(ctx, s.cred)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("a.session", list[0].Path)
	s.Equal("digest-a.session", list[0].Digest)
	s.Require().NotNil(list[0].DeletedAt)
	s.True(list[0].DeletedAt.Equal(s.now.Add(time.Minute)), "first deletion time is kept")
	s.Nil(list[1].DeletedAt)

	s.ErrorIs(s.store.MarkDeleted(ctx, id.NewArtifactID(), s.now), sentinel.ErrNotFound)
}
