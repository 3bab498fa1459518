package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sessionsale/internal/artifact/models"
	"sessionsale/internal/artifact/storage"
	"sessionsale/internal/artifact/store"
	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
	"sessionsale/pkg/platform/sentinel"
	"sessionsale/pkg/requestcontext"
)

type ArtifactServiceSuite struct {
	suite.Suite
	root     string
	manifest *store.InMemoryStore
	service  *Service
	cred     id.CredentialID
	ctx      context.Context
}

func TestArtifactServiceSuite(t *testing.T) {
	suite.Run(t, new(ArtifactServiceSuite))
}

func (s *ArtifactServiceSuite) SetupTest() {
	s.root = s.T().TempDir()
	s.manifest = store.NewInMemory()
	s.service = New(s.manifest, storage.NewFS(s.root))
	s.cred = id.NewCredentialID()
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
}

func (s *ArtifactServiceSuite) write(rel, content string) {
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	s.Require().NoError(os.MkdirAll(filepath.Dir(full), 0o755))
	s.Require().NoError(os.WriteFile(full, []byte(content), 0o600))
}

func (s *ArtifactServiceSuite) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(rel)))
	return err == nil
}

func (s *ArtifactServiceSuite) TestRegister() {
	s.Run("pins the file digest", func() {
		s.write("+1555.session", "primary-bytes")
		a, err := s.service.Register(s.ctx, s.cred, "+1555.session", models.KindPrimary)
		s.Require().NoError(err)
		s.Equal(storage.Digest([]byte("primary-bytes")), a.Digest)
	})

	s.Run("missing file is a validation error", func() {
		_, err := s.service.Register(s.ctx, s.cred, "nope.session", models.KindSidecar)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("escaping path is a validation error", func() {
		_, err := s.service.Register(s.ctx, s.cred, "../x", models.KindSidecar)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("second primary conflicts", func() {
		s.write("+1555-b.session", "other")
		_, err := s.service.Register(s.ctx, s.cred, "+1555-b.session", models.KindPrimary)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ArtifactServiceSuite) TestArchiveMaterial() {
	secret := "string-session"
	fallback := Fallback{PhoneNumber: "+1 (555) 0100", SessionMaterial: &secret}

	s.Run("falls back to session material", func() {
		m, err := s.service.ArchiveMaterial(s.ctx, s.cred, fallback)
		s.Require().NoError(err)
		s.Equal(SourceSessionMaterial, m.Source)
		s.Equal("+15550100.session", m.Filename)
		s.Equal([]byte(secret), m.Data)
	})

	s.Run("no primary and no material", func() {
		_, err := s.service.ArchiveMaterial(s.ctx, s.cred, Fallback{PhoneNumber: "+1"})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.write("sessions/+15550100.session", "file-session")
	_, err := s.service.Register(s.ctx, s.cred, "sessions/+15550100.session", models.KindPrimary)
	s.Require().NoError(err)

	s.Run("prefers the primary file", func() {
		m, err := s.service.ArchiveMaterial(s.ctx, s.cred, fallback)
		s.Require().NoError(err)
		s.Equal(SourcePrimaryArtifact, m.Source)
		s.Equal("+15550100.session", m.Filename)
		s.Equal("file-session", string(m.Data))
	})

	s.Run("tampered file is refused", func() {
		s.write("sessions/+15550100.session", "tampered")
		_, err := s.service.ArchiveMaterial(s.ctx, s.cred, fallback)
		s.ErrorIs(err, ErrDigestMismatch)
	})
}

func (s *ArtifactServiceSuite) TestDeleteResiduals() {
	s.write("+1555.session", "p")
	s.write("+1555.session-journal", "j")
	_, err := s.service.Register(s.ctx, s.cred, "+1555.session", models.KindPrimary)
	s.Require().NoError(err)
	_, err = s.service.Register(s.ctx, s.cred, "+1555.session-journal", models.KindSidecar)
	s.Require().NoError(err)

	// Someone already removed the journal by hand.
	s.Require().NoError(os.Remove(filepath.Join(s.root, "+1555.session-journal")))

	report, err := s.service.DeleteResiduals(s.ctx, s.cred)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"+1555.session", "+1555.session-journal"}, report.Deleted)
	s.Empty(report.Failed)
	s.False(s.exists("+1555.session"))

	list, err := s.service.List(s.ctx, s.cred)
	s.Require().NoError(err)
	for _, a := range list {
		s.True(a.IsDeleted(), a.Path)
	}

	s.Run("rerun is a no-op", func() {
		report, err := s.service.DeleteResiduals(s.ctx, s.cred)
		s.NoError(err)
		s.Empty(report.Deleted)
		s.Empty(report.Failed)
	})
}

type failingStorage struct {
	Storage
	failPath string
}

func (f failingStorage) Delete(ctx context.Context, relPath string) error {
	if relPath == f.failPath {
		return errors.New("device busy")
	}
	return f.Storage.Delete(ctx, relPath)
}

func (s *ArtifactServiceSuite) TestDeleteResidualsPartialFailure() {
	s.write("a.session", "p")
	s.write("a.session-shm", "x")
	_, err := s.service.Register(s.ctx, s.cred, "a.session", models.KindPrimary)
	s.Require().NoError(err)
	_, err = s.service.Register(s.ctx, s.cred, "a.session-shm", models.KindSidecar)
	s.Require().NoError(err)

	flaky := New(s.manifest, failingStorage{Storage: storage.NewFS(s.root), failPath: "a.session-shm"})
	report, err := flaky.DeleteResiduals(s.ctx, s.cred)
	s.Error(err)
	s.Equal([]string{"a.session"}, report.Deleted)
	s.Equal([]string{"a.session-shm"}, report.Failed)

	// The healthy storage finishes only what is left.
	report, err = s.service.DeleteResiduals(s.ctx, s.cred)
	s.NoError(err)
	s.Equal([]string{"a.session-shm"}, report.Deleted)
}

func TestSessionFilename(t *testing.T) {
	cases := map[string]string{
		"+15550100":        "+15550100.session",
		"+1 (555) 010-0":   "+15550100.session",
		"":                 "session.session",
		"no digits at all": "session.session",
	}
	for in, want := range cases {
		if got := SessionFilename(in); got != want {
			t.Errorf("SessionFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
