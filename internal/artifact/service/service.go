// Package service manages the artifact manifest: registering files against a
// credential, choosing what to archive, and deleting residuals after retirement.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sessionsale/internal/artifact/models"
	"sessionsale/internal/artifact/storage"
	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
	"sessionsale/pkg/platform/sentinel"
	"sessionsale/pkg/requestcontext"
)

// ErrDigestMismatch means the file on disk is not the one that was registered.
var ErrDigestMismatch = errors.New("artifact digest mismatch")

// Manifest persists manifest entries.
type Manifest interface {
	Register(ctx context.Context, a *models.Artifact) error
	ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]*models.Artifact, error)
	MarkDeleted(ctx context.Context, artifactID id.ArtifactID, at time.Time) error
}

// Storage reads and deletes artifact files.
type Storage interface {
	Read(ctx context.Context, relPath string) ([]byte, error)
	Delete(ctx context.Context, relPath string) error
	DigestFile(ctx context.Context, relPath string) (string, error)
}

// Source tells where archived bytes came from.
type Source string

const (
	SourcePrimaryArtifact Source = "primary_artifact"
	SourceSessionMaterial Source = "session_material"
)

// Material is the payload uploaded by the archive step.
type Material struct {
	Filename string
	Data     []byte
	Digest   string
	Source   Source
}

// Fallback describes the credential's own secret, archived when no primary
// file is registered.
type Fallback struct {
	PhoneNumber     string
	SessionMaterial *string
}

// DeleteReport lists what a cleanup pass removed and what it left behind.
type DeleteReport struct {
	Deleted []string
	Failed  []string
}

// Service coordinates the manifest with on-disk storage.
type Service struct {
	manifest Manifest
	storage  Storage
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(manifest Manifest, store Storage, opts ...Option) *Service {
	s := &Service{manifest: manifest, storage: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register records a file that already exists under the artifact root,
// pinning its BLAKE3 digest.
func (s *Service) Register(ctx context.Context, credentialID id.CredentialID, relPath string, kind models.Kind) (*models.Artifact, error) {
	clean, err := models.CleanPath(relPath)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	digest, err := s.storage.DigestFile(ctx, clean)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("artifact %s does not exist", clean))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to digest artifact")
	}
	a, err := models.NewArtifact(id.NewArtifactID(), credentialID, clean, kind, digest, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := s.manifest.Register(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "artifact conflicts with the credential manifest")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register artifact")
	}
	return a, nil
}

// List returns the manifest for a credential, deleted entries included.
func (s *Service) List(ctx context.Context, credentialID id.CredentialID) ([]*models.Artifact, error) {
	list, err := s.manifest.ListByCredential(ctx, credentialID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list artifacts")
	}
	return list, nil
}

// ArchiveMaterial returns the bytes to upload before retirement: the live
// primary file when one is registered and its digest still matches, otherwise
// the credential's session material.
func (s *Service) ArchiveMaterial(ctx context.Context, credentialID id.CredentialID, fallback Fallback) (*Material, error) {
	list, err := s.manifest.ListByCredential(ctx, credentialID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	for _, a := range list {
		if !a.IsPrimary() || a.IsDeleted() {
			continue
		}
		data, err := s.storage.Read(ctx, a.Path)
		if err != nil {
			return nil, err
		}
		digest := storage.Digest(data)
		if a.Digest != "" && a.Digest != digest {
			return nil, fmt.Errorf("%s: %w", a.Path, ErrDigestMismatch)
		}
		return &Material{Filename: a.Filename(), Data: data, Digest: digest, Source: SourcePrimaryArtifact}, nil
	}

	if fallback.SessionMaterial == nil || *fallback.SessionMaterial == "" {
		return nil, fmt.Errorf("no primary artifact and no session material: %w", sentinel.ErrNotFound)
	}
	data := []byte(*fallback.SessionMaterial)
	return &Material{
		Filename: SessionFilename(fallback.PhoneNumber),
		Data:     data,
		Digest:   storage.Digest(data),
		Source:   SourceSessionMaterial,
	}, nil
}

// DeleteResiduals deletes every live artifact in the manifest and marks each
// one deleted. Already-deleted entries are skipped, so a rerun only retries
// what is left. The returned error joins every per-file failure.
func (s *Service) DeleteResiduals(ctx context.Context, credentialID id.CredentialID) (DeleteReport, error) {
	var report DeleteReport
	list, err := s.manifest.ListByCredential(ctx, credentialID)
	if err != nil {
		return report, fmt.Errorf("list artifacts: %w", err)
	}

	now := requestcontext.Now(ctx)
	var errs []error
	for _, a := range list {
		if a.IsDeleted() {
			continue
		}
		if err := s.storage.Delete(ctx, a.Path); err != nil {
			report.Failed = append(report.Failed, a.Path)
			errs = append(errs, err)
			continue
		}
		if err := s.manifest.MarkDeleted(ctx, a.ID, now); err != nil {
			// The file is gone; the next pass deletes nothing and retries the mark.
			report.Failed = append(report.Failed, a.Path)
			errs = append(errs, fmt.Errorf("mark %s deleted: %w", a.Path, err))
			continue
		}
		report.Deleted = append(report.Deleted, a.Path)
		s.logger.DebugContext(ctx, "artifact deleted",
			"credential_id", credentialID.String(),
			"path", a.Path,
		)
	}
	return report, errors.Join(errs...)
}

// SessionFilename names the archived session when no file is registered.
func SessionFilename(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "session.session"
	}
	return b.String() + ".session"
}
