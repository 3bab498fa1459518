package models

import (
	"path"
	"strings"
	"time"

	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
)

// Kind separates the session file itself from auxiliary files that share its
// base name (journals, lock files, exported keys).
type Kind string

const (
	KindPrimary Kind = "primary"
	KindSidecar Kind = "sidecar"
)

func (k Kind) IsValid() bool {
	return k == KindPrimary || k == KindSidecar
}

// Artifact is one on-disk file registered against a credential. The manifest
// of artifacts is the complete set the retirement protocol archives from and
// deletes; nothing is discovered by pattern matching.
//
// Invariants:
//   - Path is relative to the artifact root, cleaned, and never escapes it
//   - a credential has at most one live primary artifact
//   - DeletedAt is set once and never cleared
type Artifact struct {
	ID           id.ArtifactID   `json:"id"`
	CredentialID id.CredentialID `json:"credential_id"`
	Path         string          `json:"path"`
	Kind         Kind            `json:"kind"`
	Digest       string          `json:"digest,omitempty"`
	RegisteredAt time.Time       `json:"registered_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty"`
}

// NewArtifact validates and normalizes a manifest entry.
func NewArtifact(artifactID id.ArtifactID, credentialID id.CredentialID, relPath string, kind Kind, digest string, now time.Time) (*Artifact, error) {
	clean, err := CleanPath(relPath)
	if err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "artifact kind must be primary or sidecar")
	}
	return &Artifact{
		ID:           artifactID,
		CredentialID: credentialID,
		Path:         clean,
		Kind:         kind,
		Digest:       digest,
		RegisteredAt: now,
	}, nil
}

// CleanPath normalizes a root-relative path and rejects anything that would
// leave the artifact root.
func CleanPath(relPath string) (string, error) {
	p := strings.TrimSpace(strings.ReplaceAll(relPath, "\\", "/"))
	if p == "" {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "artifact path cannot be empty")
	}
	if strings.HasPrefix(p, "/") {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "artifact path must be relative")
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "artifact path escapes the artifact root")
	}
	return clean, nil
}

func (a *Artifact) IsDeleted() bool {
	return a.DeletedAt != nil
}

func (a *Artifact) IsPrimary() bool {
	return a.Kind == KindPrimary
}

// MarkDeleted records the deletion time, keeping the first one.
func (a *Artifact) MarkDeleted(at time.Time) {
	if a.DeletedAt != nil {
		return
	}
	t := at
	a.DeletedAt = &t
}

// Filename is the base name used when the artifact is archived.
func (a *Artifact) Filename() string {
	return path.Base(a.Path)
}

func (a *Artifact) Clone() *Artifact {
	out := *a
	if a.DeletedAt != nil {
		t := *a.DeletedAt
		out.DeletedAt = &t
	}
	return &out
}
