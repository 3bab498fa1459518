package models

import (
	"strings"

	artifactmodels "sessionsale/internal/artifact/models"
	dErrors "sessionsale/pkg/domain-errors"
)

// ArtifactRef points at a file, relative to the artifact root, that belongs
// to the credential being onboarded.
type ArtifactRef struct {
	Path string              `json:"path"`
	Kind artifactmodels.Kind `json:"kind"`
}

// OnboardRequest carries a freshly harvested session.
type OnboardRequest struct {
	PhoneNumber     string        `json:"phone_number"`
	DisplayName     string        `json:"display_name"`
	Username        string        `json:"username"`
	SessionMaterial string        `json:"session_material"`
	Artifacts       []ArtifactRef `json:"artifacts"`
}

func (r *OnboardRequest) Normalize() {
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.Username = strings.TrimSpace(r.Username)
	for i := range r.Artifacts {
		r.Artifacts[i].Path = strings.TrimSpace(r.Artifacts[i].Path)
		if r.Artifacts[i].Kind == "" {
			r.Artifacts[i].Kind = artifactmodels.KindSidecar
		}
	}
}

func (r *OnboardRequest) Validate() error {
	if r.PhoneNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "phone_number is required")
	}
	if r.SessionMaterial == "" {
		return dErrors.New(dErrors.CodeValidation, "session_material is required")
	}
	primaries := 0
	for _, a := range r.Artifacts {
		if a.Path == "" {
			return dErrors.New(dErrors.CodeValidation, "artifact path is required")
		}
		if !a.Kind.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "artifact kind must be primary or sidecar")
		}
		if a.Kind == artifactmodels.KindPrimary {
			primaries++
		}
	}
	if primaries > 1 {
		return dErrors.New(dErrors.CodeValidation, "at most one primary artifact is allowed")
	}
	return nil
}

// FreezeRequest is the admin payload for SetFreeze.
type FreezeRequest struct {
	Reason        string `json:"reason"`
	DurationHours int    `json:"duration_hours"`
}

func (r *FreezeRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *FreezeRequest) Validate() error {
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if r.DurationHours < 0 {
		return dErrors.New(dErrors.CodeValidation, "duration_hours cannot be negative")
	}
	return nil
}
