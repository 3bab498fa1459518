package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
)

// Credential is the aggregate root for one sellable account session.
//
// Invariants:
//   - Status SOLD implies SessionMaterial == nil, at every observable point
//   - SOLD is terminal; a credential is never re-offered once sold
//   - SoldAt and SalePrice are set exactly once, together with the SOLD status
//   - PhoneNumber is immutable after onboarding
//
// Eligibility is derived, never stored: a credential can be sold when its
// effective status is ACTIVE and it still holds session material. A FROZEN
// credential whose freeze has run out behaves as ACTIVE until it is thawed.
type Credential struct {
	ID              id.CredentialID  `json:"id"`
	PhoneNumber     string           `json:"phone_number"`
	DisplayName     string           `json:"display_name,omitempty"`
	Username        string           `json:"username,omitempty"`
	Status          CredentialStatus `json:"status"`
	Freeze          *Freeze          `json:"freeze,omitempty"`
	SessionMaterial *string          `json:"-"` // Never serialize - reusable secret
	SoldAt          *time.Time       `json:"sold_at,omitempty"`
	SalePrice       *decimal.Decimal `json:"sale_price,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Freeze records why and for how long an admin froze a credential.
// DurationHours of zero means the freeze lasts until cleared.
type Freeze struct {
	Reason        string     `json:"reason"`
	AdminID       id.ActorID `json:"admin_id"`
	FrozenAt      time.Time  `json:"frozen_at"`
	DurationHours int        `json:"duration_hours"`
}

// ExpiresAt returns the end of the freeze, or false for an indefinite one.
func (f Freeze) ExpiresAt() (time.Time, bool) {
	if f.DurationHours <= 0 {
		return time.Time{}, false
	}
	return f.FrozenAt.Add(time.Duration(f.DurationHours) * time.Hour), true
}

// ActiveAt reports whether the freeze still applies at now.
func (f Freeze) ActiveAt(now time.Time) bool {
	end, ok := f.ExpiresAt()
	return !ok || !now.After(end)
}

// NewCredential onboards an ACTIVE credential holding sessionMaterial.
func NewCredential(credentialID id.CredentialID, phone, displayName, username, sessionMaterial string, now time.Time) (*Credential, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "phone number cannot be empty")
	}
	if len(phone) > 32 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "phone number must be 32 characters or less")
	}
	if sessionMaterial == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session material cannot be empty")
	}
	material := sessionMaterial
	return &Credential{
		ID:              credentialID,
		PhoneNumber:     phone,
		DisplayName:     strings.TrimSpace(displayName),
		Username:        strings.TrimPrefix(strings.TrimSpace(username), "@"),
		Status:          CredentialStatusActive,
		SessionMaterial: &material,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// EffectiveStatus is the status as seen by eligibility checks at now.
func (c *Credential) EffectiveStatus(now time.Time) CredentialStatus {
	if c.Status == CredentialStatusFrozen && (c.Freeze == nil || !c.Freeze.ActiveAt(now)) {
		return CredentialStatusActive
	}
	return c.Status
}

// IsFrozenAt reports whether an unexpired freeze applies at now.
func (c *Credential) IsFrozenAt(now time.Time) bool {
	return c.EffectiveStatus(now) == CredentialStatusFrozen
}

func (c *Credential) IsSold() bool {
	return c.Status == CredentialStatusSold
}

// HasSessionMaterial reports whether the reusable secret is still held.
func (c *Credential) HasSessionMaterial() bool {
	return c.SessionMaterial != nil && *c.SessionMaterial != ""
}

// CanBeSold is the derived sellable flag.
func (c *Credential) CanBeSold(now time.Time) bool {
	return c.EffectiveStatus(now) == CredentialStatusActive && c.HasSessionMaterial()
}

// IsEligibleForSale returns nil when a new sale may be initiated at now.
func (c *Credential) IsEligibleForSale(now time.Time) error {
	switch c.EffectiveStatus(now) {
	case CredentialStatusSold:
		return dErrors.New(dErrors.CodeNotEligible, "credential is already sold")
	case CredentialStatusFrozen:
		return dErrors.New(dErrors.CodeNotEligible, "credential is frozen")
	}
	if !c.HasSessionMaterial() {
		return dErrors.New(dErrors.CodeNotEligible, "credential has no session material")
	}
	return nil
}

// CanMarkSold checks the retirement precondition: ACTIVE, or FROZEN with an
// expired freeze, and the secret not yet cleared.
func (c *Credential) CanMarkSold(now time.Time) error {
	if c.Status == CredentialStatusSold {
		return dErrors.New(dErrors.CodeInvalidTransition, "credential is already sold")
	}
	if c.IsFrozenAt(now) {
		return dErrors.New(dErrors.CodeInvalidTransition, "credential is frozen")
	}
	if !c.HasSessionMaterial() {
		return dErrors.New(dErrors.CodeInvalidTransition, "session material already cleared")
	}
	return nil
}

// ApplySold retires the credential. Status, secret, sale time, and price
// change together; callers persist the result as one write.
// Must only be called after CanMarkSold returns nil.
func (c *Credential) ApplySold(price decimal.Decimal, at time.Time) {
	soldAt := at
	c.Status = CredentialStatusSold
	c.SessionMaterial = nil
	c.Freeze = nil
	c.SoldAt = &soldAt
	c.SalePrice = &price
	c.UpdatedAt = at
}

// CanFreeze checks whether a freeze may be placed or replaced.
func (c *Credential) CanFreeze() error {
	if !c.Status.CanTransitionTo(CredentialStatusFrozen) && c.Status != CredentialStatusFrozen {
		return dErrors.New(dErrors.CodeInvalidTransition, "sold credentials cannot be frozen")
	}
	return nil
}

// ApplyFreeze records a freeze. Freezing a frozen credential replaces the
// previous freeze metadata.
func (c *Credential) ApplyFreeze(reason string, adminID id.ActorID, durationHours int, now time.Time) {
	c.Status = CredentialStatusFrozen
	c.Freeze = &Freeze{
		Reason:        reason,
		AdminID:       adminID,
		FrozenAt:      now,
		DurationHours: durationHours,
	}
	c.UpdatedAt = now
}

// CanThaw checks whether a freeze can be cleared.
func (c *Credential) CanThaw() error {
	if c.Status != CredentialStatusFrozen {
		return dErrors.New(dErrors.CodeInvalidTransition, "credential is not frozen")
	}
	return nil
}

// ApplyThaw clears the freeze and returns the credential to ACTIVE.
func (c *Credential) ApplyThaw(now time.Time) {
	c.Status = CredentialStatusActive
	c.Freeze = nil
	c.UpdatedAt = now
}

// FreezeReason returns the active freeze reason, or "".
func (c *Credential) FreezeReason() string {
	if c.Freeze == nil {
		return ""
	}
	return c.Freeze.Reason
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	out := *c
	if c.Freeze != nil {
		f := *c.Freeze
		out.Freeze = &f
	}
	if c.SessionMaterial != nil {
		m := *c.SessionMaterial
		out.SessionMaterial = &m
	}
	if c.SoldAt != nil {
		t := *c.SoldAt
		out.SoldAt = &t
	}
	if c.SalePrice != nil {
		p := *c.SalePrice
		out.SalePrice = &p
	}
	return &out
}
