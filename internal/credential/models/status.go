package models

// CredentialStatus is the stored lifecycle status of a credential.
type CredentialStatus string

const (
	CredentialStatusActive CredentialStatus = "active"
	CredentialStatusFrozen CredentialStatus = "frozen"
	CredentialStatusSold   CredentialStatus = "sold"
)

// IsValid reports whether the status is one of the known statuses.
func (s CredentialStatus) IsValid() bool {
	switch s {
	case CredentialStatusActive, CredentialStatusFrozen, CredentialStatusSold:
		return true
	}
	return false
}

// CanTransitionTo encodes ACTIVE <-> FROZEN and {ACTIVE, FROZEN} -> SOLD.
// Whether a FROZEN credential may actually be sold depends on its freeze
// expiry, which Credential.CanMarkSold checks.
func (s CredentialStatus) CanTransitionTo(target CredentialStatus) bool {
	switch s {
	case CredentialStatusActive:
		return target == CredentialStatusFrozen || target == CredentialStatusSold
	case CredentialStatusFrozen:
		return target == CredentialStatusActive || target == CredentialStatusSold
	}
	return false
}

func (s CredentialStatus) String() string {
	return string(s)
}
