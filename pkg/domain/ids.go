package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "sessionsale/pkg/domain-errors"
)

// Typed identifiers keep credential, sale, and artifact ids from being mixed up
// at call sites. Construct them with the Parse* functions at trust boundaries.
type (
	CredentialID uuid.UUID
	SaleID       uuid.UUID
	ArtifactID   uuid.UUID
)

// ActorID identifies a party on the messaging platform: a seller, a buyer, or
// an admin reviewer. The platform's ids are opaque strings to this service.
type ActorID string

const maxActorIDLen = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func ParseCredentialID(s string) (CredentialID, error) {
	u, err := parseUUID("credential ID", s)
	return CredentialID(u), err
}

func ParseSaleID(s string) (SaleID, error) {
	u, err := parseUUID("sale ID", s)
	return SaleID(u), err
}

func ParseArtifactID(s string) (ArtifactID, error) {
	u, err := parseUUID("artifact ID", s)
	return ArtifactID(u), err
}

// ParseActorID trims surrounding whitespace and rejects empty, oversized, or
// non-UTF-8 identifiers.
func ParseActorID(s string) (ActorID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor ID cannot be empty")
	}
	if len(s) > maxActorIDLen || !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid actor ID")
	}
	return ActorID(s), nil
}

func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }
func NewSaleID() SaleID             { return SaleID(uuid.New()) }
func NewArtifactID() ArtifactID     { return ArtifactID(uuid.New()) }

func (id CredentialID) String() string { return uuid.UUID(id).String() }
func (id CredentialID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id SaleID) String() string { return uuid.UUID(id).String() }
func (id SaleID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ArtifactID) String() string { return uuid.UUID(id).String() }
func (id ArtifactID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ActorID) String() string { return string(id) }
func (id ActorID) IsNil() bool    { return id == "" }

func (id CredentialID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id SaleID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id ArtifactID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *CredentialID) UnmarshalText(b []byte) error {
	parsed, err := ParseCredentialID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SaleID) UnmarshalText(b []byte) error {
	parsed, err := ParseSaleID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
