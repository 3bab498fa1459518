package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sessionsale/pkg/domain-errors"
)

// TestParseUUID_Invariants covers the parsing rule shared by every uuid-backed
// id: values must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseCredentialID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseCredentialID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseCredentialID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseCredentialID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, CredentialID(validUUID), id)
	})
}

func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE sale_records;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSaleID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseActorID(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		id, err := ParseActorID("  9001  ")
		require.NoError(t, err)
		assert.Equal(t, ActorID("9001"), id)
	})

	t.Run("rejects blank", func(t *testing.T) {
		_, err := ParseActorID("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized", func(t *testing.T) {
		_, err := ParseActorID(strings.Repeat("7", maxActorIDLen+1))
		require.Error(t, err)
	})

	t.Run("rejects invalid utf8", func(t *testing.T) {
		_, err := ParseActorID(string([]byte{0xff, 0xfe}))
		require.Error(t, err)
	})
}

func TestIDs_JSONRoundTrip(t *testing.T) {
	type payload struct {
		Credential CredentialID `json:"credential_id"`
		Sale       SaleID       `json:"sale_id"`
	}
	in := payload{Credential: NewCredentialID(), Sale: NewSaleID()}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), in.Credential.String())

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	err = json.Unmarshal([]byte(`{"credential_id":"nope"}`), &out)
	require.Error(t, err)
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errCredential := ParseCredentialID(validUUID)
		_, errSale := ParseSaleID(validUUID)
		_, errArtifact := ParseArtifactID(validUUID)

		require.NoError(t, errCredential)
		require.NoError(t, errSale)
		require.NoError(t, errArtifact)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errCredential := ParseCredentialID(input)
			_, errSale := ParseSaleID(input)
			_, errArtifact := ParseArtifactID(input)

			require.Error(t, errCredential)
			require.Error(t, errSale)
			require.Error(t, errArtifact)
		})
	}
}
