package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseActorID checks that parsing never panics on arbitrary input and
// that any accepted id round-trips unchanged.
func FuzzParseActorID(f *testing.F) {
	f.Add("")
	f.Add("123456789")
	f.Add("   42   ")
	f.Add("'; DROP TABLE credentials;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add(string([]byte{0xff}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseActorID(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseActorID(id.String())
		if err != nil {
			t.Errorf("accepted id failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed id value")
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseAllIDs ensures all uuid-backed ids accept and reject the same input.
func FuzzParseAllIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errCredential := ParseCredentialID(input)
		_, errSale := ParseSaleID(input)
		_, errArtifact := ParseArtifactID(input)

		if (errCredential == nil) != (errSale == nil) || (errSale == nil) != (errArtifact == nil) {
			t.Error("inconsistent parsing across id types")
		}
	})
}
