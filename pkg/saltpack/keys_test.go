package saltpack

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateBoxKeyPair(t *testing.T) {
	a, err := GenerateBoxKeyPair()
	if err != nil {
		t.Fatalf("GenerateBoxKeyPair() error = %v", err)
	}
	b, err := GenerateBoxKeyPair()
	if err != nil {
		t.Fatalf("GenerateBoxKeyPair() error = %v", err)
	}

	if a.Public == b.Public {
		t.Error("two generated key pairs share a public key")
	}
	if PublicFromSecret(a.Secret) != a.Public {
		t.Error("public key does not match its secret key")
	}
}

func TestGenerateSigningKeyPair(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair() error = %v", err)
	}

	if SigningPublicFromSecret(kp.Secret) != kp.Public {
		t.Error("signing public key does not match the expanded secret key")
	}
}

func TestParseBoxPublicKey(t *testing.T) {
	kp, _ := GenerateBoxKeyPair()
	hexKey := kp.Public.Hex()

	tests := []struct {
		name  string
		input string
	}{
		{"bare hex", hexKey},
		{"0x prefix", "0x" + hexKey},
		{"pk_0x prefix", "pk_0x" + hexKey},
		{"surrounding whitespace", "  " + hexKey + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseBoxPublicKey(tt.input)
			if err != nil {
				t.Fatalf("ParseBoxPublicKey(%q) error = %v", tt.input, err)
			}
			if parsed != kp.Public {
				t.Errorf("parsed key mismatch")
			}
		})
	}
}

func TestParseBoxSecretKeyPrefix(t *testing.T) {
	kp, _ := GenerateBoxKeyPair()

	parsed, err := ParseBoxSecretKey("sk_0x" + kp.Secret.Hex())
	if err != nil {
		t.Fatalf("ParseBoxSecretKey() error = %v", err)
	}
	if parsed != kp.Secret {
		t.Error("parsed secret key mismatch")
	}
}

func TestParseHexKeyErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"odd length", "abc"},
		{"too short", "abcd"},
		{"too long", strings.Repeat("ab", 33)},
		{"not hex", strings.Repeat("zz", 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBoxPublicKey(tt.input)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ParseBoxPublicKey(%q) error = %v, want %v", tt.input, err, ErrInvalidArgument)
			}
		})
	}
}

func TestParseSigningSecretKeySize(t *testing.T) {
	kp, _ := GenerateSigningKeyPair()

	parsed, err := ParseSigningSecretKey(kp.Secret.Hex())
	if err != nil {
		t.Fatalf("ParseSigningSecretKey() error = %v", err)
	}
	if parsed != kp.Secret {
		t.Error("parsed signing secret key mismatch")
	}

	// A 32-byte value is not a valid expanded signing secret key.
	_, err = ParseSigningSecretKey(kp.Public.Hex())
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ParseSigningSecretKey(short) error = %v, want %v", err, ErrInvalidArgument)
	}
}
