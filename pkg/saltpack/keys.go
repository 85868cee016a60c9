package saltpack

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/curve25519"
)

// GenerateBoxKeyPair generates a new X25519 encryption key pair.
func GenerateBoxKeyPair() (*BoxKeyPair, error) {
	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return nil, err
	}

	var public [32]byte
	curve25519.ScalarBaseMult(&public, &secret)

	return &BoxKeyPair{
		Public: BoxPublicKey(public),
		Secret: BoxSecretKey(secret),
	}, nil
}

// GenerateSigningKeyPair generates a new Ed25519 signing key pair.
func GenerateSigningKeyPair() (*SigningKeyPair, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	kp := &SigningKeyPair{}
	copy(kp.Public[:], public)
	copy(kp.Secret[:], private)

	return kp, nil
}

// Hex returns the key as a lowercase hex string.
func (k BoxPublicKey) Hex() string { return hex.EncodeToString(k[:]) }

// Hex returns the key as a lowercase hex string.
func (k BoxSecretKey) Hex() string { return hex.EncodeToString(k[:]) }

// Hex returns the key as a lowercase hex string.
func (k SigningPublicKey) Hex() string { return hex.EncodeToString(k[:]) }

// Hex returns the key as a lowercase hex string.
func (k SigningSecretKey) Hex() string { return hex.EncodeToString(k[:]) }

// parseHexKey decodes a hex-encoded key of the given byte size.
// Accepted optional prefixes: "0x", "pk_0x", "sk_0x".
func parseHexKey(s string, size int) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "pk_")
	s = strings.TrimPrefix(s, "sk_")
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")

	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd-length hex key", ErrInvalidArgument)
	}
	if len(s) != size*2 {
		return nil, fmt.Errorf("%w: got %d hex chars, expected %d", ErrInvalidArgument, len(s), size*2)
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return raw, nil
}

// ParseBoxPublicKey parses a hex-encoded X25519 public key.
func ParseBoxPublicKey(s string) (BoxPublicKey, error) {
	var k BoxPublicKey
	raw, err := parseHexKey(s, BoxPublicKeySize)
	if err != nil {
		return k, err
	}
	copy(k[:], raw)
	return k, nil
}

// ParseBoxSecretKey parses a hex-encoded X25519 secret key.
func ParseBoxSecretKey(s string) (BoxSecretKey, error) {
	var k BoxSecretKey
	raw, err := parseHexKey(s, BoxSecretKeySize)
	if err != nil {
		return k, err
	}
	copy(k[:], raw)
	return k, nil
}

// ParseSigningPublicKey parses a hex-encoded Ed25519 public key.
func ParseSigningPublicKey(s string) (SigningPublicKey, error) {
	var k SigningPublicKey
	raw, err := parseHexKey(s, SigningPublicKeySize)
	if err != nil {
		return k, err
	}
	copy(k[:], raw)
	return k, nil
}

// ParseSigningSecretKey parses a hex-encoded Ed25519 secret key in
// expanded 64-byte form.
func ParseSigningSecretKey(s string) (SigningSecretKey, error) {
	var k SigningSecretKey
	raw, err := parseHexKey(s, SigningSecretKeySize)
	if err != nil {
		return k, err
	}
	copy(k[:], raw)
	return k, nil
}

// PublicFromSecret derives the X25519 public key for a secret key.
func PublicFromSecret(secret BoxSecretKey) BoxPublicKey {
	var public, priv [32]byte
	priv = secret
	curve25519.ScalarBaseMult(&public, &priv)
	return BoxPublicKey(public)
}

// SigningPublicFromSecret extracts the public half embedded in an
// expanded Ed25519 secret key.
func SigningPublicFromSecret(secret SigningSecretKey) SigningPublicKey {
	var public SigningPublicKey
	copy(public[:], secret[32:])
	return public
}
