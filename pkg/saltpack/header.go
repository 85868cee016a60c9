package saltpack

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/blake2b"
)

// Wire structs are encode-only. Decoding goes element by element so the
// exact array shapes on the wire are checked, not coerced.

type version struct {
	_msgpack struct{} `msgpack:",as_array"`

	Major int
	Minor int
}

type receiverEntry struct {
	_msgpack struct{} `msgpack:",as_array"`

	// PublicKey is the recipient's public key, or nil when the
	// recipient is hidden
	PublicKey     []byte
	PayloadKeyBox []byte
}

type encryptionHeader struct {
	_msgpack struct{} `msgpack:",as_array"`

	FormatName      string
	Version         version
	Mode            int
	Ephemeral       []byte
	SenderSecretbox []byte
	Receivers       []receiverEntry
}

type signingHeader struct {
	_msgpack struct{} `msgpack:",as_array"`

	FormatName string
	Version    version
	Mode       int
	SignerKey  []byte
	Nonce      []byte
}

// encodeHeader serializes a header value and computes its hash. The
// returned bytes are written to the wire verbatim; hashing anything but
// these exact bytes would unbind the payload packets.
func encodeHeader(h interface{}) ([]byte, headerHash, error) {
	raw, err := msgpack.Marshal(h)
	if err != nil {
		return nil, headerHash{}, err
	}
	return raw, hashHeader(raw), nil
}

// hashHeader returns the first 32 bytes of BLAKE2b-512 over the
// serialized header.
func hashHeader(raw []byte) headerHash {
	sum := blake2b.Sum512(raw)
	var h headerHash
	copy(h[:], sum[:headerHashSize])
	return h
}

// splitArray decodes one MessagePack array into its raw elements.
func splitArray(raw msgpack.RawMessage) ([]msgpack.RawMessage, error) {
	var elems []msgpack.RawMessage
	if err := msgpack.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}
	return elems, nil
}

// parseHeaderCommon checks the leading format-name, version and mode
// elements shared by both header layouts.
func parseHeaderCommon(elems []msgpack.RawMessage, wantMode int) error {
	var formatName string
	if err := msgpack.Unmarshal(elems[0], &formatName); err != nil {
		return fmt.Errorf("%w: format name: %v", ErrMalformedHeader, err)
	}
	if formatName != FormatName {
		return fmt.Errorf("%w: format name %q", ErrMalformedHeader, formatName)
	}

	var ver []int
	if err := msgpack.Unmarshal(elems[1], &ver); err != nil {
		return fmt.Errorf("%w: version: %v", ErrMalformedHeader, err)
	}
	if len(ver) != 2 {
		return fmt.Errorf("%w: version has %d elements", ErrMalformedHeader, len(ver))
	}
	if ver[0] != MajorVersion {
		return fmt.Errorf("%w: major version %d", ErrUnsupportedVersion, ver[0])
	}

	var mode int
	if err := msgpack.Unmarshal(elems[2], &mode); err != nil {
		return fmt.Errorf("%w: mode: %v", ErrMalformedHeader, err)
	}
	if mode != wantMode {
		return fmt.Errorf("%w: mode %d", ErrMalformedHeader, mode)
	}

	return nil
}

// parseEncryptionHeader decodes and validates a mode-0 header from its
// exact wire bytes.
func parseEncryptionHeader(raw msgpack.RawMessage) (*encryptionHeader, error) {
	elems, err := splitArray(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if len(elems) != 6 {
		return nil, fmt.Errorf("%w: %d header elements", ErrMalformedHeader, len(elems))
	}

	if err := parseHeaderCommon(elems, ModeEncryption); err != nil {
		return nil, err
	}

	h := &encryptionHeader{
		FormatName: FormatName,
		Version:    version{Major: MajorVersion, Minor: MinorVersion},
		Mode:       ModeEncryption,
	}

	if err := msgpack.Unmarshal(elems[3], &h.Ephemeral); err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", ErrMalformedHeader, err)
	}
	if len(h.Ephemeral) != BoxPublicKeySize {
		return nil, fmt.Errorf("%w: ephemeral key is %d bytes", ErrMalformedHeader, len(h.Ephemeral))
	}

	if err := msgpack.Unmarshal(elems[4], &h.SenderSecretbox); err != nil {
		return nil, fmt.Errorf("%w: sender secretbox: %v", ErrMalformedHeader, err)
	}
	if len(h.SenderSecretbox) != BoxPublicKeySize+secretboxOverhead {
		return nil, fmt.Errorf("%w: sender secretbox is %d bytes", ErrMalformedHeader, len(h.SenderSecretbox))
	}

	entries, err := splitArray(elems[5])
	if err != nil {
		return nil, fmt.Errorf("%w: recipients: %v", ErrMalformedHeader, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty recipient list", ErrMalformedHeader)
	}

	h.Receivers = make([]receiverEntry, len(entries))
	for i, entry := range entries {
		parts, err := splitArray(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: recipient %d: %v", ErrMalformedHeader, i, err)
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: recipient %d has %d elements", ErrMalformedHeader, i, len(parts))
		}

		var pk, box []byte
		if err := msgpack.Unmarshal(parts[0], &pk); err != nil {
			return nil, fmt.Errorf("%w: recipient %d key: %v", ErrMalformedHeader, i, err)
		}
		if pk != nil && len(pk) != BoxPublicKeySize {
			return nil, fmt.Errorf("%w: recipient %d key is %d bytes", ErrMalformedHeader, i, len(pk))
		}
		if err := msgpack.Unmarshal(parts[1], &box); err != nil {
			return nil, fmt.Errorf("%w: recipient %d box: %v", ErrMalformedHeader, i, err)
		}
		if len(box) != payloadKeySize+secretboxOverhead {
			return nil, fmt.Errorf("%w: recipient %d box is %d bytes", ErrMalformedHeader, i, len(box))
		}

		h.Receivers[i] = receiverEntry{PublicKey: pk, PayloadKeyBox: box}
	}

	return h, nil
}

// parseSigningHeader decodes and validates a mode-1 header from its
// exact wire bytes.
func parseSigningHeader(raw msgpack.RawMessage) (*signingHeader, error) {
	elems, err := splitArray(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if len(elems) != 5 {
		return nil, fmt.Errorf("%w: %d header elements", ErrMalformedHeader, len(elems))
	}

	if err := parseHeaderCommon(elems, ModeAttachedSigning); err != nil {
		return nil, err
	}

	h := &signingHeader{
		FormatName: FormatName,
		Version:    version{Major: MajorVersion, Minor: MinorVersion},
		Mode:       ModeAttachedSigning,
	}

	if err := msgpack.Unmarshal(elems[3], &h.SignerKey); err != nil {
		return nil, fmt.Errorf("%w: signer key: %v", ErrMalformedHeader, err)
	}
	if len(h.SignerKey) != SigningPublicKeySize {
		return nil, fmt.Errorf("%w: signer key is %d bytes", ErrMalformedHeader, len(h.SignerKey))
	}

	if err := msgpack.Unmarshal(elems[4], &h.Nonce); err != nil {
		return nil, fmt.Errorf("%w: header nonce: %v", ErrMalformedHeader, err)
	}
	if len(h.Nonce) != headerNonceSize {
		return nil, fmt.Errorf("%w: header nonce is %d bytes", ErrMalformedHeader, len(h.Nonce))
	}

	return h, nil
}
