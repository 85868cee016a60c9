package saltpack

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// DecryptStream reads an encryption message packet by packet. The
// header is consumed by NewDecryptStream; Read yields plaintext and
// returns io.EOF only after the terminator packet has authenticated.
type DecryptStream struct {
	dec        *msgpack.Decoder
	payloadKey [32]byte
	sender     *BoxPublicKey
	buf        []byte
	index      uint64
	done       bool
	err        error
}

// NewDecryptStream parses the header of an encryption message, unwraps
// the payload key for the given recipient key pair and opens the sender
// identity.
func NewDecryptStream(r io.Reader, recipient *BoxKeyPair) (*DecryptStream, error) {
	if recipient == nil {
		return nil, fmt.Errorf("%w: nil recipient key pair", ErrInvalidArgument)
	}

	dec := msgpack.NewDecoder(r)

	var rawHeader msgpack.RawMessage
	if err := dec.Decode(&rawHeader); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	header, err := parseEncryptionHeader(rawHeader)
	if err != nil {
		return nil, err
	}

	var ephemeral [32]byte
	copy(ephemeral[:], header.Ephemeral)
	recipientSecret := [32]byte(recipient.Secret)
	defer wipeBytes(recipientSecret[:])

	// Trial-decrypt the recipient entries in order. An entry is
	// attempted when its public-key slot matches our key or is hidden.
	var payloadKey [32]byte
	found := false
	for i, entry := range header.Receivers {
		if entry.PublicKey != nil && !bytes.Equal(entry.PublicKey, recipient.Public[:]) {
			continue
		}
		opened, ok := box.Open(nil, entry.PayloadKeyBox, (*[24]byte)(nonceForPayloadKeyBox(uint64(i))), &ephemeral, &recipientSecret)
		if !ok {
			continue
		}
		copy(payloadKey[:], opened)
		wipeBytes(opened)
		found = true
		break
	}
	if !found {
		return nil, ErrNotARecipient
	}

	senderRaw, ok := secretbox.Open(nil, header.SenderSecretbox, (*[24]byte)(nonceForSenderKeySecretbox()), &payloadKey)
	if !ok {
		wipeBytes(payloadKey[:])
		return nil, &AuthError{Index: 0, Where: "sender secretbox"}
	}

	var sender *BoxPublicKey
	if !allZero(senderRaw) {
		key := BoxPublicKey{}
		copy(key[:], senderRaw)
		sender = &key
	}

	return &DecryptStream{
		dec:        dec,
		payloadKey: payloadKey,
		sender:     sender,
	}, nil
}

// Sender returns the sender's encryption public key, or nil when the
// message is anonymous.
func (s *DecryptStream) Sender() *BoxPublicKey {
	return s.sender
}

func (s *DecryptStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		if s.done {
			return 0, io.EOF
		}
		if err := s.next(); err != nil {
			s.err = err
			wipeBytes(s.payloadKey[:])
			return 0, err
		}
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// next consumes one payload packet. An empty plaintext chunk is the
// terminator; anything after it on the stream is ignored.
func (s *DecryptStream) next() error {
	raw, err := readPacket(s.dec, s.index)
	if err != nil {
		return err
	}

	elems, err := splitArray(raw)
	if err != nil || len(elems) != 1 {
		return fmt.Errorf("saltpack: malformed payload packet %d", s.index)
	}
	var ciphertext []byte
	if err := msgpack.Unmarshal(elems[0], &ciphertext); err != nil {
		return fmt.Errorf("saltpack: malformed payload packet %d: %v", s.index, err)
	}

	plaintext, ok := secretbox.Open(nil, ciphertext, (*[24]byte)(nonceForChunkSecretbox(s.index)), &s.payloadKey)
	if !ok {
		return &AuthError{Index: s.index, Where: "payload secretbox"}
	}

	if len(plaintext) == 0 {
		s.done = true
		wipeBytes(s.payloadKey[:])
		return nil
	}

	s.buf = plaintext
	s.index++
	return nil
}

// Decrypt decrypts a whole message in one call, returning the plaintext
// and the sender's public key (nil for anonymous senders). No partial
// plaintext is returned on any failure.
func Decrypt(ciphertext []byte, recipient *BoxKeyPair) ([]byte, *BoxPublicKey, error) {
	stream, err := NewDecryptStream(bytes.NewReader(ciphertext), recipient)
	if err != nil {
		return nil, nil, err
	}
	plaintext, err := io.ReadAll(stream)
	if err != nil {
		return nil, nil, err
	}
	return plaintext, stream.Sender(), nil
}
