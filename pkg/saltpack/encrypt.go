package saltpack

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// encryptStream chunks plaintext into payload packets. It buffers at
// most one chunk; a packet is emitted whenever the buffer fills, and
// Close flushes the final partial chunk followed by the terminator.
type encryptStream struct {
	enc        *msgpack.Encoder
	payloadKey [32]byte
	buf        []byte
	index      uint64
	closed     bool
	err        error
}

// NewEncryptStream starts an encryption message for the given
// recipients and returns a WriteCloser for the plaintext. A nil sender
// produces an anonymous message. The header is written immediately.
//
// The recipient order fixes the nonce counter for the payload-key
// boxes; callers that want a canonical header should sort the list
// before calling.
func NewEncryptStream(w io.Writer, sender *BoxKeyPair, recipients []BoxPublicKey) (io.WriteCloser, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: empty recipient list", ErrInvalidArgument)
	}

	var payloadKey [32]byte
	if _, err := rand.Read(payloadKey[:]); err != nil {
		return nil, err
	}

	// Single-use ephemeral key pair; the secret is discarded as soon as
	// the recipient boxes are sealed.
	var ephemeralSecret, ephemeralPublic [32]byte
	if _, err := rand.Read(ephemeralSecret[:]); err != nil {
		wipeBytes(payloadKey[:])
		return nil, err
	}
	curve25519.ScalarBaseMult(&ephemeralPublic, &ephemeralSecret)

	receivers := make([]receiverEntry, len(recipients))
	for i, recipient := range recipients {
		peer := [32]byte(recipient)
		keyBox := box.Seal(nil, payloadKey[:], (*[24]byte)(nonceForPayloadKeyBox(uint64(i))), &peer, &ephemeralSecret)
		receivers[i] = receiverEntry{
			PublicKey:     append([]byte(nil), recipient[:]...),
			PayloadKeyBox: keyBox,
		}
	}
	wipeBytes(ephemeralSecret[:])

	// All zeros marks an anonymous sender.
	var senderPublic [32]byte
	if sender != nil {
		senderPublic = [32]byte(sender.Public)
	}
	senderBox := secretbox.Seal(nil, senderPublic[:], (*[24]byte)(nonceForSenderKeySecretbox()), &payloadKey)

	header := &encryptionHeader{
		FormatName:      FormatName,
		Version:         version{Major: MajorVersion, Minor: MinorVersion},
		Mode:            ModeEncryption,
		Ephemeral:       ephemeralPublic[:],
		SenderSecretbox: senderBox,
		Receivers:       receivers,
	}

	raw, _, err := encodeHeader(header)
	if err != nil {
		wipeBytes(payloadKey[:])
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		wipeBytes(payloadKey[:])
		return nil, err
	}

	return &encryptStream{
		enc:        msgpack.NewEncoder(w),
		payloadKey: payloadKey,
		buf:        make([]byte, 0, MaxChunkSize),
	}, nil
}

func (s *encryptStream) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.closed {
		return 0, errors.New("saltpack: write after close")
	}

	total := len(p)
	for len(p) > 0 {
		take := min(MaxChunkSize-len(s.buf), len(p))
		s.buf = append(s.buf, p[:take]...)
		p = p[take:]

		if len(s.buf) == MaxChunkSize {
			if err := s.emit(s.buf); err != nil {
				s.fail(err)
				return 0, err
			}
			s.buf = s.buf[:0]
		}
	}
	return total, nil
}

// Close flushes any buffered plaintext and appends the terminator
// packet, then wipes the payload key.
func (s *encryptStream) Close() error {
	if s.err != nil {
		return s.err
	}
	if s.closed {
		return nil
	}
	s.closed = true
	defer wipeBytes(s.payloadKey[:])

	if len(s.buf) > 0 {
		if err := s.emit(s.buf); err != nil {
			s.err = err
			return err
		}
		wipeBytes(s.buf)
	}
	if err := s.emit([]byte{}); err != nil {
		s.err = err
		return err
	}
	return nil
}

func (s *encryptStream) emit(chunk []byte) error {
	ciphertext := secretbox.Seal(nil, chunk, (*[24]byte)(nonceForChunkSecretbox(s.index)), &s.payloadKey)
	s.index++
	return s.enc.Encode(&encryptionPacket{Ciphertext: ciphertext})
}

func (s *encryptStream) fail(err error) {
	s.err = err
	wipeBytes(s.payloadKey[:])
}

// Encrypt encrypts plaintext for the given recipients in one call. A
// nil sender produces an anonymous message.
func Encrypt(plaintext []byte, sender *BoxKeyPair, recipients []BoxPublicKey) ([]byte, error) {
	var out bytes.Buffer
	stream, err := NewEncryptStream(&out, sender, recipients)
	if err != nil {
		return nil, err
	}
	if _, err := stream.Write(plaintext); err != nil {
		return nil, err
	}
	if err := stream.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
