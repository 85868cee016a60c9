package saltpack

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Per-packet final flag values inside the signing input.
const (
	flagData  byte = 0x00
	flagFinal byte = 0x01
)

// signatureInput builds the canonical byte string covered by one packet
// signature: header hash, header nonce, big-endian packet index, final
// flag, chunk bytes.
func signatureInput(hash headerHash, headerNonce []byte, index uint64, final byte, chunk []byte) []byte {
	input := make([]byte, 0, headerHashSize+headerNonceSize+8+1+len(chunk))
	input = append(input, hash[:]...)
	input = append(input, headerNonce...)

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], index)
	input = append(input, counter[:]...)

	input = append(input, final)
	input = append(input, chunk...)
	return input
}

// signStream chunks a message and emits one detached signature per
// chunk, each bound to the header and its packet index.
type signStream struct {
	enc         *msgpack.Encoder
	secret      [SigningSecretKeySize]byte
	hash        headerHash
	headerNonce [headerNonceSize]byte
	buf         []byte
	index       uint64
	closed      bool
	err         error
}

// NewSignStream starts an attached-signing message and returns a
// WriteCloser for the message bytes. The header is written immediately.
func NewSignStream(w io.Writer, signer *SigningKeyPair) (io.WriteCloser, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: nil signing key pair", ErrInvalidArgument)
	}

	var headerNonce [headerNonceSize]byte
	if _, err := rand.Read(headerNonce[:]); err != nil {
		return nil, err
	}

	header := &signingHeader{
		FormatName: FormatName,
		Version:    version{Major: MajorVersion, Minor: MinorVersion},
		Mode:       ModeAttachedSigning,
		SignerKey:  append([]byte(nil), signer.Public[:]...),
		Nonce:      headerNonce[:],
	}

	raw, hash, err := encodeHeader(header)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}

	s := &signStream{
		enc:         msgpack.NewEncoder(w),
		hash:        hash,
		headerNonce: headerNonce,
		buf:         make([]byte, 0, MaxChunkSize),
	}
	copy(s.secret[:], signer.Secret[:])
	return s, nil
}

func (s *signStream) Write(p []byte) (int, error) {
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
			if err := s.emit(s.buf, flagData); err != nil {
				s.fail(err)
				return 0, err
			}
			s.buf = s.buf[:0]
		}
	}
	return total, nil
}

// Close flushes any buffered message bytes and appends the terminator
// packet, then wipes the secret-key copy.
func (s *signStream) Close() error {
	if s.err != nil {
		return s.err
	}
	if s.closed {
		return nil
	}
	s.closed = true
	defer wipeBytes(s.secret[:])

	if len(s.buf) > 0 {
		if err := s.emit(s.buf, flagData); err != nil {
			s.err = err
			return err
		}
	}
	if err := s.emit([]byte{}, flagFinal); err != nil {
		s.err = err
		return err
	}
	return nil
}

func (s *signStream) emit(chunk []byte, final byte) error {
	input := signatureInput(s.hash, s.headerNonce[:], s.index, final, chunk)
	signature := ed25519.Sign(s.secret[:], input)
	s.index++
	return s.enc.Encode(&signaturePacket{Signature: signature, Chunk: chunk})
}

func (s *signStream) fail(err error) {
	s.err = err
	wipeBytes(s.secret[:])
}

// Sign signs a whole message in one call, producing an attached-signing
// stream that carries the message alongside its signatures.
func Sign(message []byte, signer *SigningKeyPair) ([]byte, error) {
	var out bytes.Buffer
	stream, err := NewSignStream(&out, signer)
	if err != nil {
		return nil, err
	}
	if _, err := stream.Write(message); err != nil {
		return nil, err
	}
	if err := stream.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
