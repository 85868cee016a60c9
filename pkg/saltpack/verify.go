package saltpack

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// VerifyStream reads an attached-signing message packet by packet,
// verifying each chunk's signature before releasing it. Read returns
// io.EOF only after the final packet has verified.
type VerifyStream struct {
	dec         *msgpack.Decoder
	signer      SigningPublicKey
	hash        headerHash
	headerNonce []byte
	buf         []byte
	index       uint64
	done        bool
	err         error
}

// NewVerifyStream parses the header of an attached-signing message and
// binds it to the expected signer key. A header declaring any other
// signer is rejected before the first chunk is touched.
func NewVerifyStream(r io.Reader, expected SigningPublicKey) (*VerifyStream, error) {
	dec := msgpack.NewDecoder(r)

	var rawHeader msgpack.RawMessage
	if err := dec.Decode(&rawHeader); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	header, err := parseSigningHeader(rawHeader)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(header.SignerKey, expected[:]) {
		return nil, ErrWrongSigner
	}

	return &VerifyStream{
		dec:         dec,
		signer:      expected,
		hash:        hashHeader(rawHeader),
		headerNonce: header.Nonce,
	}, nil
}

func (s *VerifyStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		if s.done {
			return 0, io.EOF
		}
		if err := s.next(); err != nil {
			s.err = err
			return 0, err
		}
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// next consumes one signature packet. The final flag is not carried on
// the wire; it is inferred from the empty chunk and folded back into
// the signing input, so a data packet cannot masquerade as the
// terminator.
func (s *VerifyStream) next() error {
	raw, err := readPacket(s.dec, s.index)
	if err != nil {
		return err
	}

	elems, err := splitArray(raw)
	if err != nil || len(elems) != 2 {
		return fmt.Errorf("saltpack: malformed payload packet %d", s.index)
	}

	var signature, chunk []byte
	if err := msgpack.Unmarshal(elems[0], &signature); err != nil {
		return fmt.Errorf("saltpack: malformed payload packet %d: %v", s.index, err)
	}
	if len(signature) != signatureSize {
		return fmt.Errorf("saltpack: malformed payload packet %d: signature is %d bytes", s.index, len(signature))
	}
	if err := msgpack.Unmarshal(elems[1], &chunk); err != nil {
		return fmt.Errorf("saltpack: malformed payload packet %d: %v", s.index, err)
	}

	final := flagData
	if len(chunk) == 0 {
		final = flagFinal
	}

	input := signatureInput(s.hash, s.headerNonce, s.index, final, chunk)
	if !ed25519.Verify(s.signer[:], input, signature) {
		return &AuthError{Index: s.index, Where: "signature"}
	}

	if final == flagFinal {
		s.done = true
		return nil
	}

	s.buf = chunk
	s.index++
	return nil
}

// Verify checks a whole attached-signing message in one call and
// returns the recovered message. No partial message is returned on any
// failure.
func Verify(signed []byte, expected SigningPublicKey) ([]byte, error) {
	stream, err := NewVerifyStream(bytes.NewReader(signed), expected)
	if err != nil {
		return nil, err
	}
	message, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	return message, nil
}
