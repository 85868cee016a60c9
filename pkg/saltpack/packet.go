package saltpack

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Payload packet shapes. Encode-only, like the header structs; readers
// split the arrays element by element.

type encryptionPacket struct {
	_msgpack struct{} `msgpack:",as_array"`

	Ciphertext []byte
}

type signaturePacket struct {
	_msgpack struct{} `msgpack:",as_array"`

	Signature []byte
	Chunk     []byte
}

// readPacket pulls the next top-level value off the stream. A clean EOF
// here is still an error for the caller: packets may only stop after a
// terminator, which the mode-specific state machines track.
func readPacket(dec *msgpack.Decoder, index uint64) (msgpack.RawMessage, error) {
	var raw msgpack.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("saltpack: malformed payload packet %d: %v", index, err)
	}
	return raw, nil
}
