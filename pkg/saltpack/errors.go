package saltpack

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader means the header failed structural decoding or
	// declared the wrong format or mode
	ErrMalformedHeader = errors.New("saltpack: malformed header")

	// ErrUnsupportedVersion means the header's major version is not 2
	ErrUnsupportedVersion = errors.New("saltpack: unsupported version")

	// ErrNotARecipient means no recipient entry decrypted with the
	// provided key
	ErrNotARecipient = errors.New("saltpack: not a recipient")

	// ErrUnexpectedEOF means the stream ended before the terminator packet
	ErrUnexpectedEOF = errors.New("saltpack: stream truncated before terminator")

	// ErrWrongSigner means the header's signer key does not match the
	// expected verification key
	ErrWrongSigner = errors.New("saltpack: message signed by a different key")

	// ErrInvalidArgument covers caller mistakes: empty recipient lists,
	// short keys, odd-length hex
	ErrInvalidArgument = errors.New("saltpack: invalid argument")
)

// AuthError reports an authentication failure for one packet: a secretbox
// or box that failed to open, or a signature that failed to verify.
type AuthError struct {
	Index uint64 // packet index, starting at 0
	Where string // "payload secretbox", "sender secretbox" or "signature"
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("saltpack: authentication failure at packet %d (%s)", e.Index, e.Where)
}
