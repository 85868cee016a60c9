// Package armor implements the ASCII wrapper for saltpack messages: a
// BEGIN line, the payload as base64 folded into fixed-width lines, and
// an END line.
//
// The reference saltpack armor uses a base62 alphabet with word and
// sentence grouping; this codec uses standard base64 and is therefore
// not wire-compatible with reference armor. Binary messages are
// unaffected.
package armor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MessageType selects the frame wording.
type MessageType string

const (
	MessageTypeEncrypted MessageType = "ENCRYPTED"
	MessageTypeSigned    MessageType = "SIGNED"
)

const (
	headerPrefix = "BEGIN SALTPACK"
	footerPrefix = "END SALTPACK"

	// lineWidth is the column at which the base64 body wraps
	lineWidth = 43
)

// ErrMalformedArmor is returned for a broken frame or invalid base64.
var ErrMalformedArmor = errors.New("armor: malformed message")

// Encode wraps payload in an ASCII frame of the given type.
func Encode(payload []byte, typ MessageType) string {
	encoded := base64.StdEncoding.EncodeToString(payload)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s MESSAGE.", headerPrefix, typ)
	for start := 0; start < len(encoded); start += lineWidth {
		end := min(start+lineWidth, len(encoded))
		b.WriteByte('\n')
		b.WriteString(encoded[start:end])
	}
	fmt.Fprintf(&b, "\n%s %s MESSAGE.", footerPrefix, typ)
	return b.String()
}

// Decode strips the ASCII frame and returns the payload bytes. It
// tolerates surrounding whitespace and blank lines but requires the
// BEGIN and END lines to be present and in order.
func Decode(armored string) ([]byte, error) {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(armored), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: %d lines", ErrMalformedArmor, len(lines))
	}
	if !strings.HasPrefix(lines[0], headerPrefix) {
		return nil, fmt.Errorf("%w: bad header line", ErrMalformedArmor)
	}
	if !strings.HasPrefix(lines[len(lines)-1], footerPrefix) {
		return nil, fmt.Errorf("%w: bad footer line", ErrMalformedArmor)
	}

	body := strings.Join(lines[1:len(lines)-1], "")
	payload, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArmor, err)
	}
	return payload, nil
}
