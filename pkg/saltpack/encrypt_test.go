package saltpack

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

// splitMessage decodes a wire message into its raw header and packets.
func splitMessage(t *testing.T, message []byte) (msgpack.RawMessage, []msgpack.RawMessage) {
	t.Helper()

	dec := msgpack.NewDecoder(bytes.NewReader(message))

	var header msgpack.RawMessage
	if err := dec.Decode(&header); err != nil {
		t.Fatalf("failed to decode header: %v", err)
	}

	var packets []msgpack.RawMessage
	for {
		var pkt msgpack.RawMessage
		err := dec.Decode(&pkt)
		if err != nil {
			break
		}
		packets = append(packets, pkt)
	}
	return header, packets
}

// joinMessage reassembles a wire message from raw values.
func joinMessage(header msgpack.RawMessage, packets []msgpack.RawMessage) []byte {
	var out bytes.Buffer
	out.Write(header)
	for _, pkt := range packets {
		out.Write(pkt)
	}
	return out.Bytes()
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("failed to generate random bytes: %v", err)
	}
	return b
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sender, err := GenerateBoxKeyPair()
	if err != nil {
		t.Fatalf("GenerateBoxKeyPair() error = %v", err)
	}
	recipient, err := GenerateBoxKeyPair()
	if err != nil {
		t.Fatalf("GenerateBoxKeyPair() error = %v", err)
	}

	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"one byte", 1},
		{"short text", 16},
		{"chunk minus one", MaxChunkSize - 1},
		{"exact chunk", MaxChunkSize},
		{"chunk plus one", MaxChunkSize + 1},
		{"three chunks", 3 * MaxChunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plaintext := randomBytes(t, tt.size)

			ciphertext, err := Encrypt(plaintext, sender, []BoxPublicKey{recipient.Public})
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			decrypted, senderKey, err := Decrypt(ciphertext, recipient)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}

			if !bytes.Equal(decrypted, plaintext) {
				t.Errorf("plaintext mismatch: got %d bytes, want %d bytes", len(decrypted), len(plaintext))
			}
			if senderKey == nil {
				t.Fatal("sender = nil, want sender public key")
			}
			if *senderKey != sender.Public {
				t.Errorf("sender key mismatch")
			}
		})
	}
}

func TestEncryptDecryptHello(t *testing.T) {
	sender, _ := GenerateBoxKeyPair()
	recipient, _ := GenerateBoxKeyPair()

	plaintext := []byte("Hello, Saltpack!")

	ciphertext, err := Encrypt(plaintext, sender, []BoxPublicKey{recipient.Public})
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	decrypted, senderKey, err := Decrypt(ciphertext, recipient)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}

	if string(decrypted) != "Hello, Saltpack!" {
		t.Errorf("plaintext = %q, want %q", decrypted, plaintext)
	}
	if senderKey == nil || *senderKey != sender.Public {
		t.Errorf("sender key mismatch")
	}
}

func TestEncryptAnonymousSender(t *testing.T) {
	recipient, _ := GenerateBoxKeyPair()

	ciphertext, err := Encrypt([]byte{}, nil, []BoxPublicKey{recipient.Public})
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	decrypted, senderKey, err := Decrypt(ciphertext, recipient)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}

	if len(decrypted) != 0 {
		t.Errorf("plaintext = %d bytes, want empty", len(decrypted))
	}
	if senderKey != nil {
		t.Errorf("sender = %x, want nil for anonymous message", senderKey[:])
	}
}

func TestEncryptMultipleRecipients(t *testing.T) {
	sender, _ := GenerateBoxKeyPair()

	recipients := make([]*BoxKeyPair, 3)
	publicKeys := make([]BoxPublicKey, 3)
	for i := range recipients {
		kp, err := GenerateBoxKeyPair()
		if err != nil {
			t.Fatalf("GenerateBoxKeyPair() error = %v", err)
		}
		recipients[i] = kp
		publicKeys[i] = kp.Public
	}

	// Two full chunks
	plaintext := randomBytes(t, 2*MaxChunkSize)

	ciphertext, err := Encrypt(plaintext, sender, publicKeys)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// Two data packets plus the terminator on the wire
	_, packets := splitMessage(t, ciphertext)
	if len(packets) != 3 {
		t.Errorf("packet count = %d, want 3", len(packets))
	}

	for i, kp := range recipients {
		decrypted, senderKey, err := Decrypt(ciphertext, kp)
		if err != nil {
			t.Fatalf("Decrypt() recipient %d error = %v", i, err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Errorf("recipient %d: plaintext mismatch", i)
		}
		if senderKey == nil || *senderKey != sender.Public {
			t.Errorf("recipient %d: sender key mismatch", i)
		}
	}
}

func TestEncryptEmptyRecipientList(t *testing.T) {
	sender, _ := GenerateBoxKeyPair()

	_, err := Encrypt([]byte("message"), sender, nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Encrypt() error = %v, want %v", err, ErrInvalidArgument)
	}
}

func TestDecryptNotARecipient(t *testing.T) {
	sender, _ := GenerateBoxKeyPair()
	recipient, _ := GenerateBoxKeyPair()
	outsider, _ := GenerateBoxKeyPair()

	ciphertext, err := Encrypt([]byte("secret"), sender, []BoxPublicKey{recipient.Public})
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	_, _, err = Decrypt(ciphertext, outsider)
	if !errors.Is(err, ErrNotARecipient) {
		t.Errorf("Decrypt() error = %v, want %v", err, ErrNotARecipient)
	}
}

func TestDecryptTruncated(t *testing.T) {
	sender, _ := GenerateBoxKeyPair()
	recipient, _ := GenerateBoxKeyPair()

	ciphertext, err := Encrypt([]byte("Hello, Saltpack!"), sender, []BoxPublicKey{recipient.Public})
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// Drop the terminator packet
	header, packets := splitMessage(t, ciphertext)
	truncated := joinMessage(header, packets[:len(packets)-1])

	_, _, err = Decrypt(truncated, recipient)
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("Decrypt() error = %v, want %v", err, ErrUnexpectedEOF)
	}
}

func TestDecryptPacketSwap(t *testing.T) {
	sender, _ := GenerateBoxKeyPair()
	recipient, _ := GenerateBoxKeyPair()

	plaintext := randomBytes(t, 2*MaxChunkSize)
	ciphertext, err := Encrypt(plaintext, sender, []BoxPublicKey{recipient.Public})
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	header, packets := splitMessage(t, ciphertext)
	if len(packets) != 3 {
		t.Fatalf("packet count = %d, want 3", len(packets))
	}
	packets[0], packets[1] = packets[1], packets[0]
	swapped := joinMessage(header, packets)

	_, _, err = Decrypt(swapped, recipient)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Decrypt() error = %v, want AuthError", err)
	}
	if authErr.Index != 0 {
		t.Errorf("AuthError.Index = %d, want 0", authErr.Index)
	}
}

func TestDecryptHeaderTamper(t *testing.T) {
	sender, _ := GenerateBoxKeyPair()
	recipient, _ := GenerateBoxKeyPair()

	ciphertext, err := Encrypt([]byte("bound to the header"), sender, []BoxPublicKey{recipient.Public})
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	header, packets := splitMessage(t, ciphertext)

	// Flip one bit in the last header byte (inside the recipient's
	// payload-key box); the payload key must become unrecoverable.
	tampered := append(msgpack.RawMessage(nil), header...)
	tampered[len(tampered)-1] ^= 0x01

	plaintext, _, err := Decrypt(joinMessage(tampered, packets), recipient)
	if err == nil {
		t.Fatal("Decrypt() succeeded on a tampered header")
	}
	if plaintext != nil {
		t.Errorf("Decrypt() returned plaintext on failure")
	}
}

func TestDecryptIgnoresTrailingData(t *testing.T) {
	sender, _ := GenerateBoxKeyPair()
	recipient, _ := GenerateBoxKeyPair()

	ciphertext, err := Encrypt([]byte("payload"), sender, []BoxPublicKey{recipient.Public})
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// Garbage after the terminator must not disturb the result.
	withTrailer := append(append([]byte(nil), ciphertext...), 0xde, 0xad)

	decrypted, _, err := Decrypt(withTrailer, recipient)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(decrypted) != "payload" {
		t.Errorf("plaintext = %q, want %q", decrypted, "payload")
	}
}

func TestDecryptEmptyStream(t *testing.T) {
	recipient, _ := GenerateBoxKeyPair()

	_, _, err := Decrypt(nil, recipient)
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("Decrypt() error = %v, want %v", err, ErrUnexpectedEOF)
	}
}

func TestNewEncryptStreamChunking(t *testing.T) {
	sender, _ := GenerateBoxKeyPair()
	recipient, _ := GenerateBoxKeyPair()

	// Feed the stream in awkward write sizes and confirm packet counts.
	plaintext := randomBytes(t, MaxChunkSize+MaxChunkSize/2)

	var out bytes.Buffer
	stream, err := NewEncryptStream(&out, sender, []BoxPublicKey{recipient.Public})
	if err != nil {
		t.Fatalf("NewEncryptStream() error = %v", err)
	}
	for i := 0; i < len(plaintext); i += 100_000 {
		end := min(i+100_000, len(plaintext))
		if _, err := stream.Write(plaintext[i:end]); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	_, packets := splitMessage(t, out.Bytes())
	if len(packets) != 3 {
		t.Errorf("packet count = %d, want 3 (two data + terminator)", len(packets))
	}

	decrypted, _, err := Decrypt(out.Bytes(), recipient)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("plaintext mismatch after streamed encryption")
	}
}
