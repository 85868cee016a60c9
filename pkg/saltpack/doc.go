// Package saltpack implements the Saltpack v2 message format for
// multi-recipient authenticated encryption and attached signing.
//
// Saltpack wraps the NaCl primitives (X25519 key agreement,
// XSalsa20-Poly1305 authenticated encryption, Ed25519 signatures and
// BLAKE2b hashing) into a streaming, chunked message container
// serialized with MessagePack.
//
// # Message Layout
//
// Every message starts with one MessagePack header value:
//
// Encryption (mode 0), a 6-element array:
//   - Format name: "saltpack"
//   - Version: [2, 0]
//   - Mode: 0
//   - Ephemeral public key (32 bytes)
//   - Sender secretbox (48 bytes)
//   - Recipient entries: [public_key_or_nil, payload_key_box]
//
// Attached signing (mode 1), a 5-element array:
//   - Format name: "saltpack"
//   - Version: [2, 0]
//   - Mode: 1
//   - Signer public key (32 bytes)
//   - Header nonce (32 random bytes)
//
// The first 32 bytes of the BLAKE2b-512 hash of the serialized header
// bind every payload packet that follows. Payload packets carry at most
// 1 MiB of plaintext each; the last packet of a message always has an
// empty chunk and acts as the terminator. Readers that do not observe a
// terminator report a truncated stream.
//
// # Usage Example
//
//	sender, _ := saltpack.GenerateBoxKeyPair()
//	recipient, _ := saltpack.GenerateBoxKeyPair()
//
//	ciphertext, err := saltpack.Encrypt(plaintext, sender, []saltpack.BoxPublicKey{recipient.Public})
//	if err != nil {
//	    // handle error
//	}
//
//	plaintext, senderKey, err := saltpack.Decrypt(ciphertext, recipient)
//
// Streaming variants (NewEncryptStream, NewDecryptStream, NewSignStream,
// NewVerifyStream) process a message chunk by chunk without holding it
// in memory.
package saltpack
