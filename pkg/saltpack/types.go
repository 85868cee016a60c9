package saltpack

// Format constants
const (
	// FormatName identifies the message format in every header
	FormatName = "saltpack"

	// Version
	MajorVersion = 2
	MinorVersion = 0
)

// Message modes
const (
	ModeEncryption      = 0
	ModeAttachedSigning = 1
)

// Sizes
const (
	// MaxChunkSize is the largest plaintext chunk carried by one
	// payload packet
	MaxChunkSize = 1 << 20 // 1 MiB

	// Poly1305 authenticator length added to every secretbox
	secretboxOverhead = 16

	// Key sizes
	BoxPublicKeySize     = 32
	BoxSecretKeySize     = 32
	SigningPublicKeySize = 32
	SigningSecretKeySize = 64

	payloadKeySize  = 32
	headerNonceSize = 32
	headerHashSize  = 32
	signatureSize   = 64
)

// BoxPublicKey is an X25519 public key used for encryption.
type BoxPublicKey [BoxPublicKeySize]byte

// BoxSecretKey is an X25519 secret key used for decryption.
type BoxSecretKey [BoxSecretKeySize]byte

// SigningPublicKey is an Ed25519 public key used for verification.
type SigningPublicKey [SigningPublicKeySize]byte

// SigningSecretKey is an Ed25519 secret key in expanded form.
type SigningSecretKey [SigningSecretKeySize]byte

// BoxKeyPair holds an encryption key pair.
type BoxKeyPair struct {
	Public BoxPublicKey
	Secret BoxSecretKey
}

// SigningKeyPair holds a signing key pair.
type SigningKeyPair struct {
	Public SigningPublicKey
	Secret SigningSecretKey
}

// headerHash binds payload packets to the header that introduced them.
type headerHash [headerHashSize]byte
