package saltpack

import "encoding/binary"

const nonceSize = 24

// nonce is a NaCl-style nonce: a 16-byte ASCII prefix followed by an
// 8-byte big-endian counter, or a fixed 24-byte string.
type nonce [nonceSize]byte

// nonceForPayloadKeyBox builds the nonce for the ith recipient's
// payload-key box.
func nonceForPayloadKeyBox(i uint64) *nonce {
	var n nonce
	copy(n[0:16], "saltpack_recipsb")
	binary.BigEndian.PutUint64(n[16:], i)
	return &n
}

// nonceForSenderKeySecretbox returns the fixed nonce for the sender
// identity secretbox.
func nonceForSenderKeySecretbox() *nonce {
	var n nonce
	copy(n[:], "saltpack_sender_key_sbox")
	return &n
}

// nonceForChunkSecretbox builds the nonce for the ith payload packet.
func nonceForChunkSecretbox(i uint64) *nonce {
	var n nonce
	copy(n[0:16], "saltpack_ploadsb")
	binary.BigEndian.PutUint64(n[16:], i)
	return &n
}
