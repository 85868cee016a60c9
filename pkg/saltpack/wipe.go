package saltpack

// wipeBytes zeroes message-scoped key material. Callers must wipe every
// payload key, ephemeral secret and secret-key copy on all exit paths.
func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// allZero reports whether b contains only zero bytes. A sender
// secretbox decrypting to all zeros marks an anonymous sender.
func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
