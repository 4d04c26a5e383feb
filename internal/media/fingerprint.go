package media

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex-encoded SHA-256 digest of the raw bytes. The
// digest is the deduplication key: two uploads with equal fingerprints are
// treated as the same content everywhere in the engine.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
