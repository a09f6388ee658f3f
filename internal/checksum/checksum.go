// Package checksum provides stable content digests used for change
// detection and slug disambiguation.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first 8 hex characters of Sum, enough to disambiguate
// titles without bloating slugs.
func Short(data []byte) string {
	return Sum(data)[:8]
}
