// Package idgen provides cryptographically random ID generation.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
)

// WithPrefix generates a random ID with a prefix (e.g. "fra_" for assessments).
// Result is prefix + 24 hex chars (12 random bytes).
func WithPrefix(prefix string) string {
	return prefix + Hex(12)
}

// Hex generates a random hex string of the given byte length.
func Hex(numBytes int) string {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
