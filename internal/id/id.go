package id

import (
	"crypto/rand"
	"encoding/hex"
)

// New returns a 32-character hex request identifier.
func New() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "request-fallback-id"
	}
	return hex.EncodeToString(b[:])
}
