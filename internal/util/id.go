package util

import (
	"crypto/rand"
	"encoding/hex"
)

func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// NewJoinCode produces a short lowercase code suitable for workspace invites.
func NewJoinCode() string {
	const alphabet = "abcdefghjkmnpqrstuvwxyz23456789"
	bytes := make([]byte, 6)
	_, _ = rand.Read(bytes)
	code := make([]byte, len(bytes))
	for i, b := range bytes {
		code[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(code)
}
