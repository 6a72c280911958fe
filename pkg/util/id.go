package util

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateConnectionID returns a fresh 12-lowercase-hex-character connection
// identifier (spec.md §6). The caller is responsible for checking the result
// against the store's collision index and retrying on conflict.
func GenerateConnectionID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
