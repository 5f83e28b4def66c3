package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenBytes is the entropy of reset and verification tokens.
const TokenBytes = 32

// NewOpaqueToken returns a hex-encoded string built from TokenBytes of
// cryptographically secure random data (64 characters).
func NewOpaqueToken() (string, error) {
	return randomHex(TokenBytes)
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
