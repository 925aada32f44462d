// Package token generates opaque invite tokens.
//
// Tokens carry 256 bits of cryptographically secure randomness encoded with
// the unpadded URL-safe base64 alphabet, producing 43-character strings. A
// token is a capability: it is only ever used for lookup by redeemers and is
// never referenced internally in place of an invite id.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const rawByteLen = 32

// EncodedLen is the length of every generated token.
const EncodedLen = 43

// New generates an invite token from 32 bytes of secure randomness.
func New() (string, error) {
	var raw [rawByteLen]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// Wellformed reports whether value has the shape of a generated token.
// It performs no lookup; a well-formed token may still be unknown.
func Wellformed(value string) bool {
	if len(value) != EncodedLen {
		return false
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
