// Package cryptoutil interprets configured secret keys.
package cryptoutil

import (
	"encoding/hex"
	"fmt"
)

// IsHexString reports whether s has only hexadecimal digits. It is true for
// the empty string.
func IsHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// ResolveKey turns a configured secret into key bytes. An even-length hex
// string of at least 2*minBytes characters is decoded; anything else is
// used raw and must be at least minBytes long.
func ResolveKey(key string, minBytes int) ([]byte, error) {
	if len(key) >= 2*minBytes && len(key)%2 == 0 && IsHexString(key) {
		decoded, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("key hex decode: %w", err)
		}
		return decoded, nil
	}
	if len(key) < minBytes {
		return nil, fmt.Errorf("key must be at least %d bytes (got %d)", minBytes, len(key))
	}
	return []byte(key), nil
}
