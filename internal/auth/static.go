package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// StaticKeys accepts a fixed list of plaintext keys, typically from
// configuration.
type StaticKeys struct {
	sums [][sha256.Size]byte
}

// NewStaticKeys ignores empty entries.
func NewStaticKeys(keys ...string) *StaticKeys {
	s := &StaticKeys{}
	for _, k := range keys {
		if k != "" {
			s.sums = append(s.sums, sha256.Sum256([]byte(k)))
		}
	}
	return s
}

// Len is the number of configured keys.
func (s *StaticKeys) Len() int { return len(s.sums) }

// Verify compares digests in constant time.
func (s *StaticKeys) Verify(_ context.Context, key string) bool {
	if key == "" {
		return false
	}
	sum := sha256.Sum256([]byte(key))
	ok := 0
	for _, want := range s.sums {
		ok |= subtle.ConstantTimeCompare(sum[:], want[:])
	}
	return ok == 1
}

// Any accepts a key when one of its verifiers does. Nil entries are skipped.
type Any []Verifier

// Verify implements Verifier.
func (a Any) Verify(ctx context.Context, key string) bool {
	for _, v := range a {
		if v != nil && v.Verify(ctx, key) {
			return true
		}
	}
	return false
}

// CallerID is a stable, non-reversible label for key, used for per-caller
// rate limiting and logs.
func CallerID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key-" + hex.EncodeToString(sum[:6])
}
