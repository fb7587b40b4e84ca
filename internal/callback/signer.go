package callback

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/cryptoutil"
)

// SignatureHeader carries the payload HMAC when signing is configured.
const SignatureHeader = "X-Honeypot-Signature"

const signaturePrefix = "hmac-sha256:"

// Signer creates and verifies HMAC-SHA256 signatures over payload bytes.
type Signer struct {
	key []byte
}

// NewSigner creates a signer. key must be at least 32 raw bytes, or 64+ hex
// characters decoding to at least 32 bytes.
func NewSigner(key string) (*Signer, error) {
	keyBytes, err := cryptoutil.ResolveKey(key, 32)
	if err != nil {
		return nil, fmt.Errorf("callback signing key: %w", err)
	}
	return &Signer{key: keyBytes}, nil
}

// Sign returns "hmac-sha256:<hex>" for data.
func (s *Signer) Sign(data []byte) string {
	h := hmac.New(sha256.New, s.key)
	h.Write(data)
	return signaturePrefix + hex.EncodeToString(h.Sum(nil))
}

// Verify checks signature against data in constant time.
func (s *Signer) Verify(data []byte, signature string) bool {
	return hmac.Equal([]byte(s.Sign(data)), []byte(signature))
}
