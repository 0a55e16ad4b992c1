package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the HTTP header carrying the provider's webhook signature
const SignatureHeader = "X-Provider-Signature"

// SignatureVerifier checks provider webhook signatures: hex-encoded
// HMAC-SHA256 of the raw request body, optionally prefixed with "sha256=".
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Verify reports whether header is a valid signature for payload. Comparison
// is constant-time.
func (v *SignatureVerifier) Verify(payload []byte, header string) bool {
	provided := strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	if provided == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(provided)))
}
