package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes a sha256 HMAC hex signature over payload
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify verifies a sha256 HMAC hex signature against payload and secret
func Verify(secret string, payload []byte, signatureHex string) bool {
	if secret == "" || signatureHex == "" {
		return false
	}
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signatureHex))
}
