package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the payload signature on delivery requests.
const SignatureHeader = "X-Fleetroute-Signature"

const sigPrefix = "sha256="

// Sign returns the delivery signature for a payload: "sha256=" followed
// by lowercase hex of HMAC-SHA256 over the raw body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return sigPrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a delivery signature produced by Sign. Receivers use it
// to authenticate incoming webhook requests.
func Verify(secret string, body []byte, provided string) bool {
	raw, ok := strings.CutPrefix(provided, sigPrefix)
	if !ok {
		return false
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), b)
}
