package worker

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 of body keyed with secret. The
// MAC covers the exact bytes put on the wire; receivers verify against the
// raw request body, so the body must never be re-serialized after signing.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
