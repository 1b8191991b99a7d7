package worker

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func referenceMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignMatchesReference(t *testing.T) {
	body := []byte(`{"event":"event.created","data":{"id":7},"timestamp":"2024-01-01T00:00:00Z"}`)

	sig := Sign("topsecret", body)
	assert.Equal(t, referenceMAC("topsecret", body), sig)
	assert.Len(t, sig, 64, "hex-encoded SHA-256 MAC")
}

func TestSignDependsOnSecretAndBody(t *testing.T) {
	body := []byte(`{"a":1}`)

	assert.NotEqual(t, Sign("one", body), Sign("two", body))
	assert.NotEqual(t, Sign("one", body), Sign("one", []byte(`{"a":2}`)))
}
