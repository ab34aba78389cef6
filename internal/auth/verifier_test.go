package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signHS256(t *testing.T, secret string, claims map[string]any) string {
	t.Helper()
	hdr, _ := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	signing := enc.EncodeToString(hdr) + "." + enc.EncodeToString(body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))
	return signing + "." + enc.EncodeToString(mac.Sum(nil))
}

func TestVerifyDevToken(t *testing.T) {
	v := NewVerifier("dev", "", "")

	p, err := v.Verify("acme:planner")
	require.NoError(t, err)
	assert.Equal(t, "acme", p.Tenant)
	assert.Equal(t, RolePlanner, p.Role)
	assert.True(t, p.CanSubmit())
	assert.False(t, p.IsAdmin())

	_, err = v.Verify("no-role")
	assert.Error(t, err)
}

func TestVerifyHMAC(t *testing.T) {
	v := NewVerifier("hmac", "topsecret", "")
	tok := signHS256(t, "topsecret", map[string]any{
		"tenant": "acme", "role": "Admin", "sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "acme", p.Tenant)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.Equal(t, "u1", p.Subject)
}

func TestVerifyHMACBadSignature(t *testing.T) {
	v := NewVerifier("hmac", "topsecret", "")
	tok := signHS256(t, "wrong-secret", map[string]any{"tenant": "acme", "role": "admin"})
	_, err := v.Verify(tok)
	assert.Error(t, err)
}

func TestVerifyHMACExpired(t *testing.T) {
	v := NewVerifier("hmac", "topsecret", "")
	tok := signHS256(t, "topsecret", map[string]any{
		"tenant": "acme", "role": "admin",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	_, err := v.Verify(tok)
	assert.Error(t, err)
}

func TestVerifyMissingTenant(t *testing.T) {
	v := NewVerifier("hmac", "topsecret", "")
	tok := signHS256(t, "topsecret", map[string]any{"role": "admin"})
	_, err := v.Verify(tok)
	assert.Error(t, err)
}
