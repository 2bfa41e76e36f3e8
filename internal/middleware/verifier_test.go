package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	v, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	tokenStr := signToken(t, testSecret, jwt.MapClaims{
		"sub":          "user-1",
		"capabilities": []string{domain.CapabilityAgent},
		"exp":          time.Now().Add(time.Hour).Unix(),
	})

	identity, err := v.Verify(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.ID)
	assert.False(t, identity.Anonymous)
	assert.True(t, identity.HasCapability(domain.CapabilityAgent))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	tokenStr := signToken(t, "some-other-secret", jwt.MapClaims{"sub": "user-1"})
	_, err = v.Verify(tokenStr)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	tokenStr := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, err = v.Verify(tokenStr)
	assert.Error(t, err)
}

func TestVerifyRequiresSubject(t *testing.T) {
	v, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	tokenStr := signToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	_, err = v.Verify(tokenStr)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	_, err = v.Verify("not.a.token")
	assert.Error(t, err)
}

func TestNewTokenVerifierRequiresSecret(t *testing.T) {
	_, err := NewTokenVerifier("")
	assert.Error(t, err)
}
