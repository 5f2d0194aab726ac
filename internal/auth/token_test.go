package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, err := m.Issue(42)
	require.NoError(t, err)

	uid, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
}

func TestTokenRejected(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	other, _ := NewTokenManager("other-secret", time.Hour).Issue(1)
	expired, _ := NewTokenManager("secret", -time.Minute).Issue(1)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": 1, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))

	for name, token := range map[string]string{
		"wrong secret": other,
		"expired":      expired,
		"alg none":     noneAlg,
		"no user_id":   noUser,
		"garbage":      "not.a.token",
	} {
		_, err := m.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}
