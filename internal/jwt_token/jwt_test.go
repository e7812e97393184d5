package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "escolinha/pkg/domain-errors"
)

var (
	issuedAt  = time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	expiresIn = 60 * 24 * time.Hour
)

func newService(now time.Time) *JWTService {
	return NewJWTService("test-signing-key", "test-issuer").WithClock(func() time.Time { return now })
}

func Test_GenerateLinkToken(t *testing.T) {
	svc := newService(issuedAt.Add(time.Hour))
	token, err := svc.GenerateLinkToken("rid-1", 2026, issuedAt, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "rid-1", claims.RematriculaID)
	assert.Equal(t, 2026, claims.Ano)
	assert.Equal(t, issuedAt.Add(expiresIn), claims.ExpiresAt.Time.UTC())
}

func Test_ValidateToken_Failures(t *testing.T) {
	valid, err := newService(issuedAt).GenerateLinkToken("rid-1", 2026, issuedAt, expiresIn)
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := newService(issuedAt).ValidateToken("not-a-token")
		require.ErrorIs(t, err, ErrInvalidLink)
	})

	t.Run("expired link reads as not found", func(t *testing.T) {
		_, err := newService(issuedAt.Add(expiresIn + time.Minute)).ValidateToken(valid)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		assert.Equal(t, "link inválido", dErrors.MessageOf(err))
	})

	t.Run("other signing key", func(t *testing.T) {
		other := NewJWTService("another-key", "test-issuer").WithClock(func() time.Time { return issuedAt })
		_, err := other.ValidateToken(valid)
		require.ErrorIs(t, err, ErrInvalidLink)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewJWTService("test-signing-key", "someone-else").WithClock(func() time.Time { return issuedAt })
		_, err := other.ValidateToken(valid)
		require.ErrorIs(t, err, ErrInvalidLink)
	})

	t.Run("unsigned token", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RematriculaID: "rid-1", Ano: 2026})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = newService(issuedAt).ValidateToken(raw)
		require.ErrorIs(t, err, ErrInvalidLink)
	})
}
