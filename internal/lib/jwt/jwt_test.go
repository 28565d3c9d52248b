package jwt_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"notes_service/internal/lib/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *jwt.Manager {
	t.Helper()

	secret := base64.StdEncoding.EncodeToString([]byte("test-signing-secret"))

	m, err := jwt.New(secret, 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	return m
}

func TestNew_BadSecretEncoding(t *testing.T) {
	_, err := jwt.New("not-base64!!!", time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestNew_EmptySecret(t *testing.T) {
	_, err := jwt.New("", time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestVerify_RoundTrip(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name      string
		tokenType jwt.TokenType
	}{
		{name: "access", tokenType: jwt.TypeAccess},
		{name: "refresh", tokenType: jwt.TypeRefresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.Issue("user-42", tt.tokenType, time.Minute)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := m.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, "user-42", claims.Subject)
			assert.Equal(t, tt.tokenType, claims.Type)
		})
	}
}

func TestVerify_StripsBearerPrefix(t *testing.T) {
	m := newTestManager(t)

	token, err := m.NewAccessToken("user-1")
	require.NoError(t, err)

	claims, err := m.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	// lowercase prefix is not a valid carrier prefix
	_, err = m.Verify("bearer " + token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestVerify_ExpiredToken(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Issue("user-1", jwt.TypeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestVerify_ZeroTTL(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Issue("user-1", jwt.TypeAccess, 0)
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestVerify_TamperedSignature(t *testing.T) {
	m := newTestManager(t)

	token, err := m.NewAccessToken("user-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// меняем символ в середине подписи, последний может попасть
	// в неиспользуемые биты base64
	sig := []byte(parts[2])
	if sig[5] == 'A' {
		sig[5] = 'B'
	} else {
		sig[5] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = m.Verify(tampered)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	m := newTestManager(t)

	otherSecret := base64.StdEncoding.EncodeToString([]byte("another-secret"))
	other, err := jwt.New(otherSecret, time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := other.NewAccessToken("user-1")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	m := newTestManager(t)

	for _, raw := range []string{"", "garbage", "a.b.c", "Bearer "} {
		_, err := m.Verify(raw)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	}
}

func TestTypeConfinement(t *testing.T) {
	m := newTestManager(t)

	access, err := m.NewAccessToken("user-1")
	require.NoError(t, err)

	refreshToken, _, err := m.NewRefreshToken("user-1")
	require.NoError(t, err)

	assert.True(t, m.IsAccessToken(access))
	assert.False(t, m.IsRefreshToken(access))

	assert.True(t, m.IsRefreshToken(refreshToken))
	assert.False(t, m.IsAccessToken(refreshToken))

	assert.False(t, m.IsAccessToken("garbage"))
	assert.False(t, m.IsRefreshToken("garbage"))
}

func TestNewRefreshToken_Expiry(t *testing.T) {
	m := newTestManager(t)

	_, expiresAt, err := m.NewRefreshToken("user-1")
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(720*time.Hour), expiresAt, time.Minute)
}
