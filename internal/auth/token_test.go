package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/gatewayerr"
)

func TestJWTProvider_EncodeDecode_RoundTrip(t *testing.T) {
	p := auth.NewJWTProvider("test-secret-value", "idgateway-test")

	token, err := p.Encode(42, time.Hour, []string{"read", "write"}, "admin")
	require.NoError(t, err)

	claims, err := p.Decode(token)
	require.NoError(t, err)

	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, claims.HasScope("read"))
	assert.True(t, claims.HasScope("write"))
	assert.False(t, claims.HasScope("openid"))

	gotTTL := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.InDelta(t, time.Hour.Seconds(), gotTTL.Seconds(), 2)
}

func TestJWTProvider_EncodeIDToken_CarriesAudience(t *testing.T) {
	p := auth.NewJWTProvider("test-secret-value", "https://idgateway.example.com")

	token, err := p.EncodeIDToken(7, time.Hour, "client-1")
	require.NoError(t, err)

	claims, err := p.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, []string{"client-1"}, []string(claims.Audience))
	assert.Empty(t, claims.Scope)
	assert.Empty(t, claims.Role)
}

func TestJWTProvider_Decode_Expired(t *testing.T) {
	p := auth.NewJWTProvider("test-secret-value", "idgateway-test")

	token, err := p.Encode(1, -time.Second, nil, "user")
	require.NoError(t, err)

	_, err = p.Decode(token)
	require.Error(t, err)
	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gatewayerr.TokenExpired, ge.Kind)
}

func TestJWTProvider_Decode_WrongSecret(t *testing.T) {
	p1 := auth.NewJWTProvider("secret-one", "idgateway-test")
	p2 := auth.NewJWTProvider("secret-two", "idgateway-test")

	token, err := p1.Encode(1, time.Hour, nil, "user")
	require.NoError(t, err)

	_, err = p2.Decode(token)
	require.Error(t, err)
	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gatewayerr.InvalidToken, ge.Kind)
}

func TestJWTProvider_GetJWKS_EmptySymmetricKeySet(t *testing.T) {
	p := auth.NewJWTProvider("test-secret-value", "idgateway-test")
	jwks := p.GetJWKS()
	assert.Empty(t, jwks.Keys)
}
