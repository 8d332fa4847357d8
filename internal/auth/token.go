package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// Common sentinel errors, retained for callers that prefer errors.Is over
// inspecting the gatewayerr.Kind returned by Decode.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenProvider defines the contract for encoding and decoding bearer
// claims. The codec never consults storage; liveness beyond signature and
// expiry is the black-list cache's job, one layer up.
type TokenProvider interface {
	Encode(userID int64, ttl time.Duration, scope []string, role string) (string, error)
	EncodeIDToken(userID int64, ttl time.Duration, audience string) (string, error)
	Decode(tokenString string) (*Claims, error)
	GetJWKS() *JWKS
}

// Claims is the bearer-token claim set: subject, issued-at, expiry, an
// optional scope set, and role.
type Claims struct {
	Scope []string `json:"scope,omitempty"`
	Role  string   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the stringified subject back into the 64-bit user id.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// HasScope reports whether scope s was granted.
func (c *Claims) HasScope(s string) bool {
	for _, have := range c.Scope {
		if have == s {
			return true
		}
	}
	return false
}

// JWK represents a JSON Web Key. Present for interface parity with the
// discovery surface; with symmetric, static key material there is no public
// key to publish, so the set stays empty (see GetJWKS).
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
}

// JWKS represents a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWTProvider implements TokenProvider using a symmetric HMAC-SHA256
// (HS256) signature over a process-wide secret loaded at startup.
type JWTProvider struct {
	secret []byte
	issuer string
	kid    string
}

// NewJWTProvider builds a provider from a raw secret (not a PEM key;
// signing here is symmetric, not asymmetric). The secret must be non-empty;
// the caller is responsible for failing startup if it is missing in
// production.
func NewJWTProvider(secret string, issuer string) *JWTProvider {
	if secret == "" {
		panic("jwt secret must not be empty")
	}
	return &JWTProvider{
		secret: []byte(secret),
		issuer: issuer,
		kid:    "hs-1",
	}
}

// Encode mints a signed token for userID, valid for ttl, carrying the given
// scope and role.
func (p *JWTProvider) Encode(userID int64, ttl time.Duration, scope []string, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Scope: scope,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    p.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = p.kid
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// EncodeIDToken mints an OIDC ID token carrying iss, sub, aud (the
// requesting client), iat and exp. No scope or role.
func (p *JWTProvider) EncodeIDToken(userID int64, ttl time.Duration, audience string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    p.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = p.kid
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign id token: %w", err)
	}
	return signed, nil
}

// Decode parses and verifies a token, returning InvalidToken for any
// decode/signature failure and TokenExpired specifically for an expired
// (but otherwise valid) token.
func (p *JWTProvider) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, gatewayerr.New(gatewayerr.TokenExpired, "token has expired")
		}
		return nil, gatewayerr.New(gatewayerr.InvalidToken, "invalid or malformed token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, gatewayerr.New(gatewayerr.InvalidToken, "invalid or malformed token")
	}
	return claims, nil
}

// GetJWKS returns the discovery key set. Key material is symmetric and
// static in this version (no asymmetric rotation), so there is nothing
// safe to publish; the set is served but empty.
func (p *JWTProvider) GetJWKS() *JWKS {
	return &JWKS{Keys: []JWK{}}
}

// ParseScope splits a space-delimited OAuth scope parameter into a set,
// dropping empty elements.
func ParseScope(raw string) []string {
	return strings.Fields(raw)
}
