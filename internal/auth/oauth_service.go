package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/brightlock/idgateway/internal/cache"
	"github.com/brightlock/idgateway/internal/gatewayerr"
	"github.com/brightlock/idgateway/internal/storage"
)

// OAuthStore is the subset of the Persistence Gateway the authorization
// service depends on.
type OAuthStore interface {
	FindClientByID(ctx context.Context, clientID string) (*storage.Client, error)
	SaveAuthCode(ctx context.Context, code, clientID string, userID int64, redirectURI string, scopes []string, expiresAt time.Time) error
	FindAuthCode(ctx context.Context, code string) (*storage.AuthCode, error)
	ConsumeAuthCode(ctx context.Context, code string) (*storage.ConsumedAuthCode, error)
	SaveAccessToken(ctx context.Context, token string, clientID *string, userID int64, scopes []string, expiresAt time.Time) (int64, error)
	SaveRefreshToken(ctx context.Context, token string, accessTokenID int64, expiresAt time.Time) error
	FindUserByID(ctx context.Context, id int64) (*storage.User, error)
	ListClientsForSubject(ctx context.Context, userID int64) ([]string, error)
	TokensForSubjectAndClient(ctx context.Context, userID int64, clientID string) ([]string, error)
	FindToken(ctx context.Context, token string) (*storage.FoundToken, error)
}

// OAuthConfig carries the configurable TTLs of the grant flow.
type OAuthConfig struct {
	AuthorizationCodeTTL time.Duration // default 300s
	AccessTokenTTL       time.Duration // default 3600s
	RefreshTokenTTL      time.Duration // default 2,592,000s
}

func DefaultOAuthConfig() OAuthConfig {
	return OAuthConfig{
		AuthorizationCodeTTL: 300 * time.Second,
		AccessTokenTTL:       3600 * time.Second,
		RefreshTokenTTL:      2_592_000 * time.Second,
	}
}

// OAuthService runs the authorization-code issuance/exchange state machine.
type OAuthService struct {
	store  OAuthStore
	cache  cache.Cache
	tokens TokenProvider
	cfg    OAuthConfig
}

func NewOAuthService(store OAuthStore, c cache.Cache, tokens TokenProvider, cfg OAuthConfig) *OAuthService {
	return &OAuthService{store: store, cache: c, tokens: tokens, cfg: cfg}
}

// AuthorizeResult is returned on a successful /authorize call; the HTTP
// layer performs the 302 to redirect_uri?code=...&state=....
type AuthorizeResult struct {
	Code  string
	State string
}

// Authorize validates the request and mints an authorization code,
// returning the most specific error kind it can prove. The redirect_uri
// check runs before any code is materialized so malicious redirects never
// leak state.
func (s *OAuthService) Authorize(ctx context.Context, responseType, clientID, redirectURI, scope, state string, subject int64) (*AuthorizeResult, error) {
	if responseType != "code" {
		return nil, gatewayerr.New(gatewayerr.BadRequest, "unsupported response_type")
	}

	client, err := s.store.FindClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, gatewayerr.New(gatewayerr.InvalidClient, "unknown client")
	}

	if !storage.VerifyRedirectURI(client, redirectURI) {
		return nil, gatewayerr.New(gatewayerr.InvalidRedirectUri, "redirect_uri not registered for client")
	}

	scopes := ParseScope(scope)
	if !storage.ScopesSubset(scopes, client.AllowedScopes) {
		return nil, gatewayerr.New(gatewayerr.BadRequest, "requested scope exceeds allowed scopes")
	}

	code, err := newOpaqueToken(32)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "failed to mint authorization code", err)
	}

	expiresAt := time.Now().Add(s.cfg.AuthorizationCodeTTL)
	if err := s.store.SaveAuthCode(ctx, code, clientID, subject, redirectURI, scopes, expiresAt); err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.AuthCodeKey(code), "live", s.cfg.AuthorizationCodeTTL)

	return &AuthorizeResult{Code: code, State: state}, nil
}

// TokenResult is the RFC 6749 §5.1 wire shape, with an optional ID token.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	IDToken      string
}

// Token runs the authorization-code exchange. grant_type=refresh_token is
// rejected with BadRequest: this version implements issuance, not rotation
// (see the resolved open question in DESIGN.md).
func (s *OAuthService) Token(ctx context.Context, grantType, code, clientID, clientSecret, redirectURI, scope string) (*TokenResult, error) {
	if grantType == "refresh_token" {
		return nil, gatewayerr.New(gatewayerr.BadRequest, "refresh token exchange is not supported")
	}
	if grantType != "authorization_code" {
		return nil, gatewayerr.New(gatewayerr.BadRequest, "unsupported grant_type")
	}

	client, err := s.store.FindClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil || !SecureCompareTokens(clientSecret, client.ClientSecret) {
		return nil, gatewayerr.New(gatewayerr.InvalidClient, "unknown client or invalid secret").WithStatus(401)
	}

	// Validate the presented client_id and redirect_uri against the stored
	// binding before mutating anything: a mismatched exchange attempt must
	// leave the code unconsumed. The failure message never says which field
	// mismatched.
	stored, err := s.store.FindAuthCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Used || !stored.ExpiresAt.After(time.Now()) ||
		stored.ClientID != clientID || stored.RedirectURI != redirectURI {
		return nil, gatewayerr.New(gatewayerr.InvalidAuthCode, "authorization code invalid, expired or used")
	}

	rec, err := s.store.ConsumeAuthCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Lost the single-use race between the read above and the
		// conditional mark.
		return nil, gatewayerr.New(gatewayerr.InvalidAuthCode, "authorization code invalid, expired or used")
	}
	s.cache.Delete(ctx, cache.AuthCodeKey(code))

	user, err := s.store.FindUserByID(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, gatewayerr.New(gatewayerr.InvalidAuthCode, "authorization code invalid, expired or used")
	}

	access, err := s.tokens.Encode(user.ID, s.cfg.AccessTokenTTL, rec.Scopes, user.Role)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "failed to mint access token", err)
	}
	accessTokenID, err := s.store.SaveAccessToken(ctx, access, &clientID, user.ID, rec.Scopes, time.Now().Add(s.cfg.AccessTokenTTL))
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.TokenKey(access), formatInt64(user.ID), s.cfg.AccessTokenTTL)

	refresh, err := newOpaqueToken(32)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "failed to mint refresh token", err)
	}
	if err := s.store.SaveRefreshToken(ctx, refresh, accessTokenID, time.Now().Add(s.cfg.RefreshTokenTTL)); err != nil {
		return nil, err
	}

	result := &TokenResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}

	if containsScope(rec.Scopes, "openid") {
		// The ID token mirrors the access-token lifetime.
		idToken, err := s.tokens.EncodeIDToken(user.ID, s.cfg.AccessTokenTTL, clientID)
		if err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "failed to mint id token", err)
		}
		result.IDToken = idToken
	}

	return result, nil
}

// UserInfoResult is the /oauth/userinfo response shape.
type UserInfoResult struct {
	Subject       string
	Name          string
	Email         string
	EmailVerified bool
}

// UserInfo resolves the subject from a bearer token via the same
// decode+black-list path the Admin Gate uses.
func (s *OAuthService) UserInfo(ctx context.Context, claims *Claims) (*UserInfoResult, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.InvalidToken, "invalid subject")
	}
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, gatewayerr.New(gatewayerr.Unauthorized, "unknown subject")
	}
	return &UserInfoResult{
		Subject:       formatInt64(user.ID),
		Name:          user.Username,
		Email:         user.Email,
		EmailVerified: true,
	}, nil
}

// RevokeToken inserts a black-list entry with TTL equal to the token's
// remaining lifetime and deletes the subject cache entry.
func (s *OAuthService) RevokeToken(ctx context.Context, token string, claims *Claims) {
	s.blacklist(ctx, token, time.Until(claims.ExpiresAt.Time))
}

func (s *OAuthService) blacklist(ctx context.Context, token string, remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	s.cache.Set(ctx, cache.BlacklistKey(token), "revoked", remaining)
	s.cache.Delete(ctx, cache.TokenKey(token))
}

// ListAuthorizations lists the distinct client ids holding a live access
// token for subject, for GET /api/user/authorizations.
func (s *OAuthService) ListAuthorizations(ctx context.Context, subject int64) ([]string, error) {
	return s.store.ListClientsForSubject(ctx, subject)
}

// RevokeAuthorization revokes every live access token issued to
// (subject, clientID): each is black-listed for its own remaining lifetime,
// matching the single-token RevokeToken contract applied in bulk.
func (s *OAuthService) RevokeAuthorization(ctx context.Context, subject int64, clientID string) error {
	tokens, err := s.store.TokensForSubjectAndClient(ctx, subject, clientID)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		rec, err := s.store.FindToken(ctx, token)
		if err != nil {
			return err
		}
		if rec == nil {
			continue
		}
		s.blacklist(ctx, token, time.Until(rec.ExpiresAt))
	}
	return nil
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

func newOpaqueToken(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func formatInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}
