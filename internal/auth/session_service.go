package auth

import (
	"context"
	"time"

	"github.com/brightlock/idgateway/internal/audit"
	"github.com/brightlock/idgateway/internal/cache"
	"github.com/brightlock/idgateway/internal/gatewayerr"
	"github.com/brightlock/idgateway/internal/storage"
)

// SessionStore is the subset of the Persistence Gateway the session
// service depends on.
type SessionStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*storage.User, error)
	CreateUserWithInvite(ctx context.Context, username, email, passwordHash, inviteCode string) (*storage.User, storage.InviteConsumeFailure, error)
	FindUserByUsername(ctx context.Context, username string) (*storage.User, error)
	SaveAccessToken(ctx context.Context, token string, clientID *string, userID int64, scopes []string, expiresAt time.Time) (int64, error)
	SaveRefreshToken(ctx context.Context, token string, accessTokenID int64, expiresAt time.Time) error
}

// defaultLocalScopes is the scope carried by local-login tokens (no
// client_id).
var defaultLocalScopes = []string{"read", "write"}

// Session is the local register/login facility producing bearer tokens.
type Session struct {
	store      SessionStore
	policy     *PolicyEngine
	invites    *Invites
	hasher     PasswordHasher
	tokens     TokenProvider
	cache      cache.Cache
	audit      audit.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewSession(store SessionStore, policy *PolicyEngine, invites *Invites, hasher PasswordHasher, tokens TokenProvider, c cache.Cache, auditLog audit.Logger, accessTTL, refreshTTL time.Duration) *Session {
	return &Session{
		store: store, policy: policy, invites: invites, hasher: hasher, tokens: tokens, cache: c, audit: auditLog,
		accessTTL: accessTTL, refreshTTL: refreshTTL,
	}
}

// RegisterResult is returned on a successful registration.
type RegisterResult struct {
	UserID   int64
	Username string
	Email    string
}

// Register validates the candidate against the current policy, then creates
// the user. When an invite is required, user creation and invite consumption
// share one store transaction: losing the consume race against another
// registrant rolls the user row back and the registration fails with the
// reason the consume returned.
func (s *Session) Register(ctx context.Context, candidate RegistrationCandidate) (*RegisterResult, error) {
	cfg, err := s.policy.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Validate(cfg, candidate); err != nil {
		return nil, err
	}
	if cfg.RequireInviteCode {
		result, err := s.invites.Verify(ctx, candidate.Invite)
		if err != nil {
			return nil, err
		}
		if !result.Valid {
			return nil, gatewayerr.Newf(gatewayerr.BadRequest, "invite %s", result.Reason)
		}
	}

	passwordHash, err := s.hasher.Hash(candidate.Password)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "failed to hash password", err)
	}

	var user *storage.User
	if cfg.RequireInviteCode {
		created, reason, err := s.store.CreateUserWithInvite(ctx, candidate.Username, candidate.Email, passwordHash, candidate.Invite)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			return nil, gatewayerr.Newf(gatewayerr.BadRequest, "invite %s", reason)
		}
		user = created
	} else {
		user, err = s.store.CreateUser(ctx, candidate.Username, candidate.Email, passwordHash)
		if err != nil {
			return nil, err
		}
	}

	return &RegisterResult{UserID: user.ID, Username: user.Username, Email: user.Email}, nil
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}

// Login finds the user, verifies the password, and mints tokens. Both
// "user not found" and "bad password" collapse to InvalidCredentials with
// comparable latency: the absent-user path still runs a password
// verification against a fixed dummy hash.
func (s *Session) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		if argon, ok := s.hasher.(*Argon2Hasher); ok {
			argon.VerifyDummy(password)
		}
		s.audit.Log(ctx, 0, audit.EventLoginFailed, "session", map[string]string{"username": username})
		return nil, gatewayerr.New(gatewayerr.InvalidCredentials, "invalid username or password")
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.audit.Log(ctx, user.ID, audit.EventLoginFailed, "session", map[string]string{"username": username})
		return nil, gatewayerr.New(gatewayerr.InvalidCredentials, "invalid username or password")
	}

	access, err := s.tokens.Encode(user.ID, s.accessTTL, defaultLocalScopes, user.Role)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "failed to mint access token", err)
	}
	accessTokenID, err := s.store.SaveAccessToken(ctx, access, nil, user.ID, defaultLocalScopes, time.Now().Add(s.accessTTL))
	if err != nil {
		return nil, err
	}
	refresh, err := newOpaqueToken(32)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "failed to mint refresh token", err)
	}
	if err := s.store.SaveRefreshToken(ctx, refresh, accessTokenID, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, cache.TokenKey(access), formatInt64(user.ID), s.accessTTL)
	s.audit.Log(ctx, user.ID, audit.EventLoginSuccess, "session", nil)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}
