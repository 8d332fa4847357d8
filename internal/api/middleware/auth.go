package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brightlock/idgateway/internal/api/helpers"
	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/cache"
	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// RoleStore is the subset of the Persistence Gateway the Admin Gate depends
// on: a fresh read of a subject's role, never trusted from the token.
type RoleStore interface {
	CurrentRole(ctx context.Context, userID int64) (string, error)
}

func extractBearer(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeAuthError(w http.ResponseWriter, err error) {
	helpers.RespondErr(w, err)
}

// decodeBearer runs the shared bearer-credential path both RequireAuth and
// RequireAdmin start from: extract, check black-list, decode.
func decodeBearer(r *http.Request, tokens auth.TokenProvider, c cache.Cache) (*auth.Claims, string, error) {
	token, ok := extractBearer(r)
	if !ok {
		return nil, "", gatewayerr.New(gatewayerr.Unauthorized, "missing or malformed authorization header")
	}
	if c.Exists(r.Context(), cache.BlacklistKey(token)) {
		return nil, "", gatewayerr.New(gatewayerr.TokenExpired, "token has been revoked")
	}
	claims, err := tokens.Decode(token)
	if err != nil {
		return nil, "", err
	}
	return claims, token, nil
}

// RequireAuth implements the bearer-credential path shared by every
// authenticated (non-admin) endpoint: extract, black-list check, decode,
// attach claims and user id to the request context.
func RequireAuth(tokens auth.TokenProvider, c cache.Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _, err := decodeBearer(r, tokens, c)
			if err != nil {
				slog.Warn("auth_rejected", "error", err, "ip", r.RemoteAddr)
				writeAuthError(w, err)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				writeAuthError(w, gatewayerr.New(gatewayerr.InvalidToken, "invalid subject"))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			SetSentryUser(ctx, claims.Subject, claims.Role, r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin is the Admin Gate: the same bearer path as RequireAuth, then
// a fresh store read of the subject's role rather than trusting the token's
// role claim, so a demotion takes effect at the very next request even for
// a still-valid token.
func RequireAdmin(tokens auth.TokenProvider, c cache.Cache, roles RoleStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _, err := decodeBearer(r, tokens, c)
			if err != nil {
				slog.Warn("admin_auth_rejected", "error", err, "ip", r.RemoteAddr)
				writeAuthError(w, err)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				writeAuthError(w, gatewayerr.New(gatewayerr.InvalidToken, "invalid subject"))
				return
			}

			role, err := roles.CurrentRole(r.Context(), userID)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			if role != "admin" {
				writeAuthError(w, gatewayerr.New(gatewayerr.Forbidden, "admin role required"))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, RoleKey, role)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			SetSentryUser(ctx, claims.Subject, role, r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
