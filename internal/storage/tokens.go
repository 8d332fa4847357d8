package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// SaveAccessToken persists an access token. clientID is nil for
// local-login tokens.
func (g *Gateway) SaveAccessToken(ctx context.Context, token string, clientID *string, userID int64, scopes []string, expiresAt time.Time) (int64, error) {
	const q = `
		INSERT INTO access_tokens (token, client_id, user_id, scopes, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := g.pool.QueryRow(ctx, q, token, clientID, userID, scopes, expiresAt).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, gatewayerr.New(gatewayerr.Conflict, "access token collision")
		}
		return 0, gatewayerr.Wrap(gatewayerr.Internal, "save_access_token failed", err)
	}
	return id, nil
}

// SaveRefreshToken persists a refresh token back-referencing its access
// token. Referential integrity is enforced by the foreign key.
func (g *Gateway) SaveRefreshToken(ctx context.Context, token string, accessTokenID int64, expiresAt time.Time) error {
	const q = `
		INSERT INTO refresh_tokens (token, access_token_id, expires_at)
		VALUES ($1, $2, $3)`

	_, err := g.pool.Exec(ctx, q, token, accessTokenID, expiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return gatewayerr.New(gatewayerr.Conflict, "refresh token collision")
		}
		return gatewayerr.Wrap(gatewayerr.Internal, "save_refresh_token failed", err)
	}
	return nil
}

// FoundToken is the projection returned by FindToken.
type FoundToken struct {
	UserID    int64
	ClientID  *string
	Scopes    []string
	ExpiresAt time.Time
}

// FindToken resolves an opaque access token to its subject, scopes and
// expiry. Returns nil, nil if not found. Liveness beyond this (black-list
// membership) is the cache layer's job.
func (g *Gateway) FindToken(ctx context.Context, token string) (*FoundToken, error) {
	const q = `SELECT user_id, client_id, scopes, expires_at FROM access_tokens WHERE token = $1`

	var t FoundToken
	err := g.pool.QueryRow(ctx, q, token).Scan(&t.UserID, &t.ClientID, &t.Scopes, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "find_token failed", err)
	}
	return &t, nil
}

// ListClientsForSubject lists the distinct non-null client_ids holding a
// live (non-expired) access token for userID. Backs the user-facing
// authorization listing.
func (g *Gateway) ListClientsForSubject(ctx context.Context, userID int64) ([]string, error) {
	const q = `
		SELECT DISTINCT client_id FROM access_tokens
		WHERE user_id = $1 AND client_id IS NOT NULL AND expires_at > now()
		ORDER BY client_id`

	rows, err := g.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "list_clients_for_subject failed", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var clientID string
		if err := rows.Scan(&clientID); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "list_clients_for_subject scan failed", err)
		}
		out = append(out, clientID)
	}
	return out, rows.Err()
}

// TokensForSubjectAndClient returns every live (non-expired) access token
// issued to (userID, clientID), for revocation.
func (g *Gateway) TokensForSubjectAndClient(ctx context.Context, userID int64, clientID string) ([]string, error) {
	const q = `
		SELECT token FROM access_tokens
		WHERE user_id = $1 AND client_id = $2 AND expires_at > now()`

	rows, err := g.pool.Query(ctx, q, userID, clientID)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "tokens_for_subject_and_client failed", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "tokens_for_subject_and_client scan failed", err)
		}
		out = append(out, token)
	}
	return out, rows.Err()
}
