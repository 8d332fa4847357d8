package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// SaveAuthCode persists a freshly-minted authorization code.
func (g *Gateway) SaveAuthCode(ctx context.Context, code, clientID string, userID int64, redirectURI string, scopes []string, expiresAt time.Time) error {
	const q = `
		INSERT INTO authorization_codes (code, client_id, user_id, redirect_uri, scopes, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, $6, false)`

	_, err := g.pool.Exec(ctx, q, code, clientID, userID, redirectURI, scopes, expiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return gatewayerr.New(gatewayerr.Conflict, "authorization code collision")
		}
		return gatewayerr.Wrap(gatewayerr.Internal, "save_auth_code failed", err)
	}
	return nil
}

// FindAuthCode reads an authorization code row without mutating it. Returns
// nil, nil if the code does not exist. Callers use this to validate the
// presented client_id and redirect_uri against the stored binding before
// consuming, so a mismatched exchange attempt leaves the code untouched.
func (g *Gateway) FindAuthCode(ctx context.Context, code string) (*AuthCode, error) {
	const q = `
		SELECT id, code, client_id, user_id, redirect_uri, scopes, expires_at, used
		FROM authorization_codes WHERE code = $1`

	var ac AuthCode
	err := g.pool.QueryRow(ctx, q, code).Scan(
		&ac.ID, &ac.Code, &ac.ClientID, &ac.UserID, &ac.RedirectURI, &ac.Scopes, &ac.ExpiresAt, &ac.Used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "find_auth_code failed", err)
	}
	return &ac, nil
}

// ConsumedAuthCode is the immutable record returned by a successful
// ConsumeAuthCode.
type ConsumedAuthCode struct {
	ClientID    string
	UserID      int64
	RedirectURI string
	Scopes      []string
}

// ConsumeAuthCode is the atomic check-and-mark that is the linchpin
// single-use guarantee: if the code is already used or expired, it returns
// (nil, nil) and performs no mutation. The conditional UPDATE's affected
// row count is the compare-and-set; two concurrent consumers observe
// exactly one success.
func (g *Gateway) ConsumeAuthCode(ctx context.Context, code string) (*ConsumedAuthCode, error) {
	const q = `
		UPDATE authorization_codes
		SET used = true
		WHERE code = $1 AND used = false AND expires_at > now()
		RETURNING client_id, user_id, redirect_uri, scopes`

	var rec ConsumedAuthCode
	err := g.pool.QueryRow(ctx, q, code).Scan(&rec.ClientID, &rec.UserID, &rec.RedirectURI, &rec.Scopes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "consume_auth_code failed", err)
	}
	return &rec, nil
}
