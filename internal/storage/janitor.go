package storage

import (
	"context"

	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// CleanExpiredAuthCodes deletes authorization codes past their expiry,
// used or not. A code is single-use and worthless once expired, so there
// is nothing lost in reclaiming the row.
func (g *Gateway) CleanExpiredAuthCodes(ctx context.Context) (int64, error) {
	ct, err := g.pool.Exec(ctx, `DELETE FROM authorization_codes WHERE expires_at <= now()`)
	if err != nil {
		return 0, gatewayerr.Wrap(gatewayerr.Internal, "clean_expired_auth_codes failed", err)
	}
	return ct.RowsAffected(), nil
}

// CleanExpiredAccessTokens deletes access tokens past their expiry.
// Refresh tokens cascade via their foreign key.
func (g *Gateway) CleanExpiredAccessTokens(ctx context.Context) (int64, error) {
	ct, err := g.pool.Exec(ctx, `DELETE FROM access_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, gatewayerr.Wrap(gatewayerr.Internal, "clean_expired_access_tokens failed", err)
	}
	return ct.RowsAffected(), nil
}

// CleanExpiredRefreshTokens deletes refresh tokens past their own expiry
// whose access token is still live (the common case is already handled by
// the access token's cascade delete above).
func (g *Gateway) CleanExpiredRefreshTokens(ctx context.Context) (int64, error) {
	ct, err := g.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, gatewayerr.Wrap(gatewayerr.Internal, "clean_expired_refresh_tokens failed", err)
	}
	return ct.RowsAffected(), nil
}

// CleanSpentInviteCodes deletes invite codes that are revoked, expired, or
// have exhausted their uses, keeping the table free of dead capability
// grants. Live, unexpired, unexhausted codes are left untouched.
func (g *Gateway) CleanSpentInviteCodes(ctx context.Context) (int64, error) {
	const q = `
		DELETE FROM invite_codes
		WHERE revoked = true
		   OR used_count >= max_uses
		   OR (expires_at IS NOT NULL AND expires_at <= now())`

	ct, err := g.pool.Exec(ctx, q)
	if err != nil {
		return 0, gatewayerr.Wrap(gatewayerr.Internal, "clean_spent_invite_codes failed", err)
	}
	return ct.RowsAffected(), nil
}
