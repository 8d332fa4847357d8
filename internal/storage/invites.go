package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// querier is the subset of pgxpool.Pool and pgx.Tx the conditional invite
// consume runs against, so the same statement serves both the standalone
// path and the register-with-invite transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateInviteCode persists a freshly generated invite code.
func (g *Gateway) CreateInviteCode(ctx context.Context, code string, createdBy int64, maxUses int32, expiresAt *time.Time) error {
	const q = `
		INSERT INTO invite_codes (code, created_by, max_uses, used_count, expires_at, revoked)
		VALUES ($1, $2, $3, 0, $4, false)`

	_, err := g.pool.Exec(ctx, q, code, createdBy, maxUses, expiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return gatewayerr.New(gatewayerr.Conflict, "invite code collision")
		}
		return gatewayerr.Wrap(gatewayerr.Internal, "create_invite_code failed", err)
	}
	return nil
}

// FindInviteCode looks up an invite by its literal code. Returns nil, nil
// if not found.
func (g *Gateway) FindInviteCode(ctx context.Context, code string) (*InviteCode, error) {
	const q = `
		SELECT code, created_by, used_by, max_uses, used_count, expires_at, revoked, created_at
		FROM invite_codes WHERE code = $1`

	var inv InviteCode
	err := g.pool.QueryRow(ctx, q, code).Scan(
		&inv.Code, &inv.CreatedBy, &inv.UsedBy, &inv.MaxUses, &inv.UsedCount, &inv.ExpiresAt, &inv.Revoked, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "find_invite_code failed", err)
	}
	return &inv, nil
}

// ListInviteCodes lists every invite code. The listing is administrative
// and small; no ordering or pagination is applied.
func (g *Gateway) ListInviteCodes(ctx context.Context) ([]InviteCode, error) {
	const q = `
		SELECT code, created_by, used_by, max_uses, used_count, expires_at, revoked, created_at
		FROM invite_codes`

	rows, err := g.pool.Query(ctx, q)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "list_invite_codes failed", err)
	}
	defer rows.Close()

	var out []InviteCode
	for rows.Next() {
		var inv InviteCode
		if err := rows.Scan(&inv.Code, &inv.CreatedBy, &inv.UsedBy, &inv.MaxUses, &inv.UsedCount, &inv.ExpiresAt, &inv.Revoked, &inv.CreatedAt); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "list_invite_codes scan failed", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// RevokeInviteCode marks a code revoked such that subsequent verification
// and consumption both report it as not found.
func (g *Gateway) RevokeInviteCode(ctx context.Context, code string) error {
	ct, err := g.pool.Exec(ctx, `UPDATE invite_codes SET revoked = true WHERE code = $1`, code)
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.Internal, "revoke_invite_code failed", err)
	}
	if ct.RowsAffected() == 0 {
		return gatewayerr.New(gatewayerr.NotFound, "invite code not found")
	}
	return nil
}

// InviteConsumeFailure enumerates why VerifyAndUseInviteCode failed, used to
// pick the caller-facing message.
type InviteConsumeFailure string

const (
	InviteNotFound InviteConsumeFailure = "not_found"
	InviteExpired  InviteConsumeFailure = "expired"
	InviteUsedUp   InviteConsumeFailure = "used_up"
)

// VerifyAndUseInviteCode is the atomic compare-and-increment: it succeeds
// iff the code exists, is not revoked, is not expired, and
// used_count < max_uses. The conditional UPDATE's affected-row-count is the
// compare-and-set; two concurrent consumers of a single-use code observe
// exactly one success.
func (g *Gateway) VerifyAndUseInviteCode(ctx context.Context, code string, userID int64) (InviteConsumeFailure, error) {
	return consumeInvite(ctx, g.pool, code, userID)
}

func consumeInvite(ctx context.Context, db querier, code string, userID int64) (InviteConsumeFailure, error) {
	const q = `
		UPDATE invite_codes
		SET used_count = used_count + 1, used_by = $2
		WHERE code = $1 AND revoked = false AND used_count < max_uses
		  AND (expires_at IS NULL OR expires_at > now())`

	ct, err := db.Exec(ctx, q, code, userID)
	if err != nil {
		return "", gatewayerr.Wrap(gatewayerr.Internal, "verify_and_use_invite_code failed", err)
	}
	if ct.RowsAffected() == 1 {
		return "", nil
	}

	// The conditional update affected nothing; determine why for the
	// caller-facing reason, without resurrecting a usable state.
	var inv InviteCode
	err = db.QueryRow(ctx, `
		SELECT code, revoked, used_count, max_uses, expires_at
		FROM invite_codes WHERE code = $1`, code).
		Scan(&inv.Code, &inv.Revoked, &inv.UsedCount, &inv.MaxUses, &inv.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InviteNotFound, nil
		}
		return "", gatewayerr.Wrap(gatewayerr.Internal, "verify_and_use_invite_code lookup failed", err)
	}
	if inv.Revoked {
		return InviteNotFound, nil
	}
	if inv.ExpiresAt != nil && !inv.ExpiresAt.After(time.Now()) {
		return InviteExpired, nil
	}
	return InviteUsedUp, nil
}
