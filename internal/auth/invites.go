package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/brightlock/idgateway/internal/gatewayerr"
	"github.com/brightlock/idgateway/internal/storage"
)

// inviteAlphabet excludes visually confusable characters (I, O, 0, 1).
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const invitePrefix = "INV-"
const inviteCodeLen = 12
const maxGenerateAttempts = 3

// InviteStore is the subset of the Persistence Gateway the invite
// subsystem depends on. Consumption is not here: it happens inside the
// registration transaction (CreateUserWithInvite) so a lost race rolls the
// user row back with it.
type InviteStore interface {
	CreateInviteCode(ctx context.Context, code string, createdBy int64, maxUses int32, expiresAt *time.Time) error
	FindInviteCode(ctx context.Context, code string) (*storage.InviteCode, error)
	ListInviteCodes(ctx context.Context) ([]storage.InviteCode, error)
	RevokeInviteCode(ctx context.Context, code string) error
}

// Invites issues, lists, verifies and revokes invite codes.
type Invites struct {
	store InviteStore
}

func NewInvites(store InviteStore) *Invites {
	return &Invites{store: store}
}

// generateCode draws inviteCodeLen codepoints uniformly from the
// confusable-free alphabet using a cryptographically strong source.
func generateCode() (string, error) {
	buf := make([]byte, inviteCodeLen)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = inviteAlphabet[n.Int64()]
	}
	return invitePrefix + string(buf), nil
}

// Create mints a new invite code, retrying a bounded number of times on the
// astronomically improbable collision surfaced by the store's unique
// constraint.
func (iv *Invites) Create(ctx context.Context, createdBy int64, maxUses int32, expiresAt *time.Time) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return "", gatewayerr.Wrap(gatewayerr.Internal, "failed to generate invite code", err)
		}
		if err := iv.store.CreateInviteCode(ctx, code, createdBy, maxUses, expiresAt); err != nil {
			if ge, ok := gatewayerr.As(err); ok && ge.Kind == gatewayerr.Conflict {
				lastErr = err
				continue
			}
			return "", err
		}
		return code, nil
	}
	return "", lastErr
}

// List returns every invite code, unsorted and pagination-free.
func (iv *Invites) List(ctx context.Context) ([]storage.InviteCode, error) {
	return iv.store.ListInviteCodes(ctx)
}

// Revoke marks a code such that subsequent verification and consumption
// both fail as not found.
func (iv *Invites) Revoke(ctx context.Context, code string) error {
	return iv.store.RevokeInviteCode(ctx, code)
}

// VerifyResult is the non-consuming verification outcome.
type VerifyResult struct {
	Valid         bool
	RemainingUses int32
	Reason        string
}

// Verify performs the non-consuming check: a live code returns its
// remaining uses; absent, expired or used-up codes report the matching
// reason string.
func (iv *Invites) Verify(ctx context.Context, code string) (VerifyResult, error) {
	inv, err := iv.store.FindInviteCode(ctx, code)
	if err != nil {
		return VerifyResult{}, err
	}
	if inv == nil || inv.Revoked {
		return VerifyResult{Valid: false, Reason: "not_found"}, nil
	}
	if inv.ExpiresAt != nil && !inv.ExpiresAt.After(time.Now()) {
		return VerifyResult{Valid: false, Reason: "expired"}, nil
	}
	if inv.UsedCount >= inv.MaxUses {
		return VerifyResult{Valid: false, Reason: "used_up"}, nil
	}
	return VerifyResult{Valid: true, RemainingUses: inv.MaxUses - inv.UsedCount}, nil
}
