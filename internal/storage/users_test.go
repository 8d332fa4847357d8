package storage_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlock/idgateway/internal/gatewayerr"
	"github.com/brightlock/idgateway/internal/storage"
)

func TestCreateUser_AssignsIDAndDefaultRole(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)
	assert.Positive(t, user.ID)
	assert.Equal(t, "user", user.Role)

	byID, err := gw.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, user.Username, byID.Username)

	byName, err := gw.FindUserByUsername(ctx, user.Username)
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := gw.FindUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestCreateUser_DuplicateUsernameIsConflict(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)
	_, err := gw.CreateUser(ctx, user.Username, "other-"+user.Email, "h")
	require.Error(t, err)
	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gatewayerr.Conflict, ge.Kind)
}

func TestCreateUserWithInvite_ConsumesInsideOneTransaction(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	admin := seedUser(t, gw)
	code := newInviteCode()
	require.NoError(t, gw.CreateInviteCode(ctx, code, admin.ID, 1, nil))

	suffix := uuid.NewString()[:8]
	user, reason, err := gw.CreateUserWithInvite(ctx, "inv-"+suffix, "inv-"+suffix+"@example.com", "h", code)
	require.NoError(t, err)
	require.Empty(t, reason)
	require.NotNil(t, user)

	inv, err := gw.FindInviteCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, int32(1), inv.UsedCount)
	require.NotNil(t, inv.UsedBy)
	assert.Equal(t, user.ID, *inv.UsedBy)
}

func TestCreateUserWithInvite_UsedUpRollsBackTheUserRow(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	admin := seedUser(t, gw)
	code := newInviteCode()
	require.NoError(t, gw.CreateInviteCode(ctx, code, admin.ID, 1, nil))

	reason, err := gw.VerifyAndUseInviteCode(ctx, code, admin.ID)
	require.NoError(t, err)
	require.Empty(t, reason, "fixture consume should exhaust the code")

	suffix := uuid.NewString()[:8]
	username := "loser-" + suffix
	user, reason, err := gw.CreateUserWithInvite(ctx, username, username+"@example.com", "h", code)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, storage.InviteUsedUp, reason)

	ghost, err := gw.FindUserByUsername(ctx, username)
	require.NoError(t, err)
	assert.Nil(t, ghost, "a lost invite race must leave no user row behind")

	inv, err := gw.FindInviteCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, int32(1), inv.UsedCount, "used_count must not move past max_uses")
}

func TestCurrentRole_ReadsFreshValue(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)

	role, err := gw.CurrentRole(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "user", role)

	_, err = pool.Exec(ctx, "UPDATE users SET role = 'admin' WHERE id = $1", user.ID)
	require.NoError(t, err)

	role, err = gw.CurrentRole(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", role, "a role change is visible on the very next read")
}

func TestCurrentRole_UnknownSubjectIsUnauthorized(t *testing.T) {
	pool := setupTestPool(t)
	gw := storage.New(pool)

	_, err := gw.CurrentRole(context.Background(), -1)
	require.Error(t, err)
	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gatewayerr.Unauthorized, ge.Kind)
}
