package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlock/idgateway/internal/storage"
)

func registrationUpdates(minPasswordLength int64, allowRegistration bool) []storage.RegistrationConfigUpdate {
	boolUpdate := func(key string, v bool) storage.RegistrationConfigUpdate {
		return storage.RegistrationConfigUpdate{Key: key, ValueType: storage.ValueBool, Bool: &v}
	}
	intUpdate := func(key string, v int64) storage.RegistrationConfigUpdate {
		return storage.RegistrationConfigUpdate{Key: key, ValueType: storage.ValueInt, Int: &v}
	}
	domains := ""
	return []storage.RegistrationConfigUpdate{
		boolUpdate(storage.KeyAllowRegistration, allowRegistration),
		{Key: storage.KeyAllowedEmailDomains, ValueType: storage.ValueString, String: &domains},
		intUpdate(storage.KeyMinUsernameLength, 3),
		intUpdate(storage.KeyMaxUsernameLength, 32),
		intUpdate(storage.KeyMinPasswordLength, minPasswordLength),
		boolUpdate(storage.KeyRequireUppercase, false),
		boolUpdate(storage.KeyRequireLowercase, false),
		boolUpdate(storage.KeyRequireNumbers, false),
		boolUpdate(storage.KeyRequireSpecial, false),
		boolUpdate(storage.KeyRequireInviteCode, false),
	}
}

func TestSetGetSetting_RoundTrip(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)

	require.NoError(t, gw.SetSetting(ctx, "test_scratch_key", storage.ValueInt, int64(42), user.ID))

	s, err := gw.GetSetting(ctx, "test_scratch_key")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, storage.ValueInt, s.ValueType)
	require.NotNil(t, s.ValueInt)
	assert.Equal(t, int64(42), *s.ValueInt)
	require.NotNil(t, s.UpdatedBy)
	assert.Equal(t, user.ID, *s.UpdatedBy)

	missing, err := gw.GetSetting(ctx, "test_never_written_key")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateRegistrationConfig_WritesAllTenKeys(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)

	require.NoError(t, gw.UpdateRegistrationConfig(ctx, registrationUpdates(10, true), user.ID))

	rows, err := gw.GetRegistrationConfig(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 10)

	minPwd := rows[storage.KeyMinPasswordLength]
	require.NotNil(t, minPwd.ValueInt)
	assert.Equal(t, int64(10), *minPwd.ValueInt)
	allow := rows[storage.KeyAllowRegistration]
	require.NotNil(t, allow.ValueBool)
	assert.True(t, *allow.ValueBool)
}

func TestUpdateRegistrationConfig_AuditsOnlyChangedKeys(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)

	require.NoError(t, gw.UpdateRegistrationConfig(ctx, registrationUpdates(8, true), user.ID))

	countAuditRows := func() int {
		var n int
		err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM config_audit_log WHERE actor_id = $1", user.ID).Scan(&n)
		require.NoError(t, err)
		return n
	}
	afterFirst := countAuditRows()

	// An identical write changes nothing, so no new audit rows may appear.
	require.NoError(t, gw.UpdateRegistrationConfig(ctx, registrationUpdates(8, true), user.ID))
	assert.Equal(t, afterFirst, countAuditRows())

	// Changing one key adds exactly one record carrying old and new values.
	require.NoError(t, gw.UpdateRegistrationConfig(ctx, registrationUpdates(12, true), user.ID))
	assert.Equal(t, afterFirst+1, countAuditRows())

	records, err := gw.ListConfigAuditLogs(ctx, 1, storage.KeyMinPasswordLength)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "8", records[0].OldValue)
	assert.Equal(t, "12", records[0].NewValue)
	assert.Equal(t, user.ID, records[0].ActorID)
}

func TestListConfigAuditLogs_HonorsLimitAndKeyFilter(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)
	require.NoError(t, gw.UpdateRegistrationConfig(ctx, registrationUpdates(9, true), user.ID))
	require.NoError(t, gw.UpdateRegistrationConfig(ctx, registrationUpdates(11, true), user.ID))

	records, err := gw.ListConfigAuditLogs(ctx, 1, storage.KeyMinPasswordLength)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	for _, r := range records {
		assert.Equal(t, storage.KeyMinPasswordLength, r.Key)
	}
}
