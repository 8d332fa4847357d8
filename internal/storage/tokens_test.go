package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlock/idgateway/internal/storage"
)

func TestAccessToken_SaveAndFind(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)
	clientID := seedClient(t, pool)
	token := "tok-" + uuid.NewString()
	expires := time.Now().Add(time.Hour)

	id, err := gw.SaveAccessToken(ctx, token, &clientID, user.ID, []string{"read", "write"}, expires)
	require.NoError(t, err)
	assert.Positive(t, id)

	found, err := gw.FindToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.UserID)
	require.NotNil(t, found.ClientID)
	assert.Equal(t, clientID, *found.ClientID)
	assert.Equal(t, []string{"read", "write"}, found.Scopes)
	assert.WithinDuration(t, expires, found.ExpiresAt, time.Second)
}

func TestRefreshToken_BackReferencesAccessToken(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)
	access := "tok-" + uuid.NewString()
	accessID, err := gw.SaveAccessToken(ctx, access, nil, user.ID, []string{"read"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	refresh := "ref-" + uuid.NewString()
	require.NoError(t, gw.SaveRefreshToken(ctx, refresh, accessID, time.Now().Add(24*time.Hour)))

	// Referential integrity: a dangling access_token_id is rejected.
	err = gw.SaveRefreshToken(ctx, "ref-"+uuid.NewString(), -1, time.Now().Add(time.Hour))
	require.Error(t, err)
}

func TestListClientsForSubject_OnlyLiveClientBoundTokens(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)
	liveClient := seedClient(t, pool)
	expiredClient := seedClient(t, pool)

	_, err := gw.SaveAccessToken(ctx, "tok-"+uuid.NewString(), &liveClient, user.ID, []string{"read"}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = gw.SaveAccessToken(ctx, "tok-"+uuid.NewString(), &expiredClient, user.ID, []string{"read"}, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	// Local-login token: no client, must never show up as an authorization.
	_, err = gw.SaveAccessToken(ctx, "tok-"+uuid.NewString(), nil, user.ID, []string{"read", "write"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	clients, err := gw.ListClientsForSubject(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{liveClient}, clients)
}

func TestTokensForSubjectAndClient_ReturnsOnlyThatPairsLiveTokens(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	user := seedUser(t, gw)
	other := seedUser(t, gw)
	clientID := seedClient(t, pool)

	mine := "tok-" + uuid.NewString()
	_, err := gw.SaveAccessToken(ctx, mine, &clientID, user.ID, []string{"read"}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = gw.SaveAccessToken(ctx, "tok-"+uuid.NewString(), &clientID, other.ID, []string{"read"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	tokens, err := gw.TokensForSubjectAndClient(ctx, user.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, []string{mine}, tokens)
}
