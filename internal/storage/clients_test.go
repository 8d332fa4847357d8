package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlock/idgateway/internal/storage"
)

func TestFindClientByID(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	gw := storage.New(pool)

	clientID := seedClient(t, pool)

	client, err := gw.FindClientByID(ctx, clientID)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, clientID, client.ClientID)
	assert.NotEmpty(t, client.RedirectURIs)
	assert.NotEmpty(t, client.AllowedScopes)

	unknown, err := gw.FindClientByID(ctx, "client-does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestVerifyRedirectURI_ExactMatchOnly(t *testing.T) {
	client := &storage.Client{RedirectURIs: []string{"https://app.example.com/callback"}}

	assert.True(t, storage.VerifyRedirectURI(client, "https://app.example.com/callback"))
	assert.False(t, storage.VerifyRedirectURI(client, "https://app.example.com/callback/extra"))
	assert.False(t, storage.VerifyRedirectURI(client, "https://app.example.com/"))
	assert.False(t, storage.VerifyRedirectURI(client, ""))
}

func TestScopesSubset(t *testing.T) {
	allowed := []string{"openid", "read", "write"}

	assert.True(t, storage.ScopesSubset(nil, allowed))
	assert.True(t, storage.ScopesSubset([]string{"read"}, allowed))
	assert.True(t, storage.ScopesSubset([]string{"openid", "write"}, allowed))
	assert.False(t, storage.ScopesSubset([]string{"admin"}, allowed))
	assert.False(t, storage.ScopesSubset([]string{"read", "admin"}, allowed))
}
