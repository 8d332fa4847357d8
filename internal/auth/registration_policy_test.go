package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/gatewayerr"
	"github.com/brightlock/idgateway/internal/storage"
)

type fakeConfigStore struct {
	rows map[string]storage.Setting
}

func (f *fakeConfigStore) GetRegistrationConfig(context.Context) (map[string]storage.Setting, error) {
	return f.rows, nil
}
func (f *fakeConfigStore) UpdateRegistrationConfig(context.Context, []storage.RegistrationConfigUpdate, int64) error {
	return nil
}

func TestPolicyEngine_Validate_DefaultsAccept(t *testing.T) {
	engine := auth.NewPolicyEngine(&fakeConfigStore{rows: map[string]storage.Setting{}})
	cfg, err := engine.GetConfig(context.Background())
	require.NoError(t, err)

	err = engine.Validate(cfg, auth.RegistrationCandidate{
		Username: "alice",
		Email:    "a@example.com",
		Password: "SecurePass1!",
	})
	assert.NoError(t, err)
}

func TestPolicyEngine_Validate_UsernameBoundary(t *testing.T) {
	engine := auth.NewPolicyEngine(&fakeConfigStore{})
	cfg := auth.DefaultRegistrationConfig()
	cfg.MinUsernameLength = 3
	cfg.MaxUsernameLength = 5

	require.NoError(t, engine.Validate(cfg, auth.RegistrationCandidate{Username: "abc", Email: "a@example.com", Password: "password123"}))
	require.NoError(t, engine.Validate(cfg, auth.RegistrationCandidate{Username: "abcde", Email: "a@example.com", Password: "password123"}))

	err := engine.Validate(cfg, auth.RegistrationCandidate{Username: "ab", Email: "a@example.com", Password: "password123"})
	require.Error(t, err)
	err = engine.Validate(cfg, auth.RegistrationCandidate{Username: "abcdef", Email: "a@example.com", Password: "password123"})
	require.Error(t, err)
}

func TestPolicyEngine_Validate_PasswordClassesFailFast(t *testing.T) {
	engine := auth.NewPolicyEngine(&fakeConfigStore{})
	cfg := auth.DefaultRegistrationConfig()
	cfg.MinPasswordLength = 12
	cfg.RequireUppercase = true
	cfg.RequireNumbers = true

	err := engine.Validate(cfg, auth.RegistrationCandidate{Username: "alice", Email: "a@example.com", Password: "password"})
	require.Error(t, err)
	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gatewayerr.BadRequest, ge.Kind)
	assert.Contains(t, ge.Message, "12 characters")
}

func TestPolicyEngine_Validate_EmailDomainAllowlist(t *testing.T) {
	engine := auth.NewPolicyEngine(&fakeConfigStore{})
	cfg := auth.DefaultRegistrationConfig()
	cfg.AllowedEmailDomains = []string{"example.com"}

	require.NoError(t, engine.Validate(cfg, auth.RegistrationCandidate{Username: "alice", Email: "a@example.com", Password: "password123"}))

	err := engine.Validate(cfg, auth.RegistrationCandidate{Username: "alice", Email: "a@other.com", Password: "password123"})
	require.Error(t, err)
}

func TestParseAllowedEmailDomains_TrimsAndDropsEmpty(t *testing.T) {
	got := auth.ParseAllowedEmailDomains(" example.com ,, other.org ,")
	assert.Equal(t, []string{"example.com", "other.org"}, got)

	assert.Nil(t, auth.ParseAllowedEmailDomains(""))
}

func TestPolicyEngine_Validate_RequiresInviteWhenConfigured(t *testing.T) {
	engine := auth.NewPolicyEngine(&fakeConfigStore{})
	cfg := auth.DefaultRegistrationConfig()
	cfg.RequireInviteCode = true

	err := engine.Validate(cfg, auth.RegistrationCandidate{Username: "alice", Email: "a@example.com", Password: "password123"})
	require.Error(t, err)

	err = engine.Validate(cfg, auth.RegistrationCandidate{Username: "alice", Email: "a@example.com", Password: "password123", Invite: "INV-XXXXXXXXXXXX"})
	require.NoError(t, err)
}
