package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brightlock/idgateway/internal/api"
	"github.com/brightlock/idgateway/internal/audit"
	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/cache"
	"github.com/brightlock/idgateway/internal/gatewayerr"
	"github.com/brightlock/idgateway/internal/storage"
)

// fakeSessionStore is an in-memory SessionStore good enough to exercise
// Register/Login end to end without a database.
type fakeSessionStore struct {
	byUsername map[string]*storage.User
	nextID     int64

	// inviteFailure, when non-empty, makes CreateUserWithInvite lose the
	// consume race the way the transactional gateway method does: no user
	// row survives.
	inviteFailure storage.InviteConsumeFailure
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{byUsername: map[string]*storage.User{}}
}

func (f *fakeSessionStore) CreateUser(_ context.Context, username, email, passwordHash string) (*storage.User, error) {
	if _, exists := f.byUsername[username]; exists {
		return nil, gatewayerr.New(gatewayerr.Conflict, "username taken")
	}
	f.nextID++
	u := &storage.User{ID: f.nextID, Username: username, Email: email, PasswordHash: passwordHash, Role: "user"}
	f.byUsername[username] = u
	return u, nil
}

func (f *fakeSessionStore) CreateUserWithInvite(ctx context.Context, username, email, passwordHash, _ string) (*storage.User, storage.InviteConsumeFailure, error) {
	if f.inviteFailure != "" {
		return nil, f.inviteFailure, nil
	}
	u, err := f.CreateUser(ctx, username, email, passwordHash)
	return u, "", err
}

func (f *fakeSessionStore) FindUserByUsername(_ context.Context, username string) (*storage.User, error) {
	return f.byUsername[username], nil
}

func (f *fakeSessionStore) SaveAccessToken(context.Context, string, *string, int64, []string, time.Time) (int64, error) {
	return 1, nil
}

func (f *fakeSessionStore) SaveRefreshToken(context.Context, string, int64, time.Time) error {
	return nil
}

type fakeConfigStoreAPI struct{}

func (fakeConfigStoreAPI) GetRegistrationConfig(context.Context) (map[string]storage.Setting, error) {
	return map[string]storage.Setting{}, nil
}
func (fakeConfigStoreAPI) UpdateRegistrationConfig(context.Context, []storage.RegistrationConfigUpdate, int64) error {
	return nil
}

type fakeInviteStoreAPI struct{}

func (fakeInviteStoreAPI) CreateInviteCode(context.Context, string, int64, int32, *time.Time) error {
	return nil
}
func (fakeInviteStoreAPI) FindInviteCode(context.Context, string) (*storage.InviteCode, error) {
	return nil, nil
}
func (fakeInviteStoreAPI) ListInviteCodes(context.Context) ([]storage.InviteCode, error) {
	return nil, nil
}
func (fakeInviteStoreAPI) RevokeInviteCode(context.Context, string) error { return nil }

func newTestAuthHandler(t *testing.T) (*api.AuthHandler, *fakeSessionStore) {
	t.Helper()
	store := newFakeSessionStore()
	policy := auth.NewPolicyEngine(fakeConfigStoreAPI{})
	invites := auth.NewInvites(fakeInviteStoreAPI{})
	hasher := auth.NewArgon2Hasher()
	tokens := auth.NewJWTProvider("test-secret", "idgateway-test")
	c, err := cache.New(true, 100, time.Minute, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	session := auth.NewSession(store, policy, invites, hasher, tokens, c, audit.NoopLogger{}, time.Hour, 24*time.Hour)
	return api.NewAuthHandler(session, invites), store
}

func TestAuthHandler_Register_Success(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	body := `{"username":"alice","email":"alice@example.com","password":"SecurePass1!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	h.Register(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, float64(1), resp["user_id"])
	require.Equal(t, "alice", resp["username"])
	require.Equal(t, "alice@example.com", resp["email"])
}

func TestAuthHandler_Register_MalformedBody(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(`{not json`))
	rr := httptest.NewRecorder()

	h.Register(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthHandler_Register_DuplicateUsername(t *testing.T) {
	h, store := newTestAuthHandler(t)
	_, _ = store.CreateUser(context.Background(), "alice", "alice@example.com", "hash")

	body := `{"username":"alice","email":"other@example.com","password":"SecurePass1!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	h.Register(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	registerBody := `{"username":"bob","email":"bob@example.com","password":"SecurePass1!"}`
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(registerBody)))
	require.Equal(t, http.StatusCreated, rr.Code)

	loginBody := `{"username":"bob","password":"SecurePass1!"}`
	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(loginBody)))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.Equal(t, "Bearer", resp["token_type"])
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	registerBody := `{"username":"carol","email":"carol@example.com","password":"SecurePass1!"}`
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(registerBody)))
	require.Equal(t, http.StatusCreated, rr.Code)

	loginBody := `{"username":"carol","password":"wrong"}`
	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(loginBody)))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthHandler_Login_UnknownUser(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	loginBody := `{"username":"ghost","password":"whatever"}`
	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(loginBody)))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

// inviteRequiredConfigStore flips require_invite_code on; everything else
// stays at defaults.
type inviteRequiredConfigStore struct{ fakeConfigStoreAPI }

func (inviteRequiredConfigStore) GetRegistrationConfig(context.Context) (map[string]storage.Setting, error) {
	v := true
	return map[string]storage.Setting{
		"require_invite_code": {Key: "require_invite_code", ValueType: storage.ValueBool, ValueBool: &v},
	}, nil
}

// liveInviteStore serves one live single-use code for the non-consuming
// verify step.
type liveInviteStore struct{ fakeInviteStoreAPI }

func (liveInviteStore) FindInviteCode(_ context.Context, code string) (*storage.InviteCode, error) {
	if code != "INV-LIVECODE2345" {
		return nil, nil
	}
	return &storage.InviteCode{Code: code, CreatedBy: 1, MaxUses: 1, UsedCount: 0}, nil
}

func TestAuthHandler_Register_InviteRaceLeavesNoUser(t *testing.T) {
	store := newFakeSessionStore()
	store.inviteFailure = storage.InviteUsedUp

	policy := auth.NewPolicyEngine(inviteRequiredConfigStore{})
	invites := auth.NewInvites(liveInviteStore{})
	hasher := auth.NewArgon2Hasher()
	tokens := auth.NewJWTProvider("test-secret", "idgateway-test")
	c, err := cache.New(true, 100, time.Minute, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	session := auth.NewSession(store, policy, invites, hasher, tokens, c, audit.NoopLogger{}, time.Hour, 24*time.Hour)
	h := api.NewAuthHandler(session, invites)

	body := `{"username":"frank","email":"frank@example.com","password":"SecurePass1!","invite":"INV-LIVECODE2345"}`
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp["message"], "used_up")
	require.Empty(t, store.byUsername, "the rolled-back registration must leave no user row")
}

func TestAuthHandler_VerifyInvite_Unknown(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	body := `{"code":"NOPE"}`
	rr := httptest.NewRecorder()
	h.VerifyInvite(rr, httptest.NewRequest(http.MethodPost, "/api/auth/verify-invite", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, false, resp["valid"])
}
