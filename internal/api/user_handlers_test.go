package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/brightlock/idgateway/internal/api"
	customMiddleware "github.com/brightlock/idgateway/internal/api/middleware"
	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/cache"
	"github.com/brightlock/idgateway/internal/storage"
)

func newTestUserHandler(t *testing.T) (*api.UserHandler, *fakeOAuthStore) {
	t.Helper()
	store := newFakeOAuthStore()
	store.users[99] = &storage.User{ID: 99, Username: "erin", Email: "erin@example.com", Role: "user"}

	c, err := cache.New(true, 100, time.Minute, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	tokens := auth.NewJWTProvider("test-secret", "idgateway-test")
	oauthService := auth.NewOAuthService(store, c, tokens, auth.DefaultOAuthConfig())
	return api.NewUserHandler(store, oauthService), store
}

func TestUserHandler_Me_Success(t *testing.T) {
	h, _ := newTestUserHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), customMiddleware.UserIDKey, int64(99)))
	rr := httptest.NewRecorder()

	h.Me(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "erin", resp["username"])
}

func TestUserHandler_Me_RequiresAuth(t *testing.T) {
	h, _ := newTestUserHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	rr := httptest.NewRecorder()
	h.Me(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUserHandler_Me_UnknownSubject(t *testing.T) {
	h, _ := newTestUserHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), customMiddleware.UserIDKey, int64(404)))
	rr := httptest.NewRecorder()

	h.Me(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUserHandler_ListAuthorizations(t *testing.T) {
	h, _ := newTestUserHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/user/authorizations", nil)
	req = req.WithContext(context.WithValue(req.Context(), customMiddleware.UserIDKey, int64(99)))
	rr := httptest.NewRecorder()

	h.ListAuthorizations(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestUserHandler_RevokeAuthorization_UsesURLParam(t *testing.T) {
	h, _ := newTestUserHandler(t)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("client_id", "client-1")
	req := httptest.NewRequest(http.MethodDelete, "/api/user/authorizations/client-1", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = req.WithContext(context.WithValue(req.Context(), customMiddleware.UserIDKey, int64(99)))
	rr := httptest.NewRecorder()

	h.RevokeAuthorization(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
}
