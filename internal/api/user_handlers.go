package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightlock/idgateway/internal/api/helpers"
	customMiddleware "github.com/brightlock/idgateway/internal/api/middleware"
	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/gatewayerr"
	"github.com/brightlock/idgateway/internal/storage"
)

// UserStore is the subset of the Persistence Gateway the user-facing
// handlers depend on.
type UserStore interface {
	FindUserByID(ctx context.Context, id int64) (*storage.User, error)
}

// UserHandler serves the authenticated, non-admin user-facing endpoints:
// current-user lookup and client-authorization management.
type UserHandler struct {
	store UserStore
	oauth *auth.OAuthService
}

func NewUserHandler(store UserStore, oauth *auth.OAuthService) *UserHandler {
	return &UserHandler{store: store, oauth: oauth}
}

// Me handles GET /api/user/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := customMiddleware.GetUserID(r.Context())
	if err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.Unauthorized, "authentication required"))
		return
	}

	user, err := h.store.FindUserByID(r.Context(), userID)
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}
	if user == nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.Unauthorized, "unknown subject"))
		return
	}

	helpers.RespondJSON(w, http.StatusOK, map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
}

// ListAuthorizations handles GET /api/user/authorizations.
func (h *UserHandler) ListAuthorizations(w http.ResponseWriter, r *http.Request) {
	userID, err := customMiddleware.GetUserID(r.Context())
	if err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.Unauthorized, "authentication required"))
		return
	}

	clientIDs, err := h.oauth.ListAuthorizations(r.Context(), userID)
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]any{"client_ids": clientIDs})
}

// RevokeAuthorization handles DELETE /api/user/authorizations/{client_id}.
func (h *UserHandler) RevokeAuthorization(w http.ResponseWriter, r *http.Request) {
	userID, err := customMiddleware.GetUserID(r.Context())
	if err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.Unauthorized, "authentication required"))
		return
	}

	clientID := chi.URLParam(r, "client_id")
	if err := h.oauth.RevokeAuthorization(r.Context(), userID, clientID); err != nil {
		helpers.RespondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
