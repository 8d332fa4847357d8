package api

import (
	"net/http"

	"github.com/brightlock/idgateway/internal/api/helpers"
	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// AuthHandler serves the public registration, login and invite-check
// endpoints.
type AuthHandler struct {
	session *auth.Session
	invites *auth.Invites
}

func NewAuthHandler(session *auth.Session, invites *auth.Invites) *AuthHandler {
	return &AuthHandler{session: session, invites: invites}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Invite   string `json:"invite,omitempty"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.BadRequest, "invalid request body"))
		return
	}

	result, err := h.session.Register(r.Context(), auth.RegistrationCandidate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Invite:   req.Invite,
	})
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}

	helpers.RespondJSON(w, http.StatusCreated, map[string]any{
		"user_id":  result.UserID,
		"username": result.Username,
		"email":    result.Email,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.BadRequest, "invalid request body"))
		return
	}

	result, err := h.session.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}

	helpers.RespondJSON(w, http.StatusOK, map[string]any{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"token_type":    result.TokenType,
		"expires_in":    result.ExpiresIn,
	})
}

type verifyInviteRequest struct {
	Code string `json:"code"`
}

// VerifyInvite handles POST /api/auth/verify-invite, the non-consuming
// invite check.
func (h *AuthHandler) VerifyInvite(w http.ResponseWriter, r *http.Request) {
	var req verifyInviteRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.BadRequest, "invalid request body"))
		return
	}

	result, err := h.invites.Verify(r.Context(), req.Code)
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}

	if !result.Valid {
		helpers.RespondJSON(w, http.StatusOK, map[string]any{"valid": false, "reason": result.Reason})
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]any{"valid": true, "remaining_uses": result.RemainingUses})
}
