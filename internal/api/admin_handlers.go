package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brightlock/idgateway/internal/api/helpers"
	customMiddleware "github.com/brightlock/idgateway/internal/api/middleware"
	"github.com/brightlock/idgateway/internal/audit"
	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// AdminHandler serves the admin-only surface: registration policy, the
// config-change audit trail, and invite-code management. Every route is
// mounted behind RequireAdmin.
type AdminHandler struct {
	policy  *auth.PolicyEngine
	invites *auth.Invites
	audit   *audit.Service
}

func NewAdminHandler(policy *auth.PolicyEngine, invites *auth.Invites, auditSvc *audit.Service) *AdminHandler {
	return &AdminHandler{policy: policy, invites: invites, audit: auditSvc}
}

// GetRegistrationConfig handles GET /api/admin/settings/registration.
func (h *AdminHandler) GetRegistrationConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.policy.GetConfig(r.Context())
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, registrationConfigToWire(cfg))
}

type registrationConfigRequest struct {
	AllowRegistration   bool     `json:"allow_registration"`
	AllowedEmailDomains []string `json:"allowed_email_domains"`
	MinUsernameLength   int      `json:"min_username_length"`
	MaxUsernameLength   int      `json:"max_username_length"`
	MinPasswordLength   int      `json:"min_password_length"`
	RequireUppercase    bool     `json:"require_uppercase"`
	RequireLowercase    bool     `json:"require_lowercase"`
	RequireNumbers      bool     `json:"require_numbers"`
	RequireSpecial      bool     `json:"require_special"`
	RequireInviteCode   bool     `json:"require_invite_code"`
}

// UpdateRegistrationConfig handles PUT /api/admin/settings/registration.
func (h *AdminHandler) UpdateRegistrationConfig(w http.ResponseWriter, r *http.Request) {
	actorID, err := customMiddleware.GetUserID(r.Context())
	if err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.Unauthorized, "authentication required"))
		return
	}

	var req registrationConfigRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.BadRequest, "invalid request body"))
		return
	}

	cfg := auth.RegistrationConfig{
		AllowRegistration:   req.AllowRegistration,
		AllowedEmailDomains: req.AllowedEmailDomains,
		MinUsernameLength:   req.MinUsernameLength,
		MaxUsernameLength:   req.MaxUsernameLength,
		MinPasswordLength:   req.MinPasswordLength,
		RequireUppercase:    req.RequireUppercase,
		RequireLowercase:    req.RequireLowercase,
		RequireNumbers:      req.RequireNumbers,
		RequireSpecial:      req.RequireSpecial,
		RequireInviteCode:   req.RequireInviteCode,
	}

	if err := h.policy.UpdateConfig(r.Context(), cfg, actorID); err != nil {
		helpers.RespondErr(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, registrationConfigToWire(cfg))
}

func registrationConfigToWire(cfg auth.RegistrationConfig) map[string]any {
	return map[string]any{
		"allow_registration":    cfg.AllowRegistration,
		"allowed_email_domains": cfg.AllowedEmailDomains,
		"min_username_length":   cfg.MinUsernameLength,
		"max_username_length":   cfg.MaxUsernameLength,
		"min_password_length":   cfg.MinPasswordLength,
		"require_uppercase":     cfg.RequireUppercase,
		"require_lowercase":     cfg.RequireLowercase,
		"require_numbers":       cfg.RequireNumbers,
		"require_special":       cfg.RequireSpecial,
		"require_invite_code":   cfg.RequireInviteCode,
	}
}

// AuditLogs handles GET /api/admin/settings/audit-logs, with query params
// `limit` and `config_key`.
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	configKey := r.URL.Query().Get("config_key")

	records, err := h.audit.List(r.Context(), limit, configKey)
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, records)
}

type createInviteRequest struct {
	MaxUses        int32 `json:"max_uses"`
	ExpiresInHours int   `json:"expires_in_hours,omitempty"`
}

// CreateInvite handles POST /api/admin/invites. An absent or zero
// expires_in_hours creates a code that never expires.
func (h *AdminHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	actorID, err := customMiddleware.GetUserID(r.Context())
	if err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.Unauthorized, "authentication required"))
		return
	}

	var req createInviteRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.BadRequest, "invalid request body"))
		return
	}
	if req.MaxUses <= 0 {
		req.MaxUses = 1
	}
	var expiresAt *time.Time
	if req.ExpiresInHours > 0 {
		t := time.Now().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		expiresAt = &t
	}

	code, err := h.invites.Create(r.Context(), actorID, req.MaxUses, expiresAt)
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusCreated, map[string]any{"code": code, "max_uses": req.MaxUses, "expires_at": expiresAt})
}

// ListInvites handles GET /api/admin/invites.
func (h *AdminHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.invites.List(r.Context())
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, invites)
}

// RevokeInvite handles DELETE /api/admin/invites/{code}.
func (h *AdminHandler) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.invites.Revoke(r.Context(), code); err != nil {
		helpers.RespondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
