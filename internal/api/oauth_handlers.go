package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/brightlock/idgateway/internal/api/helpers"
	customMiddleware "github.com/brightlock/idgateway/internal/api/middleware"
	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// OAuthHandler serves the authorization-code flow plus the OIDC discovery
// surface.
type OAuthHandler struct {
	oauth  *auth.OAuthService
	tokens auth.TokenProvider
	issuer string
}

func NewOAuthHandler(oauth *auth.OAuthService, tokens auth.TokenProvider, issuer string) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, tokens: tokens, issuer: issuer}
}

// Authorize handles GET /oauth/authorize. The authenticated subject is
// resolved the same way as on every other protected endpoint, a bearer
// credential; there is no separate browser-cookie session concept anywhere
// in this gateway. RequireAuth runs ahead of this handler in the router.
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	subject, err := customMiddleware.GetUserID(r.Context())
	if err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.Unauthorized, "authentication required"))
		return
	}

	q := r.URL.Query()
	result, err := h.oauth.Authorize(r.Context(),
		q.Get("response_type"), q.Get("client_id"), q.Get("redirect_uri"), q.Get("scope"), q.Get("state"), subject)
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}

	redirectURI := q.Get("redirect_uri")
	u, parseErr := url.Parse(redirectURI)
	if parseErr != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.InvalidRedirectUri, "malformed redirect_uri"))
		return
	}
	qs := u.Query()
	qs.Set("code", result.Code)
	if result.State != "" {
		qs.Set("state", result.State)
	}
	u.RawQuery = qs.Encode()

	http.Redirect(w, r, u.String(), http.StatusFound)
}

// Token handles POST /oauth/token. Client credentials and grant parameters
// arrive as an application/x-www-form-urlencoded body per RFC 6749 §4.1.3.
func (h *OAuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.BadRequest, "malformed form body"))
		return
	}

	result, err := h.oauth.Token(r.Context(),
		r.PostForm.Get("grant_type"),
		r.PostForm.Get("code"),
		r.PostForm.Get("client_id"),
		r.PostForm.Get("client_secret"),
		r.PostForm.Get("redirect_uri"),
		r.PostForm.Get("scope"),
	)
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}

	body := map[string]any{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"token_type":    result.TokenType,
		"expires_in":    result.ExpiresIn,
	}
	if result.IDToken != "" {
		body["id_token"] = result.IDToken
	}
	helpers.RespondJSON(w, http.StatusOK, body)
}

// UserInfo handles GET /oauth/userinfo, resolving the subject via the claims
// RequireAuth already decoded.
func (h *OAuthHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	claims, err := customMiddleware.GetClaims(r.Context())
	if err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.Unauthorized, "authentication required"))
		return
	}

	result, err := h.oauth.UserInfo(r.Context(), claims)
	if err != nil {
		helpers.RespondErr(w, err)
		return
	}

	helpers.RespondJSON(w, http.StatusOK, map[string]any{
		"sub":            result.Subject,
		"name":           result.Name,
		"email":          result.Email,
		"email_verified": result.EmailVerified,
	})
}

// Revoke handles POST /oauth/revoke: the bearer token presented on this
// request is black-listed for the rest of its natural lifetime. Logout for
// bearer credentials.
func (h *OAuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims, err := customMiddleware.GetClaims(r.Context())
	if err != nil {
		helpers.RespondErr(w, gatewayerr.New(gatewayerr.Unauthorized, "authentication required"))
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	h.oauth.RevokeToken(r.Context(), token, claims)
	w.WriteHeader(http.StatusNoContent)
}

// DiscoveryDocument serves GET /.well-known/openid-configuration.
func (h *OAuthHandler) DiscoveryDocument(w http.ResponseWriter, r *http.Request) {
	helpers.RespondJSON(w, http.StatusOK, map[string]any{
		"issuer":                                h.issuer,
		"authorization_endpoint":                h.issuer + "/oauth/authorize",
		"token_endpoint":                        h.issuer + "/oauth/token",
		"userinfo_endpoint":                     h.issuer + "/oauth/userinfo",
		"jwks_uri":                              h.issuer + "/.well-known/jwks.json",
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"HS256"},
		"token_endpoint_auth_methods_supported": []string{"client_secret_post"},
	})
}

// JWKS serves GET /.well-known/jwks.json. With symmetric, static key
// material there is no public key to publish; the set is served empty.
func (h *OAuthHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	helpers.RespondJSON(w, http.StatusOK, h.tokens.GetJWKS())
}
