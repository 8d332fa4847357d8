package auth

import (
	"context"
	"strings"

	"github.com/brightlock/idgateway/internal/gatewayerr"
	"github.com/brightlock/idgateway/internal/storage"
)

// RegistrationConfig is the aggregate of the 10 admin-controlled settings
// governing who may register and what passwords are admissible.
type RegistrationConfig struct {
	AllowRegistration   bool
	AllowedEmailDomains []string // comma-separated in storage, a JSON array on the admin API; parsed to a list here
	MinUsernameLength   int
	MaxUsernameLength   int
	MinPasswordLength   int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireNumbers      bool
	RequireSpecial      bool
	RequireInviteCode   bool
}

// DefaultRegistrationConfig is used for any key missing from the store.
func DefaultRegistrationConfig() RegistrationConfig {
	return RegistrationConfig{
		AllowRegistration:   true,
		AllowedEmailDomains: nil,
		MinUsernameLength:   3,
		MaxUsernameLength:   32,
		MinPasswordLength:   8,
		RequireUppercase:    false,
		RequireLowercase:    false,
		RequireNumbers:      false,
		RequireSpecial:      false,
		RequireInviteCode:   false,
	}
}

// ParseAllowedEmailDomains converts the comma-separated stored form into a
// list, per the resolved open question: trim whitespace around elements and
// drop empty elements (empty string <-> empty list).
func ParseAllowedEmailDomains(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FormatAllowedEmailDomains is the inverse of ParseAllowedEmailDomains.
func FormatAllowedEmailDomains(domains []string) string {
	return strings.Join(domains, ",")
}

// ConfigStore is the subset of the Persistence Gateway the policy engine
// depends on.
type ConfigStore interface {
	GetRegistrationConfig(ctx context.Context) (map[string]storage.Setting, error)
	UpdateRegistrationConfig(ctx context.Context, updates []storage.RegistrationConfigUpdate, updatedBy int64) error
}

// PolicyEngine reads/writes the registration policy and validates candidate
// registrations against it.
type PolicyEngine struct {
	store ConfigStore
}

func NewPolicyEngine(store ConfigStore) *PolicyEngine {
	return &PolicyEngine{store: store}
}

// GetConfig aggregates the 10 keys into one structured value; missing keys
// resolve to documented defaults.
func (p *PolicyEngine) GetConfig(ctx context.Context) (RegistrationConfig, error) {
	rows, err := p.store.GetRegistrationConfig(ctx)
	if err != nil {
		return RegistrationConfig{}, err
	}
	cfg := DefaultRegistrationConfig()

	if s, ok := rows[storage.KeyAllowRegistration]; ok && s.ValueBool != nil {
		cfg.AllowRegistration = *s.ValueBool
	}
	if s, ok := rows[storage.KeyAllowedEmailDomains]; ok && s.ValueString != nil {
		cfg.AllowedEmailDomains = ParseAllowedEmailDomains(*s.ValueString)
	}
	if s, ok := rows[storage.KeyMinUsernameLength]; ok && s.ValueInt != nil {
		cfg.MinUsernameLength = int(*s.ValueInt)
	}
	if s, ok := rows[storage.KeyMaxUsernameLength]; ok && s.ValueInt != nil {
		cfg.MaxUsernameLength = int(*s.ValueInt)
	}
	if s, ok := rows[storage.KeyMinPasswordLength]; ok && s.ValueInt != nil {
		cfg.MinPasswordLength = int(*s.ValueInt)
	}
	if s, ok := rows[storage.KeyRequireUppercase]; ok && s.ValueBool != nil {
		cfg.RequireUppercase = *s.ValueBool
	}
	if s, ok := rows[storage.KeyRequireLowercase]; ok && s.ValueBool != nil {
		cfg.RequireLowercase = *s.ValueBool
	}
	if s, ok := rows[storage.KeyRequireNumbers]; ok && s.ValueBool != nil {
		cfg.RequireNumbers = *s.ValueBool
	}
	if s, ok := rows[storage.KeyRequireSpecial]; ok && s.ValueBool != nil {
		cfg.RequireSpecial = *s.ValueBool
	}
	if s, ok := rows[storage.KeyRequireInviteCode]; ok && s.ValueBool != nil {
		cfg.RequireInviteCode = *s.ValueBool
	}
	return cfg, nil
}

// UpdateConfig writes all 10 keys under a single transaction via the
// Persistence Gateway, which also emits the audit record.
func (p *PolicyEngine) UpdateConfig(ctx context.Context, cfg RegistrationConfig, updatedBy int64) error {
	boolUpdate := func(key string, v bool) storage.RegistrationConfigUpdate {
		return storage.RegistrationConfigUpdate{Key: key, ValueType: storage.ValueBool, Bool: &v}
	}
	intUpdate := func(key string, v int) storage.RegistrationConfigUpdate {
		i64 := int64(v)
		return storage.RegistrationConfigUpdate{Key: key, ValueType: storage.ValueInt, Int: &i64}
	}
	strUpdate := func(key string, v string) storage.RegistrationConfigUpdate {
		return storage.RegistrationConfigUpdate{Key: key, ValueType: storage.ValueString, String: &v}
	}

	updates := []storage.RegistrationConfigUpdate{
		boolUpdate(storage.KeyAllowRegistration, cfg.AllowRegistration),
		strUpdate(storage.KeyAllowedEmailDomains, FormatAllowedEmailDomains(cfg.AllowedEmailDomains)),
		intUpdate(storage.KeyMinUsernameLength, cfg.MinUsernameLength),
		intUpdate(storage.KeyMaxUsernameLength, cfg.MaxUsernameLength),
		intUpdate(storage.KeyMinPasswordLength, cfg.MinPasswordLength),
		boolUpdate(storage.KeyRequireUppercase, cfg.RequireUppercase),
		boolUpdate(storage.KeyRequireLowercase, cfg.RequireLowercase),
		boolUpdate(storage.KeyRequireNumbers, cfg.RequireNumbers),
		boolUpdate(storage.KeyRequireSpecial, cfg.RequireSpecial),
		boolUpdate(storage.KeyRequireInviteCode, cfg.RequireInviteCode),
	}
	return p.store.UpdateRegistrationConfig(ctx, updates, updatedBy)
}

// RegistrationCandidate is the input validated against the stored policy.
type RegistrationCandidate struct {
	Username string
	Email    string
	Password string
	Invite   string
}

// Validate checks the candidate against the stored policy, failing fast on
// the first violation. It does not check username/email uniqueness
// (delegated to the Persistence Gateway) or consume the invite (delegated
// to the caller alongside user creation).
func (p *PolicyEngine) Validate(cfg RegistrationConfig, c RegistrationCandidate) error {
	if !cfg.AllowRegistration {
		return gatewayerr.New(gatewayerr.BadRequest, "registration is currently disabled")
	}

	local, domain, ok := splitEmail(c.Email)
	if !ok {
		return gatewayerr.New(gatewayerr.BadRequest, "email must be of the form local@domain")
	}
	_ = local
	if len(cfg.AllowedEmailDomains) > 0 && !contains(cfg.AllowedEmailDomains, domain) {
		return gatewayerr.New(gatewayerr.BadRequest, "email domain is not permitted")
	}

	if len(c.Username) < cfg.MinUsernameLength || len(c.Username) > cfg.MaxUsernameLength {
		return gatewayerr.Newf(gatewayerr.BadRequest, "username must be between %d and %d characters", cfg.MinUsernameLength, cfg.MaxUsernameLength)
	}

	if len(c.Password) < cfg.MinPasswordLength {
		return gatewayerr.Newf(gatewayerr.BadRequest, "password must be at least %d characters", cfg.MinPasswordLength)
	}

	if cfg.RequireUppercase && !hasClass(c.Password, isUpper) {
		return gatewayerr.New(gatewayerr.BadRequest, "password must contain an uppercase letter")
	}
	if cfg.RequireLowercase && !hasClass(c.Password, isLower) {
		return gatewayerr.New(gatewayerr.BadRequest, "password must contain a lowercase letter")
	}
	if cfg.RequireNumbers && !hasClass(c.Password, isDigit) {
		return gatewayerr.New(gatewayerr.BadRequest, "password must contain a number")
	}
	if cfg.RequireSpecial && !hasClass(c.Password, isSpecial) {
		return gatewayerr.New(gatewayerr.BadRequest, "password must contain a special character")
	}

	if cfg.RequireInviteCode && strings.TrimSpace(c.Invite) == "" {
		return gatewayerr.New(gatewayerr.BadRequest, "an invite code is required")
	}

	return nil
}

func splitEmail(email string) (local, domain string, ok bool) {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", "", false
	}
	return email[:at], email[at+1:], true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func hasClass(s string, class func(byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if class(s[i]) {
			return true
		}
	}
	return false
}

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
func isLower(b byte) bool { return b >= 'a' && b <= 'z' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isSpecial(b byte) bool {
	return b >= '!' && b <= '~' && !isUpper(b) && !isLower(b) && !isDigit(b)
}
