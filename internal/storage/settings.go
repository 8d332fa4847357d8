package storage

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// The 10 registration-policy keys, aggregated by GetRegistrationConfig and
// written atomically by UpdateRegistrationConfig.
const (
	KeyAllowRegistration    = "allow_registration"
	KeyAllowedEmailDomains  = "allowed_email_domains"
	KeyMinUsernameLength    = "min_username_length"
	KeyMaxUsernameLength    = "max_username_length"
	KeyMinPasswordLength    = "min_password_length"
	KeyRequireUppercase     = "require_uppercase"
	KeyRequireLowercase     = "require_lowercase"
	KeyRequireNumbers       = "require_numbers"
	KeyRequireSpecial       = "require_special"
	KeyRequireInviteCode    = "require_invite_code"
)

var registrationConfigKeys = []string{
	KeyAllowRegistration, KeyAllowedEmailDomains, KeyMinUsernameLength,
	KeyMaxUsernameLength, KeyMinPasswordLength, KeyRequireUppercase,
	KeyRequireLowercase, KeyRequireNumbers, KeyRequireSpecial, KeyRequireInviteCode,
}

// GetSetting reads a single setting row. Returns nil, nil if the key is
// unset.
func (g *Gateway) GetSetting(ctx context.Context, key string) (*Setting, error) {
	const q = `
		SELECT key, value_type, value_string, value_int, value_bool, description, updated_at, updated_by
		FROM app_settings WHERE key = $1`

	var s Setting
	err := g.pool.QueryRow(ctx, q, key).Scan(
		&s.Key, &s.ValueType, &s.ValueString, &s.ValueInt, &s.ValueBool, &s.Description, &s.UpdatedAt, &s.UpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "get_setting failed", err)
	}
	return &s, nil
}

// SetSetting upserts a single setting row, used outside the registration
// config's 10-key transaction (e.g. future unrelated settings).
func (g *Gateway) SetSetting(ctx context.Context, key string, valueType ValueType, value any, updatedBy int64) error {
	const q = `
		INSERT INTO app_settings (key, value_type, value_string, value_int, value_bool, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (key) DO UPDATE SET
			value_type = EXCLUDED.value_type,
			value_string = EXCLUDED.value_string,
			value_int = EXCLUDED.value_int,
			value_bool = EXCLUDED.value_bool,
			updated_by = EXCLUDED.updated_by,
			updated_at = now()`

	var vs *string
	var vi *int64
	var vb *bool
	switch valueType {
	case ValueString:
		s, _ := value.(string)
		vs = &s
	case ValueInt:
		i, _ := value.(int64)
		vi = &i
	case ValueBool:
		b, _ := value.(bool)
		vb = &b
	}

	_, err := g.pool.Exec(ctx, q, key, valueType, vs, vi, vb, updatedBy)
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.Internal, "set_setting failed", err)
	}
	return nil
}

// RegistrationConfigUpdate is the write-side shape for
// UpdateRegistrationConfig: a value and its type per key.
type RegistrationConfigUpdate struct {
	Key       string
	ValueType ValueType
	String    *string
	Int       *int64
	Bool      *bool
}

// GetRegistrationConfig aggregates the 10 keys into one row set. Missing
// keys are simply absent from the returned map; the policy engine applies
// documented defaults for any key it does not find.
func (g *Gateway) GetRegistrationConfig(ctx context.Context) (map[string]Setting, error) {
	const q = `
		SELECT key, value_type, value_string, value_int, value_bool, description, updated_at, updated_by
		FROM app_settings WHERE key = ANY($1)`

	rows, err := g.pool.Query(ctx, q, registrationConfigKeys)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "get_registration_config failed", err)
	}
	defer rows.Close()

	out := make(map[string]Setting, len(registrationConfigKeys))
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.ValueType, &s.ValueString, &s.ValueInt, &s.ValueBool, &s.Description, &s.UpdatedAt, &s.UpdatedBy); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "get_registration_config scan failed", err)
		}
		out[s.Key] = s
	}
	return out, rows.Err()
}

// UpdateRegistrationConfig writes all 10 keys under a single transaction
// and emits one audit record per changed key. A concurrent
// GetRegistrationConfig observes either the entire pre-image or the
// entire post-image, never a partial write.
func (g *Gateway) UpdateRegistrationConfig(ctx context.Context, updates []RegistrationConfigUpdate, updatedBy int64) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.Internal, "update_registration_config begin failed", err)
	}
	defer tx.Rollback(ctx)

	for _, u := range updates {
		var oldVal string
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(value_string, value_int::text, value_bool::text, '')
			FROM app_settings WHERE key = $1`, u.Key).Scan(&oldVal)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return gatewayerr.Wrap(gatewayerr.Internal, "update_registration_config read failed", err)
		}

		const upsert = `
			INSERT INTO app_settings (key, value_type, value_string, value_int, value_bool, updated_by, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (key) DO UPDATE SET
				value_type = EXCLUDED.value_type,
				value_string = EXCLUDED.value_string,
				value_int = EXCLUDED.value_int,
				value_bool = EXCLUDED.value_bool,
				updated_by = EXCLUDED.updated_by,
				updated_at = now()`
		if _, err := tx.Exec(ctx, upsert, u.Key, u.ValueType, u.String, u.Int, u.Bool, updatedBy); err != nil {
			return gatewayerr.Wrap(gatewayerr.Internal, "update_registration_config write failed", err)
		}

		newVal := newValueString(u)
		if oldVal == newVal {
			continue
		}
		const auditInsert = `
			INSERT INTO config_audit_log (id, key, old_value, new_value, actor_id, changed_at)
			VALUES ($1, $2, $3, $4, $5, now())`
		if _, err := tx.Exec(ctx, auditInsert, uuid.New(), u.Key, oldVal, newVal, updatedBy); err != nil {
			return gatewayerr.Wrap(gatewayerr.Internal, "update_registration_config audit failed", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return gatewayerr.Wrap(gatewayerr.Internal, "update_registration_config commit failed", err)
	}
	return nil
}

func newValueString(u RegistrationConfigUpdate) string {
	switch u.ValueType {
	case ValueString:
		if u.String != nil {
			return *u.String
		}
	case ValueInt:
		if u.Int != nil {
			return strconv.FormatInt(*u.Int, 10)
		}
	case ValueBool:
		if u.Bool != nil {
			return strconv.FormatBool(*u.Bool)
		}
	}
	return ""
}

// ListConfigAuditLogs lists config change records, most recent first,
// bounded by limit and optionally filtered to a single config key.
func (g *Gateway) ListConfigAuditLogs(ctx context.Context, limit int, configKey string) ([]ConfigAuditRecord, error) {
	q := `
		SELECT id, key, old_value, new_value, actor_id, changed_at
		FROM config_audit_log`
	args := []any{}
	if configKey != "" {
		q += " WHERE key = $1"
		args = append(args, configKey)
	}
	args = append(args, limit)
	q += " ORDER BY changed_at DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := g.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "list_config_audit_logs failed", err)
	}
	defer rows.Close()

	var out []ConfigAuditRecord
	for rows.Next() {
		var r ConfigAuditRecord
		if err := rows.Scan(&r.ID, &r.Key, &r.OldValue, &r.NewValue, &r.ActorID, &r.ChangedAt); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "list_config_audit_logs scan failed", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
