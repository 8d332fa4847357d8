package storage

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the User entity. Identifiers are 64-bit signed integers
// throughout, matching the underlying store.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Client is an OAuth Client, provisioned externally and read-only to the
// core.
type Client struct {
	ID            int64
	ClientID      string
	ClientSecret  string
	Name          string
	RedirectURIs  []string
	AllowedScopes []string
	CreatedAt     time.Time
}

// AuthCode is an Authorization Code row.
type AuthCode struct {
	ID          int64
	Code        string
	ClientID    string
	UserID      int64
	RedirectURI string
	Scopes      []string
	ExpiresAt   time.Time
	Used        bool
}

// AccessToken is an Access Token row. ClientID is nullable: absent for
// local-login tokens.
type AccessToken struct {
	ID        int64
	Token     string
	ClientID  *string
	UserID    int64
	Scopes    []string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RefreshToken is 1:1 with an access token.
type RefreshToken struct {
	ID            int64
	Token         string
	AccessTokenID int64
	ExpiresAt     time.Time
}

// ValueType is the closed set of App Setting value kinds.
type ValueType string

const (
	ValueString ValueType = "string"
	ValueInt    ValueType = "int"
	ValueBool   ValueType = "bool"
)

// Setting is an App Setting row. Exactly one of the value fields is
// populated, per ValueType.
type Setting struct {
	Key         string
	ValueType   ValueType
	ValueString *string
	ValueInt    *int64
	ValueBool   *bool
	Description string
	UpdatedAt   time.Time
	UpdatedBy   *int64
}

// InviteCode is an admin-minted registration capability.
type InviteCode struct {
	Code      string     `json:"code"`
	CreatedBy int64      `json:"created_by"`
	UsedBy    *int64     `json:"used_by,omitempty"`
	MaxUses   int32      `json:"max_uses"`
	UsedCount int32      `json:"used_count"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Revoked   bool       `json:"revoked"`
	CreatedAt time.Time  `json:"created_at"`
}

// ConfigAuditRecord is an append-only record of a registration-policy
// mutation. Unlike the core entities, its primary key is a random UUID:
// audit record ids get echoed back to admin clients building
// change-history links and should not reveal the row count.
type ConfigAuditRecord struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	ActorID   int64     `json:"actor_id"`
	ChangedAt time.Time `json:"changed_at"`
}
