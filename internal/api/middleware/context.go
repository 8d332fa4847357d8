package middleware

import (
	"context"
	"fmt"

	"github.com/brightlock/idgateway/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// Context keys for request-scoped values.
const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "user_role"
	ClaimsKey contextKey = "claims"
)

// GetUserID safely extracts the authenticated user id from context.
func GetUserID(ctx context.Context) (int64, error) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return 0, fmt.Errorf("user_id not found in context")
	}
	id, ok := val.(int64)
	if !ok {
		return 0, fmt.Errorf("user_id has wrong type: %T", val)
	}
	return id, nil
}

// GetRole safely extracts the user role from context.
func GetRole(ctx context.Context) (string, error) {
	val := ctx.Value(RoleKey)
	if val == nil {
		return "", fmt.Errorf("user_role not found in context")
	}
	role, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("user_role has wrong type: %T", val)
	}
	return role, nil
}

// GetClaims extracts the decoded bearer claims attached by RequireAuth or
// RequireAdmin.
func GetClaims(ctx context.Context) (*auth.Claims, error) {
	val := ctx.Value(ClaimsKey)
	if val == nil {
		return nil, fmt.Errorf("claims not found in context")
	}
	claims, ok := val.(*auth.Claims)
	if !ok {
		return nil, fmt.Errorf("claims has wrong type: %T", val)
	}
	return claims, nil
}

// MustGetUserID extracts the user id and panics if not found. Use only where
// RequireAuth or RequireAdmin is guaranteed to have run first.
func MustGetUserID(ctx context.Context) int64 {
	id, err := GetUserID(ctx)
	if err != nil {
		panic(fmt.Sprintf("CRITICAL: %v", err))
	}
	return id
}
