package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// CreateUser inserts a new user with role "user" and returns the row with
// its assigned id. A unique-constraint collision on username or email
// surfaces as Conflict.
func (g *Gateway) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	const q = `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, 'user')
		RETURNING id, username, email, password_hash, role, created_at, updated_at`

	var u User
	err := g.pool.QueryRow(ctx, q, username, email, passwordHash).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, gatewayerr.New(gatewayerr.Conflict, "username or email already in use")
		}
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "create_user failed", err)
	}
	return &u, nil
}

// CreateUserWithInvite inserts the user and consumes the invite inside one
// transaction. When the invite consume loses the race against another
// consumer, the whole transaction rolls back, so no user row survives, and
// the failure reason is returned for the caller to surface.
func (g *Gateway) CreateUserWithInvite(ctx context.Context, username, email, passwordHash, inviteCode string) (*User, InviteConsumeFailure, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, "", gatewayerr.Wrap(gatewayerr.Internal, "create_user_with_invite begin failed", err)
	}
	defer tx.Rollback(ctx)

	const q = `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, 'user')
		RETURNING id, username, email, password_hash, role, created_at, updated_at`

	var u User
	err = tx.QueryRow(ctx, q, username, email, passwordHash).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", gatewayerr.New(gatewayerr.Conflict, "username or email already in use")
		}
		return nil, "", gatewayerr.Wrap(gatewayerr.Internal, "create_user_with_invite failed", err)
	}

	reason, err := consumeInvite(ctx, tx, inviteCode, u.ID)
	if err != nil {
		return nil, "", err
	}
	if reason != "" {
		return nil, reason, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", gatewayerr.Wrap(gatewayerr.Internal, "create_user_with_invite commit failed", err)
	}
	return &u, "", nil
}

// FindUserByID finds a user by id. Returns nil, nil if not found.
func (g *Gateway) FindUserByID(ctx context.Context, id int64) (*User, error) {
	return g.findUser(ctx, "id = $1", id)
}

// FindUserByUsername finds a user by username. Returns nil, nil if not found.
func (g *Gateway) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	return g.findUser(ctx, "username = $1", username)
}

// FindUserByEmail finds a user by email. Returns nil, nil if not found.
func (g *Gateway) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return g.findUser(ctx, "email = $1", email)
}

func (g *Gateway) findUser(ctx context.Context, predicate string, arg any) (*User, error) {
	q := "SELECT id, username, email, password_hash, role, created_at, updated_at FROM users WHERE " + predicate

	var u User
	err := g.pool.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "find_user failed", err)
	}
	return &u, nil
}

// CurrentRole re-reads a user's role directly from the store. Used by the
// Admin Gate so a demotion takes effect at the next request even for a
// still-valid token.
func (g *Gateway) CurrentRole(ctx context.Context, userID int64) (string, error) {
	var role string
	err := g.pool.QueryRow(ctx, "SELECT role FROM users WHERE id = $1", userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", gatewayerr.New(gatewayerr.Unauthorized, "unknown subject")
		}
		return "", gatewayerr.Wrap(gatewayerr.Internal, "current_role failed", err)
	}
	return role, nil
}
