package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// FindClientByID looks up an OAuth client by its public client_id. Clients
// are provisioned externally (seed data, out of core scope) and read-only
// to the core.
func (g *Gateway) FindClientByID(ctx context.Context, clientID string) (*Client, error) {
	const q = `
		SELECT id, client_id, client_secret, name, redirect_uris, allowed_scopes, created_at
		FROM oauth_clients WHERE client_id = $1`

	var c Client
	err := g.pool.QueryRow(ctx, q, clientID).Scan(
		&c.ID, &c.ClientID, &c.ClientSecret, &c.Name, &c.RedirectURIs, &c.AllowedScopes, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "find_client_by_id failed", err)
	}
	return &c, nil
}

// VerifyRedirectURI checks uri against the client's stored list by exact
// match only; no prefix or wildcard matching.
func VerifyRedirectURI(c *Client, uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// ScopesSubset reports whether every requested scope is present in allowed.
func ScopesSubset(requested, allowed []string) bool {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		allowedSet[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := allowedSet[s]; !ok {
			return false
		}
	}
	return true
}
