// Package audit is the read side of the registration-policy audit trail.
// update_registration_config emits one record per changed key through the
// Persistence Gateway's own transaction, so the write is atomic with the
// config update; this package is only the query surface the admin HTTP
// handler lists records through.
package audit

import (
	"context"

	"github.com/brightlock/idgateway/internal/storage"
)

// Record is a single config-audit row (key, old value, new value, actor,
// timestamp).
type Record = storage.ConfigAuditRecord

// Store is the subset of the Persistence Gateway this service depends on.
type Store interface {
	ListConfigAuditLogs(ctx context.Context, limit int, configKey string) ([]storage.ConfigAuditRecord, error)
}

// Service lists registration-policy audit records for the admin surface.
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// List returns config-change records, most recent first, optionally
// filtered to a single key and bounded by limit (defaulting to 50, capped
// at 500 to keep the administrative listing bounded).
func (s *Service) List(ctx context.Context, limit int, configKey string) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return s.store.ListConfigAuditLogs(ctx, limit, configKey)
}
