package audit

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// EventType categorizes a security-relevant event that isn't itself a
// config-audit row (those are written transactionally by the Persistence
// Gateway; see Record/Service in service.go).
type EventType string

const (
	EventLoginSuccess  EventType = "LOGIN_SUCCESS"
	EventLoginFailed   EventType = "LOGIN_FAILED"
	EventTokenRevoked  EventType = "TOKEN_REVOKED"
	EventInviteCreated EventType = "INVITE_CREATED"
	EventInviteRevoked EventType = "INVITE_REVOKED"
)

// Logger defines the contract for structured security-event logging.
type Logger interface {
	Log(ctx context.Context, actorID int64, action EventType, resource string, metadata map[string]string)
}

// JSONLogger writes structured logs to stdout with a marker field that log
// aggregators can filter into a dedicated audit index, independent of the
// main application logger's format.
type JSONLogger struct {
	logger *slog.Logger
}

func NewJSONLogger() *JSONLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &JSONLogger{logger: slog.New(handler)}
}

func (l *JSONLogger) Log(ctx context.Context, actorID int64, action EventType, resource string, metadata map[string]string) {
	fields := []any{
		slog.String("log_type", "AUDIT_TRAIL"),
		slog.Int64("actor_id", actorID),
		slog.String("action", string(action)),
		slog.String("resource", resource),
		slog.Time("timestamp_utc", time.Now().UTC()),
	}
	for k, v := range metadata {
		fields = append(fields, slog.String("meta_"+k, v))
	}
	l.logger.InfoContext(ctx, "audit_event", fields...)
}

// NoopLogger discards every event; useful in tests.
type NoopLogger struct{}

func (NoopLogger) Log(context.Context, int64, EventType, string, map[string]string) {}
