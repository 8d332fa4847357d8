package middleware

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// SetSentryUser adds the authenticated subject to the Sentry scope: the
// user id as Sentry's user identity, and role as a separate tag (there is
// no email on the claim set to attach here).
func SetSentryUser(ctx context.Context, userID string, role string, ip string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: userID, IPAddress: ip})
		scope.SetTag("role", role)
	})
}
