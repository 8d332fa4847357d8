package api

import (
	"log/slog"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	customMiddleware "github.com/brightlock/idgateway/internal/api/middleware"
	"github.com/brightlock/idgateway/internal/audit"
	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/cache"
	"github.com/brightlock/idgateway/internal/storage"
)

// Server bundles the chi router with the dependencies its handlers need
// outside the request path (health checks against the pool).
type Server struct {
	Router *chi.Mux
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// Deps is everything NewServer needs to wire the route table.
type Deps struct {
	Pool           *pgxpool.Pool
	Gateway        *storage.Gateway
	Cache          cache.Cache
	Tokens         auth.TokenProvider
	Session        *auth.Session
	Invites        *auth.Invites
	OAuth          *auth.OAuthService
	Policy         *auth.PolicyEngine
	Audit          *audit.Service
	Issuer         string
	AllowedOrigins []string
}

// NewServer builds the router: request id/real-ip, Sentry, logging, panic
// recovery, rate limiting, then CORS, with RequireAuth and RequireAdmin
// mounted per route group.
func NewServer(d Deps) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	r.Use(sentryHandler.Handle)

	r.Use(customMiddleware.RequestLogger)
	r.Use(customMiddleware.PanicRecovery)

	limiter := customMiddleware.NewIPRateLimiter(5, 10)
	r.Use(limiter.Middleware)

	r.Use(customMiddleware.StaticCors(d.AllowedOrigins))

	logger := slog.Default()
	server := &Server{Router: r, Pool: d.Pool, Logger: logger}

	requireAuth := customMiddleware.RequireAuth(d.Tokens, d.Cache)
	requireAdmin := customMiddleware.RequireAdmin(d.Tokens, d.Cache, d.Gateway)

	authHandler := NewAuthHandler(d.Session, d.Invites)
	oauthHandler := NewOAuthHandler(d.OAuth, d.Tokens, d.Issuer)
	userHandler := NewUserHandler(d.Gateway, d.OAuth)
	adminHandler := NewAdminHandler(d.Policy, d.Invites, d.Audit)

	r.Get("/health", server.Health)
	r.Get("/health/live", server.HealthLive)
	r.Get("/health/ready", server.HealthReady)

	r.Get("/.well-known/openid-configuration", oauthHandler.DiscoveryDocument)
	r.Get("/.well-known/jwks.json", oauthHandler.JWKS)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/verify-invite", authHandler.VerifyInvite)
	})

	r.Route("/oauth", func(r chi.Router) {
		r.Post("/token", oauthHandler.Token)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/authorize", oauthHandler.Authorize)
			r.Get("/userinfo", oauthHandler.UserInfo)
			r.Post("/revoke", oauthHandler.Revoke)
		})
	})

	r.Route("/api/user", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/me", userHandler.Me)
		r.Get("/authorizations", userHandler.ListAuthorizations)
		r.Delete("/authorizations/{client_id}", userHandler.RevokeAuthorization)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireAdmin)

		r.Get("/settings/registration", adminHandler.GetRegistrationConfig)
		r.Put("/settings/registration", adminHandler.UpdateRegistrationConfig)
		r.Get("/settings/audit-logs", adminHandler.AuditLogs)

		r.Post("/invites", adminHandler.CreateInvite)
		r.Get("/invites", adminHandler.ListInvites)
		r.Delete("/invites/{code}", adminHandler.RevokeInvite)
	})

	return server
}
