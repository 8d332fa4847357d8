package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/brightlock/idgateway/internal/api"
	"github.com/brightlock/idgateway/internal/audit"
	"github.com/brightlock/idgateway/internal/auth"
	"github.com/brightlock/idgateway/internal/cache"
	"github.com/brightlock/idgateway/internal/config"
	"github.com/brightlock/idgateway/internal/storage"
	"github.com/brightlock/idgateway/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	cfg := config.Load()
	log := logger.SetupWith(cfg.Log.Format, logger.ParseLevel(cfg.Log.Level))
	log.Info("application_startup", "env", env)

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, TracesSampleRate: 1.0, Environment: env}); err != nil {
			log.Error("sentry_init_failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			log.Info("sentry_initialized")
		}
	} else {
		log.Warn("sentry_dsn_missing", "details", "skipping_init")
	}

	ctx := context.Background()
	pool, err := storage.NewPool(ctx, cfg.DB.URL)
	if err != nil {
		log.Error("database_connect_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("database_connected")

	gateway := storage.New(pool)

	var redisClient *redis.Client
	if cfg.Cache.EnableRedisCache && cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Error("redis_url_parse_failed", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis_ping_failed", "error", err, "details", "degrading_to_tier1_only")
			redisClient = nil
		} else {
			log.Info("redis_connected")
		}
	}

	twoTier, err := cache.New(cfg.Cache.EnableMemoryCache, cfg.Cache.MemoryCacheSize, cfg.Cache.DefaultTTL, redisClient, log)
	if err != nil {
		log.Error("cache_init_failed", "error", err)
		os.Exit(1)
	}
	defer twoTier.Close()

	if cfg.Auth.JWTSecret == "" {
		if env == "production" {
			log.Error("jwt_secret_missing", "details", "fatal_in_production")
			os.Exit(1)
		}
		log.Warn("jwt_secret_missing", "details", "dev_mode_unsafe")
		cfg.Auth.JWTSecret = "insecure-development-secret-do-not-use-in-production"
	}

	hasher := auth.NewArgon2Hasher()
	tokenProvider := auth.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Server.PublicURL)
	policy := auth.NewPolicyEngine(gateway)
	invites := auth.NewInvites(gateway)
	auditTrail := audit.NewJSONLogger()
	session := auth.NewSession(gateway, policy, invites, hasher, tokenProvider, twoTier, auditTrail, cfg.Auth.AccessTokenExpire, cfg.Auth.RefreshTokenExpire)
	oauthService := auth.NewOAuthService(gateway, twoTier, tokenProvider, auth.OAuthConfig{
		AuthorizationCodeTTL: cfg.Auth.AuthorizationCodeTTL,
		AccessTokenTTL:       cfg.Auth.AccessTokenExpire,
		RefreshTokenTTL:      cfg.Auth.RefreshTokenExpire,
	})
	auditService := audit.New(gateway)

	server := api.NewServer(api.Deps{
		Pool:           pool,
		Gateway:        gateway,
		Cache:          twoTier,
		Tokens:         tokenProvider,
		Session:        session,
		Invites:        invites,
		OAuth:          oauthService,
		Policy:         policy,
		Audit:          auditService,
		Issuer:         cfg.Server.PublicURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server_listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server_startup_failed", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown_signal_received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful_shutdown_failed", "error", err)
			if err := srv.Close(); err != nil {
				log.Error("server_force_close_failed", "error", err)
			}
		}

		pool.Close()
		log.Info("database_pool_closed")

		log.Info("server_shutdown_complete")
	}
}
