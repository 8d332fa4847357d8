package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/brightlock/idgateway/internal/config"
	"github.com/brightlock/idgateway/internal/storage"
	"github.com/brightlock/idgateway/pkg/logger"
)

// The janitor is a standalone process that periodically sweeps rows the
// gateway's request path never bothers to delete: expired authorization
// codes, expired access/refresh tokens, and spent invite codes. The API
// process treats expiry as a read-time predicate (ConsumeAuthCode,
// ListClientsForSubject, TokensForSubjectAndClient) and never needs these
// rows gone to behave correctly; this
// keeps the tables from growing without bound.
const sweepInterval = 1 * time.Hour

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.SetupWith(cfg.Log.Format, logger.ParseLevel(cfg.Log.Level))

	ctx := context.Background()
	pool, err := storage.NewPool(ctx, cfg.DB.URL)
	if err != nil {
		log.Error("database_connect_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	gateway := storage.New(pool)
	log.Info("janitor_started", "interval", sweepInterval.String())

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	runSweep(ctx, gateway, log)

	for {
		select {
		case <-ticker.C:
			runSweep(ctx, gateway, log)
		case <-quit:
			log.Info("janitor_shutdown")
			return
		}
	}
}

func runSweep(ctx context.Context, g *storage.Gateway, log *slog.Logger) {
	if n, err := g.CleanExpiredAuthCodes(ctx); err != nil {
		log.Error("clean_authorization_codes_failed", "error", err)
	} else if n > 0 {
		log.Info("cleaned_authorization_codes", "deleted", n)
	}

	if n, err := g.CleanExpiredAccessTokens(ctx); err != nil {
		log.Error("clean_access_tokens_failed", "error", err)
	} else if n > 0 {
		log.Info("cleaned_access_tokens", "deleted", n)
	}

	if n, err := g.CleanExpiredRefreshTokens(ctx); err != nil {
		log.Error("clean_refresh_tokens_failed", "error", err)
	} else if n > 0 {
		log.Info("cleaned_refresh_tokens", "deleted", n)
	}

	if n, err := g.CleanSpentInviteCodes(ctx); err != nil {
		log.Error("clean_invite_codes_failed", "error", err)
	} else if n > 0 {
		log.Info("cleaned_invite_codes", "deleted", n)
	}
}
