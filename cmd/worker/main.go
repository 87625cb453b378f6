package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/syncer"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// syncTimeout bounds one scheduled SyncNow.
const syncTimeout = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	a, err := app.Build(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise ledger")
	}
	defer a.Close()

	if !a.Service.HasRemote() {
		log.Fatal().Msg("No remote document configured, nothing to sync")
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.SyncSchedule, func() { runSync(a.Service, log) }); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("Invalid sync schedule")
	}
	c.Start()
	log.Info().Str("schedule", cfg.SyncSchedule).Msg("Sync worker started")

	// One sync at startup so a fresh machine adopts the remote copy.
	runSync(a.Service, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down sync worker...")
	<-c.Stop().Done()
	log.Info().Msg("Sync worker exited")
}

func runSync(svc *ledger.Service, log zerolog.Logger) {
	if !svc.Connected() {
		log.Debug().Msg("not connected, skipping scheduled sync")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	start := time.Now()
	if err := svc.SyncNow(ctx); err != nil {
		if syncer.IsNotConnected(err) {
			log.Warn().Err(err).Msg("remote rejected credentials, token dropped")
			return
		}
		log.Error().Err(err).Msg("scheduled sync failed")
		return
	}
	log.Info().Dur("duration", time.Since(start)).Msg("scheduled sync completed")
}
