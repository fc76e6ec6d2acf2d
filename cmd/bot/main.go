// Package main is the entry point for the garden bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"garden-bot/internal/bot"
	"garden-bot/internal/catalog"
	"garden-bot/internal/config"
	"garden-bot/internal/game/duel"
	"garden-bot/internal/model"
	"garden-bot/internal/pkg/db"
	"garden-bot/internal/pkg/lock"
	"garden-bot/internal/repository"
	"garden-bot/internal/service"
	"garden-bot/internal/shop"
	"garden-bot/internal/store"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Str("store", cfg.Store.Driver).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()

	records, ledger, closeStore, err := openStore(ctx, cfg, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer closeStore()

	cat, err := catalog.Load(ctx, records)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load creature catalog")
	}
	log.Info().Int("forests", len(cat.Forests())).Msg("Catalog loaded")

	players := repository.NewPlayerRepository(records, lock.NewUserLock(), repository.PlayerOptions{
		StartingCoins: cfg.Garden.StartingCoins,
		StarterFood:   shop.StarterPack(),
		RetryAttempts: cfg.Store.RetryAttempts,
		Clock:         clock,
	})

	accountService := service.NewAccountService(players, ledger, cfg.Daily.Reward, cfg.Daily.CooldownHours, clock)
	rankingService := service.NewRankingService(players, ledger, time.Local, clock)
	gardenService := service.NewGardenService(players, cat, ledger, clock)

	engine := duel.NewEngine(
		duel.NewRegistry(),
		cat,
		players,
		duel.NewRewardSettlement(players, ledger, cfg.Garden.Duel.Reward),
		duel.NewTurnClock(clock, cfg.Garden.Duel.Timeout, cfg.Garden.Duel.ResetTimerOnMove),
		duel.Config{Retain: cfg.Garden.Duel.Retain},
	)
	defer engine.Shutdown()

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:         cfg,
		AccountService: accountService,
		RankingService: rankingService,
		GardenService:  gardenService,
		DuelEngine:     engine,
		Clock:          clock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Int("open_duels", engine.Registry().Len()).Msg("Bot stopped gracefully")
}

// openStore opens the configured record store and the matching ledger.
func openStore(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (store.RecordStore, repository.Ledger, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverBolt:
		s, err := store.OpenBolt(cfg.Store.BoltPath,
			model.CollectionPlayers,
			model.CollectionCatalog,
			model.CollectionForests,
			model.CollectionTransactions,
		)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info().Str("path", cfg.Store.BoltPath).Msg("Using bbolt record store")
		return s, repository.NewStoreLedger(s, clock), func() { _ = s.Close() }, nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := runMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return store.NewPostgresStore(pool.Pool), repository.NewTransactionRepository(pool.Pool), pool.Close, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	if _, err := pool.Exec(ctx, store.Schema); err != nil {
		return err
	}
	log.Info().Msg("Migration 1: records table created")

	if _, err := pool.Exec(ctx, repository.TransactionSchema); err != nil {
		return err
	}
	log.Info().Msg("Migration 2: transactions table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
