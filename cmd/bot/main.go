// Package main is the entry point for the casino bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"telegram-casino-bot/internal/bot"
	"telegram-casino-bot/internal/config"
	"telegram-casino-bot/internal/donation"
	"telegram-casino-bot/internal/game"
	"telegram-casino-bot/internal/game/dice"
	"telegram-casino-bot/internal/game/slot"
	"telegram-casino-bot/internal/ops"
	"telegram-casino-bot/internal/pkg/db"
	"telegram-casino-bot/internal/pkg/lock"
	"telegram-casino-bot/internal/repository"
	"telegram-casino-bot/internal/service"
	"telegram-casino-bot/internal/session"
	"telegram-casino-bot/internal/tier"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}
	log.Info().Str("timezone", loc.String()).Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, loc); err != nil {
		log.Fatal().Err(err).Msg("Bot exited with error")
	}
	log.Info().Msg("Bot stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, loc *time.Location) error {
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		return err
	}

	store := repository.NewStore(dbPool.Pool)

	accounts := service.NewAccountService(store, cfg.Ledger, cfg.IsBootstrapAdmin)
	ledger := service.NewLedger(store)
	tiers := service.NewTierService(store)
	bonus := service.NewBonusService(store, cfg.Daily, loc)
	ranking := service.NewRankingService(store, loc)
	payments, err := service.NewPaymentService(store, cfg.Payments, cfg.Donation)
	if err != nil {
		return err
	}

	if err := tiers.Seed(ctx, tier.Catalog); err != nil {
		return err
	}

	checks := map[string]ops.Checker{"database": dbPool}

	var sessions session.Store
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		rs := session.NewRedisStore(client, cfg.Games.SessionTTL)
		if err := rs.Ping(ctx); err != nil {
			return err
		}
		checks["redis"] = ops.CheckerFunc(rs.Ping)
		sessions = rs
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using redis game sessions")
	} else {
		sessions = session.NewMemoryStore(cfg.Games.SessionTTL)
	}

	limits := game.BetLimits{
		Min:      cfg.Games.Dice.MinBet,
		Max:      cfg.Games.Dice.MaxBet,
		Cooldown: cfg.Games.Dice.CooldownSeconds,
	}
	registry, err := game.NewRegistry(dice.New(limits), slot.New(limits))
	if err != nil {
		return err
	}
	engine := game.NewEngine(registry, sessions, ledger, accounts)
	log.Info().Int("game_count", registry.Count()).Msg("Games registered")

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:   cfg,
		Accounts: accounts,
		Ledger:   ledger,
		Tiers:    tiers,
		Bonus:    bonus,
		Payments: payments,
		Ranking:  ranking,
		Engine:   engine,
		Locks:    lock.New(),
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ops.Serve(gctx, cfg.Metrics.Addr, ops.NewRouter(checks))
	})

	if cfg.Donation.URL != "" {
		client := donation.NewClient(cfg.Donation.URL, cfg.Donation.Token, cfg.Donation.Timeout)
		poller := donation.NewPoller(client, payments, cfg.Donation.PollInterval, cfg.Donation.Timeout, telegramBot.NotifyDeposit)
		g.Go(func() error { return poller.Run(gctx) })
	}

	if cfg.Payments.SweepExpired {
		g.Go(func() error { return payments.RunExpirySweeper(gctx, cfg.Payments.SweepInterval) })
	}

	g.Go(func() error {
		telegramBot.Start()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		telegramBot.Stop()
		return nil
	})

	return g.Wait()
}
