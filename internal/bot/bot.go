// Package bot wires the Telegram front-end: middleware, command routing and
// notifications pushed from background jobs.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-casino-bot/internal/config"
	"telegram-casino-bot/internal/game"
	"telegram-casino-bot/internal/handler"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/pkg/lock"
	"telegram-casino-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accounts *service.AccountService
	locks    *lock.AccountLock

	accountHandler *handler.AccountHandler
	paymentHandler *handler.PaymentHandler
	adminHandler   *handler.AdminHandler
	rankingHandler *handler.RankingHandler
	gameHandler    *handler.GameHandler
}

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Config   *config.Config
	Accounts *service.AccountService
	Ledger   *service.Ledger
	Tiers    *service.TierService
	Bonus    *service.BonusService
	Payments *service.PaymentService
	Ranking  *service.RankingService
	Engine   *game.Engine
	Locks    *lock.AccountLock
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	username := deps.Config.Bot.Username
	if username == "" {
		username = teleBot.Me.Username
	}

	b := &Bot{
		bot:      teleBot,
		cfg:      deps.Config,
		accounts: deps.Accounts,
		locks:    deps.Locks,

		accountHandler: handler.NewAccountHandler(deps.Accounts, deps.Ledger, deps.Tiers, deps.Bonus, username),
		paymentHandler: handler.NewPaymentHandler(deps.Payments, deps.Config.Payments, deps.Config.Donation),
		adminHandler:   handler.NewAdminHandler(deps.Accounts, deps.Ledger, deps.Tiers, deps.Payments),
		rankingHandler: handler.NewRankingHandler(deps.Ranking),
		gameHandler:    handler.NewGameHandler(deps.Engine, deps.Ledger),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(AccountMiddleware(b.accounts))
	b.bot.Use(SerializeMiddleware(b.locks))
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/me", b.accountHandler.HandleMe)
	b.bot.Handle("/history", b.accountHandler.HandleHistory)
	b.bot.Handle("/daily", b.accountHandler.HandleDaily)
	b.bot.Handle("/ref", b.accountHandler.HandleRef)
	b.bot.Handle("/levels", b.accountHandler.HandleLevels)
	b.bot.Handle("/upgrade", b.accountHandler.HandleUpgrade)

	b.bot.Handle("/games", b.gameHandler.HandleGames)
	b.bot.Handle("/stats", b.gameHandler.HandleStats)
	b.bot.Handle("/dice", b.gameHandler.HandleDice)
	b.bot.Handle("/slot", b.gameHandler.HandleSlot)

	b.bot.Handle("/top", b.rankingHandler.HandleTop)
	b.bot.Handle("/daily_top", b.rankingHandler.HandleDailyTop)

	b.bot.Handle("/deposit", b.paymentHandler.HandleDeposit)
	b.bot.Handle("/donate", b.paymentHandler.HandleDonate)
	b.bot.Handle("/paid", b.paymentHandler.HandlePaid)
	b.bot.Handle(tele.OnPhoto, b.paymentHandler.HandleProof)
	b.bot.Handle(tele.OnDocument, b.paymentHandler.HandleProof)
	b.bot.Handle("/deposits", b.paymentHandler.HandleDeposits)
	b.bot.Handle("/withdraw", b.paymentHandler.HandleWithdraw)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.accounts))
	adminGroup.Handle("/adjust", b.adminHandler.HandleAdjust)
	adminGroup.Handle("/user", b.adminHandler.HandleUser)
	adminGroup.Handle("/audit", b.adminHandler.HandleAudit)
	adminGroup.Handle("/ban", b.adminHandler.HandleBan)
	adminGroup.Handle("/unban", b.adminHandler.HandleUnban)
	adminGroup.Handle("/setadmin", b.adminHandler.HandleSetAdmin)
	adminGroup.Handle("/rmadmin", b.adminHandler.HandleRemoveAdmin)
	adminGroup.Handle("/setluck", b.adminHandler.HandleSetLuck)
	adminGroup.Handle("/resetluck", b.adminHandler.HandleResetLuck)
	adminGroup.Handle("/settier", b.adminHandler.HandleSetTier)
	adminGroup.Handle("/pending_deposits", b.adminHandler.HandlePendingDeposits)
	adminGroup.Handle("/proof", b.adminHandler.HandleShowProof)
	adminGroup.Handle("/confirm_deposit", b.adminHandler.HandleConfirmDeposit)
	adminGroup.Handle("/reject_deposit", b.adminHandler.HandleRejectDeposit)
	adminGroup.Handle("/pending_withdrawals", b.adminHandler.HandlePendingWithdrawals)
	adminGroup.Handle("/confirm_withdrawal", b.adminHandler.HandleConfirmWithdrawal)
	adminGroup.Handle("/reject_withdrawal", b.adminHandler.HandleRejectWithdrawal)
}

// NotifyDeposit tells the account that a deposit was settled without an
// admin in the loop, e.g. by the donation poller.
func (b *Bot) NotifyDeposit(d *model.DepositRequest) {
	if d.Status != model.StatusCompleted {
		return
	}
	text := fmt.Sprintf("✅ Donation received! Deposit #%d: +%d coins", d.ID, d.Credit)
	if _, err := b.bot.Send(&tele.User{ID: d.AccountID}, text); err != nil {
		log.Warn().Err(err).Int64("account_id", d.AccountID).Int64("request_id", d.ID).Msg("Failed to notify deposit")
	}
}

// Start starts long polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
