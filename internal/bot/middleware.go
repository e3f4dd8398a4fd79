package bot

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-casino-bot/internal/handler"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/pkg/lock"
	"telegram-casino-bot/internal/service"
)

// Accounts is what the account middleware needs from the account service.
type Accounts interface {
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	RegisterAccount(ctx context.Context, reg service.Registration) (*model.Account, error)
	UpdateDisplay(ctx context.Context, id int64, username, firstName string) error
}

// Authorizer performs the admin capability check.
type Authorizer interface {
	Authorize(ctx context.Context, id int64) (model.Admin, bool, error)
}

// AccountMiddleware loads the sender's account, registering it on first
// contact, and puts it on the context. A /start payload of the form
// "ref_<id>" names the inviting account. Banned accounts are stopped here.
func AccountMiddleware(accounts Accounts) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.IsBot {
				return nil
			}
			ctx := context.Background()

			a, err := accounts.GetAccount(ctx, sender.ID)
			switch {
			case errors.Is(err, service.ErrNotFound):
				a, err = register(ctx, accounts, c, sender)
				if err != nil {
					return c.Reply(handler.ErrorText(err))
				}
			case err != nil:
				return c.Reply(handler.ErrorText(err))
			default:
				if a.Username != sender.Username || a.FirstName != sender.FirstName {
					if err := accounts.UpdateDisplay(ctx, a.ID, sender.Username, sender.FirstName); err != nil {
						log.Warn().Err(err).Int64("account_id", a.ID).Msg("Failed to update display name")
					} else {
						a.Username, a.FirstName = sender.Username, sender.FirstName
					}
				}
			}

			if a.Banned {
				log.Debug().Int64("account_id", a.ID).Msg("Ignoring banned account")
				return c.Reply("🚫 Your account is banned")
			}

			handler.SetAccount(c, a)
			return next(c)
		}
	}
}

func register(ctx context.Context, accounts Accounts, c tele.Context, sender *tele.User) (*model.Account, error) {
	reg := service.Registration{
		AccountID: sender.ID,
		Username:  sender.Username,
		FirstName: sender.FirstName,
	}
	if msg := c.Message(); msg != nil {
		reg.ReferrerID = handler.ParseReferrer(msg.Payload)
	}

	a, err := accounts.RegisterAccount(ctx, reg)
	if errors.Is(err, service.ErrDuplicateRegistration) {
		// Lost a race with another update from the same user.
		return accounts.GetAccount(ctx, sender.ID)
	}
	return a, err
}

// AdminMiddleware lets only admins through and puts their capability on the context.
func AdminMiddleware(auth Authorizer) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			admin, ok, err := auth.Authorize(context.Background(), sender.ID)
			if err != nil {
				return c.Reply(handler.ErrorText(err))
			}
			if !ok {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ Permission denied: admins only")
			}

			handler.SetAdmin(c, admin)
			return next(c)
		}
	}
}

// SerializeMiddleware keeps one request per user in flight. A second
// request arriving meanwhile is turned away instead of queued.
func SerializeMiddleware(locks *lock.AccountLock) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return next(c)
			}
			err := locks.Guard(sender.ID, func() error { return next(c) })
			if errors.Is(err, lock.ErrBusy) {
				return c.Reply(handler.ErrorText(err))
			}
			return err
		}
	}
}

// LoggingMiddleware logs all incoming updates.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Internal error, please try again later")
				}
			}()
			return next(c)
		}
	}
}
