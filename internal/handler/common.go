// Package handler provides Telegram bot command handlers.
package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"telegram-casino-bot/internal/game"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/pkg/lock"
	"telegram-casino-bot/internal/service"
	"telegram-casino-bot/internal/session"
)

// Context keys set by the bot middleware.
const (
	keyAccount = "account"
	keyAdmin   = "admin"
)

// SetAccount stores the caller's account on the context.
func SetAccount(c tele.Context, a *model.Account) { c.Set(keyAccount, a) }

// SetAdmin stores the caller's admin capability on the context.
func SetAdmin(c tele.Context, a model.Admin) { c.Set(keyAdmin, a) }

// AccountFrom returns the caller's account, or nil outside the account middleware.
func AccountFrom(c tele.Context) *model.Account {
	a, _ := c.Get(keyAccount).(*model.Account)
	return a
}

// AdminFrom returns the caller's admin capability.
func AdminFrom(c tele.Context) (model.Admin, bool) {
	a, ok := c.Get(keyAdmin).(model.Admin)
	return a, ok
}

var errUsage = errors.New("usage")

// ErrorText translates an error into the message shown to the user.
// Storage errors are logged and replaced with a generic message.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		return "❌ Not enough coins"
	case errors.Is(err, service.ErrNotFound):
		return "❌ Not found"
	case errors.Is(err, service.ErrInvalidState):
		return "❌ This request has already been processed"
	case errors.Is(err, service.ErrMaxTierReached):
		return "🏆 You are already at the highest level"
	case errors.Is(err, service.ErrDuplicateRegistration):
		return "ℹ️ You are already registered"
	case errors.Is(err, service.ErrInvalidAmount):
		return "❌ Invalid amount"
	case errors.Is(err, service.ErrInvalidTier):
		return "❌ No such level"
	case errors.Is(err, service.ErrInvalidDestination):
		return "❌ Please give the card or wallet to pay out to"
	case errors.Is(err, service.ErrAlreadyClaimed):
		return "⏰ You already claimed today's bonus, come back tomorrow"
	case errors.Is(err, service.ErrRequestExpired):
		return "⌛ This request has expired, please create a new one"
	case errors.Is(err, service.ErrWrongSource):
		return "❌ This is not a donation request"
	case errors.Is(err, game.ErrInvalidBet), errors.Is(err, game.ErrBetTooLow), errors.Is(err, game.ErrBetTooHigh):
		return "❌ " + capitalize(err.Error())
	case errors.Is(err, game.ErrUnknownGame):
		return "❌ Unknown game"
	case errors.Is(err, session.ErrActive):
		return "⏳ Your previous game is still running"
	case errors.Is(err, lock.ErrBusy):
		return "⏳ Still working on your previous request"
	}

	log.Error().Err(err).Msg("Unhandled error in handler")
	return "❌ Something went wrong, please try again later"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func replyErr(c tele.Context, err error) error {
	return c.Reply(ErrorText(err))
}

// ParseCoins parses a positive whole coin amount.
func ParseCoins(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 0, service.ErrInvalidAmount
	}
	return v, nil
}

// ParseSignedCoins parses a non-zero coin amount that may be negative.
func ParseSignedCoins(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v == 0 {
		return 0, service.ErrInvalidAmount
	}
	return v, nil
}

// ParseFiat parses a positive fiat amount with at most two decimals.
// A comma is accepted as the decimal separator.
func ParseFiat(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil || !d.IsPositive() || d.Exponent() < -2 {
		return decimal.Zero, service.ErrInvalidAmount
	}
	return d, nil
}

// ParseID parses an account or request id.
func ParseID(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errUsage, s)
	}
	return v, nil
}

// ParseReferrer extracts the inviting account from a /start payload of the
// form "ref_<id>". Anything else yields nil.
func ParseReferrer(payload string) *int64 {
	rest, ok := strings.CutPrefix(strings.TrimSpace(payload), "ref_")
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// ReferralLink returns the deep link that registers a new account under id.
func ReferralLink(botUsername string, id int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", botUsername, id)
}

func rankLabel(i int) string {
	medals := []string{"🥇", "🥈", "🥉"}
	if i < len(medals) {
		return medals[i]
	}
	return fmt.Sprintf("%d.", i+1)
}
