package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/service"
)

const historyLimit = 10

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accounts    *service.AccountService
	ledger      *service.Ledger
	tiers       *service.TierService
	bonus       *service.BonusService
	botUsername string
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService, ledger *service.Ledger, tiers *service.TierService, bonus *service.BonusService, botUsername string) *AccountHandler {
	return &AccountHandler{
		accounts:    accounts,
		ledger:      ledger,
		tiers:       tiers,
		bonus:       bonus,
		botUsername: botUsername,
	}
}

// HandleStart handles /start. Registration itself happens in the account
// middleware, which reads the referral payload.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}

	return c.Send(fmt.Sprintf(
		"🎰 Welcome, %s!\n\n"+
			"💰 Balance: %d coins\n\n"+
			"/balance - your balance\n"+
			"/me - profile and stats\n"+
			"/history - recent transactions\n"+
			"/daily - daily bonus\n"+
			"/levels, /upgrade - luck levels\n"+
			"/dice <bet>, /slot <bet> - play\n"+
			"/games, /stats - games and your record\n"+
			"/deposit <amount>, /donate <amount> - top up\n"+
			"/withdraw <amount> <card> - cash out\n"+
			"/ref - invite friends\n"+
			"/top, /daily_top - rankings",
		a.DisplayName(), a.Balance,
	))
}

// HandleBalance handles /balance.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}
	return c.Reply(fmt.Sprintf("💰 Balance: %d coins", a.Balance))
}

// HandleMe handles /me: balance, level, luck and lifetime stats.
func (h *AccountHandler) HandleMe(c tele.Context) error {
	ctx := context.Background()
	a := AccountFrom(c)
	if a == nil {
		return nil
	}

	status, err := h.tiers.Progress(ctx, a.ID)
	if err != nil {
		return replyErr(c, err)
	}
	luck, err := h.accounts.EffectiveLuck(ctx, a.ID)
	if err != nil {
		return replyErr(c, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s (ID: %d)\n", a.DisplayName(), a.ID)
	fmt.Fprintf(&b, "💰 Balance: %d coins\n", a.Balance)
	fmt.Fprintf(&b, "⭐ Level %d %s, luck x%.2f\n", status.Current.Level, status.Current.Name, luck)
	if status.Next != nil {
		fmt.Fprintf(&b, "⬆️ Next: %s for %d coins\n", status.Next.Name, status.Next.Price)
	}
	fmt.Fprintf(&b, "\n🎮 Games: %d (won %d, lost %d)\n", a.GamesPlayed, a.Wins, a.Losses)
	fmt.Fprintf(&b, "💸 Wagered: %d, won: %d\n", a.TotalWagered, a.TotalWon)
	if a.BonusStreak > 0 {
		fmt.Fprintf(&b, "🔥 Daily streak: %d\n", a.BonusStreak)
	}
	return c.Reply(b.String())
}

// HandleHistory handles /history.
func (h *AccountHandler) HandleHistory(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}

	txs, err := h.ledger.Transactions(context.Background(), a.ID, historyLimit)
	if err != nil {
		return replyErr(c, err)
	}
	if len(txs) == 0 {
		return c.Reply("📜 No transactions yet")
	}

	var b strings.Builder
	b.WriteString("📜 Recent transactions\n")
	for _, tx := range txs {
		fmt.Fprintf(&b, "%s %+d %s", tx.CreatedAt.Format("01-02 15:04"), tx.Amount, tx.Category)
		if tx.Description != "" {
			fmt.Fprintf(&b, " (%s)", tx.Description)
		}
		b.WriteByte('\n')
	}
	return c.Reply(b.String())
}

// HandleDaily handles /daily.
func (h *AccountHandler) HandleDaily(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}

	bonus, err := h.bonus.ClaimDailyBonus(context.Background(), a.ID)
	if err != nil {
		return replyErr(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"🎁 Daily bonus: +%d coins\n🔥 Streak: %d day(s)\n💰 Balance: %d coins",
		bonus.Amount, bonus.Streak, bonus.Balance,
	))
}

// HandleRef handles /ref: the invite link and what it has earned.
func (h *AccountHandler) HandleRef(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}

	stats, err := h.accounts.ReferralStats(context.Background(), a.ID)
	if err != nil {
		return replyErr(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"🤝 Invite friends and both of you get a bonus!\n\n%s\n\n👥 Invited: %d\n💰 Earned: %d coins",
		ReferralLink(h.botUsername, a.ID), stats.Count, stats.Earned,
	))
}

// HandleLevels handles /levels.
func (h *AccountHandler) HandleLevels(c tele.Context) error {
	ctx := context.Background()
	a := AccountFrom(c)
	if a == nil {
		return nil
	}

	catalog, err := h.tiers.Catalog(ctx)
	if err != nil {
		return replyErr(c, err)
	}
	status, err := h.tiers.Progress(ctx, a.ID)
	if err != nil {
		return replyErr(c, err)
	}

	var b strings.Builder
	b.WriteString("⭐ Levels\n")
	for _, t := range catalog {
		marker := "  "
		if t.Level == status.Current.Level {
			marker = "👉"
		}
		fmt.Fprintf(&b, "%s %d. %s: luck x%.2f, %d coins\n", marker, t.Level, t.Name, t.Luck, t.Price)
	}
	b.WriteString("\n/upgrade to buy the next level")
	return c.Reply(b.String())
}

// HandleUpgrade handles /upgrade.
func (h *AccountHandler) HandleUpgrade(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}

	up, err := h.tiers.UpgradeTier(context.Background(), a.ID)
	if err != nil {
		return replyErr(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"⭐ Welcome to level %d, %s!\n🍀 Luck x%.2f\n💸 Paid: %d coins\n💰 Balance: %d coins",
		up.Tier.Level, up.Tier.Name, up.Tier.Luck, up.PricePaid, up.Balance,
	))
}

func describeAccount(a *model.Account) string {
	flags := ""
	if a.Admin {
		flags += " [admin]"
	}
	if a.Banned {
		flags += " [banned]"
	}
	return fmt.Sprintf("%s (ID: %d)%s", a.DisplayName(), a.ID, flags)
}
