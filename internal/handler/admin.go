package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/service"
)

const pendingLimit = 20

// AdminHandler handles admin commands. Every handler runs behind the admin
// middleware, which has already put the caller's capability on the context.
type AdminHandler struct {
	accounts *service.AccountService
	ledger   *service.Ledger
	tiers    *service.TierService
	payments *service.PaymentService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts *service.AccountService, ledger *service.Ledger, tiers *service.TierService, payments *service.PaymentService) *AdminHandler {
	return &AdminHandler{accounts: accounts, ledger: ledger, tiers: tiers, payments: payments}
}

// notify tells an account about a change made on its behalf. Delivery
// failures, e.g. a user who blocked the bot, are only logged.
func notify(c tele.Context, accountID int64, text string) {
	if _, err := c.Bot().Send(&tele.User{ID: accountID}, text); err != nil {
		log.Debug().Err(err).Int64("account_id", accountID).Msg("Failed to notify account")
	}
}

// HandleAdjust handles /adjust <id> <+/-amount> [reason].
func (h *AdminHandler) HandleAdjust(c tele.Context) error {
	admin, _ := AdminFrom(c)
	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Usage: /adjust <user_id> <+/-amount> [reason]")
	}
	id, err := ParseID(args[0])
	if err != nil {
		return c.Reply("❌ Invalid id")
	}
	amount, err := ParseSignedCoins(args[1])
	if err != nil {
		return replyErr(c, err)
	}

	balance, err := h.ledger.AdminAdjust(context.Background(), admin, id, amount, strings.Join(args[2:], " "))
	if err != nil {
		return replyErr(c, err)
	}

	notify(c, id, fmt.Sprintf("💰 Your balance was adjusted by %+d coins. Balance: %d", amount, balance))
	return c.Reply(fmt.Sprintf("✅ User %d: %+d coins, balance %d", id, amount, balance))
}

// HandleUser handles /user <id>.
func (h *AdminHandler) HandleUser(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /user <user_id>")
	}
	id, err := ParseID(args[0])
	if err != nil {
		return c.Reply("❌ Invalid id")
	}

	a, err := h.accounts.GetAccount(ctx, id)
	if err != nil {
		return replyErr(c, err)
	}
	status, err := h.tiers.Progress(ctx, id)
	if err != nil {
		return replyErr(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"👤 %s\n💰 Balance: %d\n⭐ Level %d (spent %d)\n🍀 Custom luck x%.2f\n🎮 %d games, wagered %d, won %d\n📅 Joined %s",
		describeAccount(a), a.Balance, status.Current.Level, status.Progress.TotalSpent, a.CustomLuck,
		a.GamesPlayed, a.TotalWagered, a.TotalWon, a.CreatedAt.Format("2006-01-02"),
	))
}

// HandleAudit handles /audit <id>: compares the balance with its transaction log.
func (h *AdminHandler) HandleAudit(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /audit <user_id>")
	}
	id, err := ParseID(args[0])
	if err != nil {
		return c.Reply("❌ Invalid id")
	}

	rec, err := h.ledger.Reconcile(context.Background(), id)
	if err != nil {
		return replyErr(c, err)
	}
	if !rec.Consistent() {
		log.Error().Int64("account_id", id).Int64("balance", rec.Balance).Int64("sum", rec.Sum).Msg("Ledger mismatch")
		return c.Reply(fmt.Sprintf("🚨 User %d: balance %d, transactions sum to %d", id, rec.Balance, rec.Sum))
	}
	return c.Reply(fmt.Sprintf("✅ User %d: balance %d matches the transaction log", id, rec.Balance))
}

// accountFlag runs a flag change on /<cmd> <id>.
func (h *AdminHandler) accountFlag(c tele.Context, usage, done string, op func(context.Context, model.Admin, int64) error) error {
	admin, _ := AdminFrom(c)
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: " + usage)
	}
	id, err := ParseID(args[0])
	if err != nil {
		return c.Reply("❌ Invalid id")
	}
	if err := op(context.Background(), admin, id); err != nil {
		return replyErr(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ User %d %s", id, done))
}

// HandleBan handles /ban <id>.
func (h *AdminHandler) HandleBan(c tele.Context) error {
	return h.accountFlag(c, "/ban <user_id>", "banned", h.accounts.BanAccount)
}

// HandleUnban handles /unban <id>.
func (h *AdminHandler) HandleUnban(c tele.Context) error {
	return h.accountFlag(c, "/unban <user_id>", "unbanned", h.accounts.UnbanAccount)
}

// HandleSetAdmin handles /setadmin <id>.
func (h *AdminHandler) HandleSetAdmin(c tele.Context) error {
	return h.accountFlag(c, "/setadmin <user_id>", "is now an admin", h.accounts.SetAdmin)
}

// HandleRemoveAdmin handles /rmadmin <id>.
func (h *AdminHandler) HandleRemoveAdmin(c tele.Context) error {
	return h.accountFlag(c, "/rmadmin <user_id>", "is no longer an admin", h.accounts.RemoveAdmin)
}

// HandleResetLuck handles /resetluck <id>.
func (h *AdminHandler) HandleResetLuck(c tele.Context) error {
	return h.accountFlag(c, "/resetluck <user_id>", "luck reset", h.accounts.ResetCustomLuck)
}

// HandleSetLuck handles /setluck <id> <multiplier>. Out-of-range values are clamped.
func (h *AdminHandler) HandleSetLuck(c tele.Context) error {
	admin, _ := AdminFrom(c)
	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Usage: /setluck <user_id> <multiplier>")
	}
	id, err := ParseID(args[0])
	if err != nil {
		return c.Reply("❌ Invalid id")
	}
	luck, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return c.Reply("❌ Invalid multiplier")
	}

	stored, err := h.accounts.SetCustomLuck(context.Background(), admin, id, luck)
	if err != nil {
		return replyErr(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ User %d custom luck x%.2f", id, stored))
}

// HandleSetTier handles /settier <id> <level>.
func (h *AdminHandler) HandleSetTier(c tele.Context) error {
	admin, _ := AdminFrom(c)
	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Usage: /settier <user_id> <level>")
	}
	id, err := ParseID(args[0])
	if err != nil {
		return c.Reply("❌ Invalid id")
	}
	level, err := strconv.Atoi(args[1])
	if err != nil {
		return replyErr(c, service.ErrInvalidTier)
	}

	if err := h.tiers.SetTier(context.Background(), admin, id, level); err != nil {
		return replyErr(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ User %d is now level %d", id, level))
}

// HandlePendingDeposits handles /pending_deposits.
func (h *AdminHandler) HandlePendingDeposits(c tele.Context) error {
	list, err := h.payments.ListPendingDeposits(context.Background(), pendingLimit)
	if err != nil {
		return replyErr(c, err)
	}
	if len(list) == 0 {
		return c.Reply("✅ No pending deposits")
	}

	var b strings.Builder
	b.WriteString("🏦 Pending deposits\n")
	for _, d := range list {
		proof := "no proof"
		if d.ProofRef != nil {
			proof = "proof attached"
		}
		fmt.Fprintf(&b, "#%d user %d: %s -> %d coins, code %s, %s, %s", d.ID, d.AccountID,
			d.FiatAmount.StringFixed(2), d.Credit, d.Code, d.Source, proof)
		if d.Expired(time.Now()) {
			b.WriteString(", expired")
		}
		b.WriteByte('\n')
	}
	b.WriteString("\n/proof <id>, /confirm_deposit <id>, /reject_deposit <id>")
	return c.Reply(b.String())
}

// HandleShowProof handles /proof <id>: forwards the attached screenshot.
func (h *AdminHandler) HandleShowProof(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /proof <request_id>")
	}
	id, err := ParseID(args[0])
	if err != nil {
		return c.Reply("❌ Invalid id")
	}

	d, err := h.payments.GetDeposit(context.Background(), id)
	if err != nil {
		return replyErr(c, err)
	}
	if d.ProofRef == nil {
		return c.Reply(fmt.Sprintf("Deposit #%d has no proof attached", d.ID))
	}
	caption := fmt.Sprintf("Deposit #%d, code %s, %s", d.ID, d.Code, d.FiatAmount.StringFixed(2))
	file := tele.File{FileID: *d.ProofRef}

	// Proofs arrive as photos or documents and Telegram rejects a file id
	// sent as the wrong kind.
	if err := c.Reply(&tele.Photo{File: file, Caption: caption}); err == nil {
		return nil
	}
	return c.Reply(&tele.Document{File: file, Caption: caption})
}

// HandleConfirmDeposit handles /confirm_deposit <id>. Donation deposits
// go through the same command.
func (h *AdminHandler) HandleConfirmDeposit(c tele.Context) error {
	return h.resolveDeposit(c, "/confirm_deposit <request_id>", true)
}

// HandleRejectDeposit handles /reject_deposit <id>.
func (h *AdminHandler) HandleRejectDeposit(c tele.Context) error {
	return h.resolveDeposit(c, "/reject_deposit <request_id>", false)
}

func (h *AdminHandler) resolveDeposit(c tele.Context, usage string, confirm bool) error {
	ctx := context.Background()
	admin, _ := AdminFrom(c)
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: " + usage)
	}
	id, err := ParseID(args[0])
	if err != nil {
		return c.Reply("❌ Invalid id")
	}

	var d *model.DepositRequest
	if confirm {
		d, err = h.payments.ConfirmDeposit(ctx, admin, id)
	} else {
		d, err = h.payments.RejectDeposit(ctx, admin, id)
	}
	if err != nil {
		return replyErr(c, err)
	}

	if confirm {
		notify(c, d.AccountID, fmt.Sprintf("✅ Deposit #%d confirmed: +%d coins", d.ID, d.Credit))
		return c.Reply(fmt.Sprintf("✅ Deposit #%d confirmed, user %d credited %d coins", d.ID, d.AccountID, d.Credit))
	}
	notify(c, d.AccountID, fmt.Sprintf("❌ Deposit #%d was rejected", d.ID))
	return c.Reply(fmt.Sprintf("❌ Deposit #%d rejected", d.ID))
}

// HandlePendingWithdrawals handles /pending_withdrawals.
func (h *AdminHandler) HandlePendingWithdrawals(c tele.Context) error {
	list, err := h.payments.ListPendingWithdrawals(context.Background(), pendingLimit)
	if err != nil {
		return replyErr(c, err)
	}
	if len(list) == 0 {
		return c.Reply("✅ No pending withdrawals")
	}

	var b strings.Builder
	b.WriteString("💸 Pending withdrawals\n")
	for _, w := range list {
		fmt.Fprintf(&b, "#%d user %d: %d coins -> %s to %s\n", w.ID, w.AccountID, w.Debit, w.FiatAmount.StringFixed(2), w.Destination)
	}
	b.WriteString("\n/confirm_withdrawal <id>, /reject_withdrawal <id>")
	return c.Reply(b.String())
}

// HandleConfirmWithdrawal handles /confirm_withdrawal <id> once the payout was sent.
func (h *AdminHandler) HandleConfirmWithdrawal(c tele.Context) error {
	return h.resolveWithdrawal(c, "/confirm_withdrawal <request_id>", true)
}

// HandleRejectWithdrawal handles /reject_withdrawal <id>. The coins go back.
func (h *AdminHandler) HandleRejectWithdrawal(c tele.Context) error {
	return h.resolveWithdrawal(c, "/reject_withdrawal <request_id>", false)
}

func (h *AdminHandler) resolveWithdrawal(c tele.Context, usage string, confirm bool) error {
	ctx := context.Background()
	admin, _ := AdminFrom(c)
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: " + usage)
	}
	id, err := ParseID(args[0])
	if err != nil {
		return c.Reply("❌ Invalid id")
	}

	var w *model.WithdrawalRequest
	if confirm {
		w, err = h.payments.ConfirmWithdrawal(ctx, admin, id)
	} else {
		w, err = h.payments.RejectWithdrawal(ctx, admin, id)
	}
	if err != nil {
		return replyErr(c, err)
	}

	if confirm {
		notify(c, w.AccountID, fmt.Sprintf("✅ Withdrawal #%d of %s has been paid out", w.ID, w.FiatAmount.StringFixed(2)))
		return c.Reply(fmt.Sprintf("✅ Withdrawal #%d completed", w.ID))
	}
	notify(c, w.AccountID, fmt.Sprintf("❌ Withdrawal #%d was rejected, %d coins returned", w.ID, w.Debit))
	return c.Reply(fmt.Sprintf("❌ Withdrawal #%d rejected, %d coins refunded to user %d", w.ID, w.Debit, w.AccountID))
}
