package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-casino-bot/internal/config"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/service"
)

// PaymentHandler handles deposits and withdrawals on the user side.
type PaymentHandler struct {
	payments *service.PaymentService
	cfg      config.PaymentsConfig
	donation config.DonationConfig
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, cfg config.PaymentsConfig, donation config.DonationConfig) *PaymentHandler {
	return &PaymentHandler{payments: payments, cfg: cfg, donation: donation}
}

// HandleDeposit handles /deposit <amount>: a bank-transfer deposit.
func (h *PaymentHandler) HandleDeposit(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply(fmt.Sprintf("Usage: /deposit <amount>\nMinimum: %s", h.cfg.MinDeposit))
	}
	fiat, err := ParseFiat(args[0])
	if err != nil {
		return replyErr(c, err)
	}

	d, err := h.payments.CreateDeposit(context.Background(), a.ID, fiat)
	if err != nil {
		return replyErr(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"🏦 Deposit #%d\n\n"+
			"Transfer exactly %s to:\n%s\n\n"+
			"Put this code in the payment comment: %s\n"+
			"You will receive %d coins.\n\n"+
			"After paying, send a screenshot with the caption:\n/paid %d\n"+
			"⌛ Valid until %s",
		d.ID, d.FiatAmount.StringFixed(2), h.cfg.CardDetails, d.Code, d.Credit, d.ID,
		d.ExpiresAt.Format("2006-01-02 15:04 MST"),
	))
}

// HandleDonate handles /donate <amount>: a deposit paid on the donation page.
func (h *PaymentHandler) HandleDonate(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}
	if h.donation.PageURL == "" {
		return c.Reply("❌ Donation payments are not available")
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply(fmt.Sprintf("Usage: /donate <amount>\nMinimum: %s", h.cfg.MinDeposit))
	}
	fiat, err := ParseFiat(args[0])
	if err != nil {
		return replyErr(c, err)
	}

	d, err := h.payments.CreateDonationDeposit(context.Background(), a.ID, fiat)
	if err != nil {
		return replyErr(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"💝 Deposit #%d\n\n"+
			"Donate at least %s on %s\n"+
			"and put this code in your message: %s\n\n"+
			"You will receive %d coins automatically once the donation arrives.\n"+
			"⌛ Valid until %s",
		d.ID, d.FiatAmount.StringFixed(2), h.donation.PageURL, d.Code, d.Credit,
		d.ExpiresAt.Format("2006-01-02 15:04 MST"),
	))
}

// HandleProof handles a photo or document captioned "/paid <id>".
func (h *PaymentHandler) HandleProof(c tele.Context) error {
	a := AccountFrom(c)
	msg := c.Message()
	if a == nil || msg == nil {
		return nil
	}

	requestID, ok := parsePaidCaption(msg.Caption)
	if !ok {
		return nil
	}

	var fileID string
	switch {
	case msg.Photo != nil:
		fileID = msg.Photo.FileID
	case msg.Document != nil:
		fileID = msg.Document.FileID
	default:
		return c.Reply("❌ Please attach a screenshot of the payment")
	}

	d, err := h.payments.AttachDepositProof(context.Background(), a.ID, requestID, fileID)
	if err != nil {
		return replyErr(c, err)
	}
	return c.Reply(fmt.Sprintf("📎 Thanks! Deposit #%d is waiting for review.", d.ID))
}

// HandlePaid handles a bare /paid without an attachment.
func (h *PaymentHandler) HandlePaid(c tele.Context) error {
	return c.Reply("📎 Send the payment screenshot as a photo with the caption /paid <request id>")
}

func parsePaidCaption(caption string) (int64, bool) {
	fields := strings.Fields(caption)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "/paid") {
		return 0, false
	}
	id, err := ParseID(fields[1])
	return id, err == nil
}

// HandleDeposits handles /deposits: the caller's own deposit requests.
func (h *PaymentHandler) HandleDeposits(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}

	list, err := h.payments.AccountDeposits(context.Background(), a.ID, historyLimit)
	if err != nil {
		return replyErr(c, err)
	}
	if len(list) == 0 {
		return c.Reply("🏦 No deposits yet")
	}

	var b strings.Builder
	b.WriteString("🏦 Your deposits\n")
	for _, d := range list {
		fmt.Fprintf(&b, "#%d %s -> %d coins, %s (%s)\n", d.ID, d.FiatAmount.StringFixed(2), d.Credit, statusLabel(d.Status), d.Source)
	}
	return c.Reply(b.String())
}

// HandleWithdraw handles /withdraw <amount> <destination...>. The coins are
// reserved immediately and returned if an admin rejects the request.
func (h *PaymentHandler) HandleWithdraw(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply(fmt.Sprintf("Usage: /withdraw <amount> <card or wallet>\nMinimum: %s", h.cfg.MinWithdraw))
	}
	fiat, err := ParseFiat(args[0])
	if err != nil {
		return replyErr(c, err)
	}

	w, err := h.payments.CreateWithdrawal(context.Background(), a.ID, fiat, strings.Join(args[1:], " "))
	if err != nil {
		return replyErr(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"💸 Withdrawal #%d\n%d coins reserved for %s to %s.\nAn admin will process it soon.",
		w.ID, w.Debit, w.FiatAmount.StringFixed(2), w.Destination,
	))
}

func statusLabel(s model.RequestStatus) string {
	switch s {
	case model.StatusPending:
		return "⏳ pending"
	case model.StatusCompleted:
		return "✅ completed"
	case model.StatusRejected:
		return "❌ rejected"
	}
	return string(s)
}
