package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-casino-bot/internal/metrics"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/repository"
)

// apply changes a balance and appends its Transaction inside the caller's
// atomic unit. A debit that would go below zero fails with
// ErrInsufficientFunds and leaves both the balance and the log untouched.
func apply(ctx context.Context, r *repository.Repos, accountID, amount int64, category, description string) (int64, error) {
	balance, err := r.Accounts.AddBalance(ctx, accountID, amount)
	if err != nil {
		return 0, mapRepoErr(err)
	}
	if _, err := r.Transactions.Create(ctx, accountID, amount, category, description); err != nil {
		return 0, err
	}
	return balance, nil
}

func observe(operation string, err error) {
	metrics.LedgerOperations.WithLabelValues(operation, metrics.Result(err, IsExpected)).Inc()
}

// Ledger owns balance mutations and the audit trail.
type Ledger struct {
	store *repository.Store
}

// NewLedger creates a new Ledger.
func NewLedger(store *repository.Store) *Ledger {
	return &Ledger{store: store}
}

// AdjustBalance credits or debits an account with an audit Transaction in
// one atomic unit and returns the new balance.
func (l *Ledger) AdjustBalance(ctx context.Context, accountID, amount int64, category, description string) (int64, error) {
	var balance int64
	err := l.store.InTx(ctx, func(r *repository.Repos) error {
		var err error
		balance, err = apply(ctx, r, accountID, amount, category, description)
		return err
	})
	observe("adjust_balance", err)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// AdminAdjust is AdjustBalance on behalf of an administrator.
func (l *Ledger) AdminAdjust(ctx context.Context, admin model.Admin, accountID, amount int64, reason string) (int64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	if reason == "" {
		reason = "manual adjustment"
	}
	desc := fmt.Sprintf("admin %d: %s", admin.ID, reason)

	balance, err := l.AdjustBalance(ctx, accountID, amount, model.TxAdminAdjust, desc)
	if err != nil {
		return 0, err
	}

	log.Info().
		Int64("admin_id", admin.ID).
		Int64("account_id", accountID).
		Str("operation", "adjust_balance").
		Int64("amount", amount).
		Int64("balance", balance).
		Msg("Admin adjusted balance")

	return balance, nil
}

// GameResult is a finished round to be settled.
type GameResult struct {
	AccountID int64
	GameType  string
	Bet       int64
	Win       int64
	Result    string
}

func (g GameResult) validate() error {
	if g.Bet < 0 || g.Win < 0 {
		return ErrInvalidAmount
	}
	switch g.Result {
	case model.ResultWin, model.ResultLoss, model.ResultDraw:
	default:
		return ErrInvalidResult
	}
	if g.GameType == "" {
		return ErrInvalidResult
	}
	return nil
}

// RecordGameOutcome settles a round: debits the bet, credits any win,
// appends the GameOutcome and bumps lifetime counters, all in one atomic
// unit. A draw returns the stake under the refund category.
func (l *Ledger) RecordGameOutcome(ctx context.Context, g GameResult) (int64, error) {
	if err := g.validate(); err != nil {
		observe("record_game_outcome", err)
		return 0, err
	}

	var balance int64
	err := l.store.InTx(ctx, func(r *repository.Repos) error {
		a, err := r.Accounts.GetByID(ctx, g.AccountID)
		if err != nil {
			return mapRepoErr(err)
		}
		balance = a.Balance

		if g.Bet > 0 {
			balance, err = apply(ctx, r, g.AccountID, -g.Bet, model.TxBet, g.GameType+" bet")
			if err != nil {
				return err
			}
		}
		if g.Win > 0 {
			category := model.TxWin
			if g.Result == model.ResultDraw {
				category = model.TxRefund
			}
			balance, err = apply(ctx, r, g.AccountID, g.Win, category, g.GameType+" "+g.Result)
			if err != nil {
				return err
			}
		}

		outcome := &model.GameOutcome{
			AccountID: g.AccountID,
			GameType:  g.GameType,
			Bet:       g.Bet,
			Win:       g.Win,
			Result:    g.Result,
		}
		if err := r.Outcomes.Create(ctx, outcome); err != nil {
			return err
		}
		return mapRepoErr(r.Accounts.AddGameStats(ctx, g.AccountID, g.Bet, g.Win, g.Result))
	})
	observe("record_game_outcome", err)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Transactions returns an account's most recent Transactions.
func (l *Ledger) Transactions(ctx context.Context, accountID int64, limit int) ([]*model.Transaction, error) {
	return l.store.Transactions.GetByAccountID(ctx, accountID, limit)
}

// GameOutcomes returns an account's most recent rounds.
func (l *Ledger) GameOutcomes(ctx context.Context, accountID int64, limit int) ([]*model.GameOutcome, error) {
	return l.store.Outcomes.GetByAccountID(ctx, accountID, limit)
}

// Reconciliation compares an account's balance with its Transaction sum.
type Reconciliation struct {
	Balance int64
	Sum     int64
}

// Consistent reports whether the balance equals the Transaction sum.
func (r Reconciliation) Consistent() bool { return r.Balance == r.Sum }

// Reconcile reads the balance and the Transaction sum in one snapshot.
func (l *Ledger) Reconcile(ctx context.Context, accountID int64) (Reconciliation, error) {
	var rec Reconciliation
	err := l.store.InTx(ctx, func(r *repository.Repos) error {
		a, err := r.Accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return mapRepoErr(err)
		}
		rec.Balance = a.Balance
		rec.Sum, err = r.Transactions.SumByAccountID(ctx, accountID)
		return err
	})
	return rec, err
}
