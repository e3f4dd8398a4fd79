package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"telegram-casino-bot/internal/model"
)

const accountColumns = `id, username, first_name, balance, games_played, wins, losses,
	total_wagered, total_won, banned, admin, custom_luck, referrer_id,
	last_bonus_date, bonus_streak, created_at, updated_at`

// AccountRepository handles account persistence.
type AccountRepository struct {
	q Querier
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(q Querier) *AccountRepository {
	return &AccountRepository{q: q}
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.FirstName,
		&a.Balance,
		&a.GamesPlayed,
		&a.Wins,
		&a.Losses,
		&a.TotalWagered,
		&a.TotalWon,
		&a.Banned,
		&a.Admin,
		&a.CustomLuck,
		&a.ReferrerID,
		&a.LastBonusDate,
		&a.BonusStreak,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new account with a zero balance. The starting balance is
// credited separately through the ledger so it carries a Transaction.
// Returns ErrAccountExists if the id is taken.
func (r *AccountRepository) Create(ctx context.Context, id int64, username, firstName string, referrerID *int64) (*model.Account, error) {
	query := `
		INSERT INTO accounts (id, username, first_name, balance, referrer_id, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + accountColumns

	a, err := scanAccount(r.q.QueryRow(ctx, query, id, username, firstName, referrerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

// GetByID retrieves an account. Returns ErrAccountNotFound if it does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// GetForUpdate retrieves an account and row-locks it until the surrounding
// transaction ends. Only meaningful on a transaction-bound repository.
func (r *AccountRepository) GetForUpdate(ctx context.Context, id int64) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	a, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return a, nil
}

// Exists reports whether an account with the id exists.
func (r *AccountRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

// AddBalance applies a signed delta as one conditional update and returns the
// new balance. The row is left untouched when the result would be negative,
// in which case ErrInsufficientBalance is returned.
func (r *AccountRepository) AddBalance(ctx context.Context, id int64, delta int64) (int64, error) {
	const query = `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, id, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrAccountNotFound
	}
	return 0, ErrInsufficientBalance
}

// AddGameStats bumps lifetime counters for one finished round.
func (r *AccountRepository) AddGameStats(ctx context.Context, id int64, bet, win int64, result string) error {
	const query = `
		UPDATE accounts
		SET games_played = games_played + 1,
		    wins = wins + CASE WHEN $3 > 0 THEN 1 ELSE 0 END,
		    losses = losses + CASE WHEN $4 = 'loss' THEN 1 ELSE 0 END,
		    total_wagered = total_wagered + $2,
		    total_won = total_won + $3,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, id, bet, win, result)
	if err != nil {
		return fmt.Errorf("failed to update game stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetBanned sets the banned flag.
func (r *AccountRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	return r.setFlag(ctx, `UPDATE accounts SET banned = $2, updated_at = NOW() WHERE id = $1`, id, banned)
}

// SetAdmin sets the admin flag.
func (r *AccountRepository) SetAdmin(ctx context.Context, id int64, admin bool) error {
	return r.setFlag(ctx, `UPDATE accounts SET admin = $2, updated_at = NOW() WHERE id = $1`, id, admin)
}

// SetCustomLuck stores an already-clamped custom luck multiplier.
func (r *AccountRepository) SetCustomLuck(ctx context.Context, id int64, luck float64) error {
	return r.setFlag(ctx, `UPDATE accounts SET custom_luck = $2, updated_at = NOW() WHERE id = $1`, id, luck)
}

// UpdateDisplay refreshes display metadata.
func (r *AccountRepository) UpdateDisplay(ctx context.Context, id int64, username, firstName string) error {
	const query = `
		UPDATE accounts
		SET username = $2, first_name = $3, updated_at = NOW()
		WHERE id = $1 AND (username <> $2 OR first_name <> $3)
	`

	if _, err := r.q.Exec(ctx, query, id, username, firstName); err != nil {
		return fmt.Errorf("failed to update display: %w", err)
	}
	return nil
}

// SetBonusState stores the daily bonus claim date and streak.
func (r *AccountRepository) SetBonusState(ctx context.Context, id int64, date time.Time, streak int) error {
	return r.setFlag(ctx,
		`UPDATE accounts SET last_bonus_date = $2, bonus_streak = $3, updated_at = NOW() WHERE id = $1`,
		id, date, streak)
}

func (r *AccountRepository) setFlag(ctx context.Context, query string, args ...any) error {
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// TopByBalance returns the richest accounts, banned ones excluded.
func (r *AccountRepository) TopByBalance(ctx context.Context, limit int) ([]*model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE NOT banned
		ORDER BY balance DESC, id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}
