package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"telegram-casino-bot/internal/model"
)

// TransactionRepository handles the append-only balance audit log.
type TransactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(q Querier) *TransactionRepository {
	return &TransactionRepository{q: q}
}

// Create appends a transaction row.
func (r *TransactionRepository) Create(ctx context.Context, accountID, amount int64, category, description string) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (account_id, amount, category, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, account_id, amount, category, description, created_at
	`

	var tx model.Transaction
	err := r.q.QueryRow(ctx, query, accountID, amount, category, description).Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Amount,
		&tx.Category,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return &tx, nil
}

// GetByAccountID returns the newest transactions of an account first.
func (r *TransactionRepository) GetByAccountID(ctx context.Context, accountID int64, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT id, account_id, amount, category, description, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	transactions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Transaction, error) {
		var tx model.Transaction
		err := row.Scan(&tx.ID, &tx.AccountID, &tx.Amount, &tx.Category, &tx.Description, &tx.CreatedAt)
		return &tx, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}

	return transactions, nil
}

// SumByAccountID returns the sum of all transaction amounts of an account.
// Equals the account balance when the ledger is consistent.
func (r *TransactionRepository) SumByAccountID(ctx context.Context, accountID int64) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM transactions WHERE account_id = $1`

	var sum int64
	if err := r.q.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// SumByCategory returns the sum of an account's transactions in one category
// whose description starts with descPrefix. An empty prefix matches all.
func (r *TransactionRepository) SumByCategory(ctx context.Context, accountID int64, category, descPrefix string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)::BIGINT
		FROM transactions
		WHERE account_id = $1 AND category = $2 AND starts_with(description, $3)
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, accountID, category, descPrefix).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// GetDailyNet ranks accounts by net game result (bets plus wins) over the
// day starting at dayStart. Positive rows are winners, negative rows losers.
func (r *TransactionRepository) GetDailyNet(ctx context.Context, dayStart time.Time, limit int, winners bool) ([]*model.DailyRank, error) {
	order := "DESC"
	having := "SUM(t.amount) > 0"
	if !winners {
		order = "ASC"
		having = "SUM(t.amount) < 0"
	}

	query := fmt.Sprintf(`
		SELECT t.account_id, a.username, a.first_name, SUM(t.amount)::BIGINT AS net
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.category IN ('bet', 'win', 'refund')
		  AND t.created_at >= $1
		  AND t.created_at < $2
		GROUP BY t.account_id, a.username, a.first_name
		HAVING %s
		ORDER BY net %s
		LIMIT $3
	`, having, order)

	rows, err := r.q.Query(ctx, query, dayStart, dayStart.Add(24*time.Hour), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily ranking: %w", err)
	}

	ranks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.DailyRank, error) {
		var rank model.DailyRank
		err := row.Scan(&rank.AccountID, &rank.Username, &rank.FirstName, &rank.Net)
		return &rank, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily ranking: %w", err)
	}

	return ranks, nil
}
