package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"telegram-casino-bot/internal/model"
)

const withdrawalColumns = `id, account_id, fiat_amount::text, debit, destination, status,
	created_at, completed_at, resolved_by`

// WithdrawalRepository handles withdrawal request persistence.
type WithdrawalRepository struct {
	q Querier
}

// NewWithdrawalRepository creates a new WithdrawalRepository instance.
func NewWithdrawalRepository(q Querier) *WithdrawalRepository {
	return &WithdrawalRepository{q: q}
}

func scanWithdrawal(row pgx.Row) (*model.WithdrawalRequest, error) {
	var (
		w    model.WithdrawalRequest
		fiat string
	)
	err := row.Scan(
		&w.ID,
		&w.AccountID,
		&fiat,
		&w.Debit,
		&w.Destination,
		&w.Status,
		&w.CreatedAt,
		&w.CompletedAt,
		&w.ResolvedBy,
	)
	if err != nil {
		return nil, err
	}
	if w.FiatAmount, err = decimal.NewFromString(fiat); err != nil {
		return nil, fmt.Errorf("invalid fiat amount %q: %w", fiat, err)
	}
	return &w, nil
}

// Create inserts a pending withdrawal request.
func (r *WithdrawalRepository) Create(ctx context.Context, w *model.WithdrawalRequest) (*model.WithdrawalRequest, error) {
	query := `
		INSERT INTO withdrawal_requests (account_id, fiat_amount, debit, destination, status, created_at)
		VALUES ($1, $2::numeric, $3, $4, 'pending', NOW())
		RETURNING ` + withdrawalColumns

	created, err := scanWithdrawal(r.q.QueryRow(ctx, query, w.AccountID, w.FiatAmount.String(), w.Debit, w.Destination))
	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return created, nil
}

// GetByID retrieves a withdrawal request.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	return r.get(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)
}

// GetForUpdate retrieves a withdrawal request and row-locks it.
func (r *WithdrawalRepository) GetForUpdate(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	return r.get(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *WithdrawalRepository) get(ctx context.Context, query string, id int64) (*model.WithdrawalRequest, error) {
	w, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return w, nil
}

// Resolve moves a pending request to a terminal status.
func (r *WithdrawalRepository) Resolve(ctx context.Context, id int64, status model.RequestStatus, resolvedBy int64) error {
	const query = `
		UPDATE withdrawal_requests
		SET status = $2, completed_at = NOW(), resolved_by = $3
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.q.Exec(ctx, query, id, status, resolvedBy)
	if err != nil {
		return fmt.Errorf("failed to resolve withdrawal request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// ListPending returns pending withdrawals, oldest first.
func (r *WithdrawalRepository) ListPending(ctx context.Context, limit int) ([]*model.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var out []*model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal requests: %w", err)
	}
	return out, nil
}
