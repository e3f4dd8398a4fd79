package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"telegram-casino-bot/internal/model"
)

const depositColumns = `id, account_id, source, fiat_amount::text, credit, code, proof_ref,
	status, created_at, expires_at, completed_at, resolved_by`

// DepositRepository handles deposit request persistence.
type DepositRepository struct {
	q Querier
}

// NewDepositRepository creates a new DepositRepository instance.
func NewDepositRepository(q Querier) *DepositRepository {
	return &DepositRepository{q: q}
}

func scanDeposit(row pgx.Row) (*model.DepositRequest, error) {
	var (
		d    model.DepositRequest
		fiat string
	)
	err := row.Scan(
		&d.ID,
		&d.AccountID,
		&d.Source,
		&fiat,
		&d.Credit,
		&d.Code,
		&d.ProofRef,
		&d.Status,
		&d.CreatedAt,
		&d.ExpiresAt,
		&d.CompletedAt,
		&d.ResolvedBy,
	)
	if err != nil {
		return nil, err
	}
	if d.FiatAmount, err = decimal.NewFromString(fiat); err != nil {
		return nil, fmt.Errorf("invalid fiat amount %q: %w", fiat, err)
	}
	return &d, nil
}

// Create inserts a pending deposit request. Returns ErrDuplicateCode when the
// confirmation code collides with an existing one.
func (r *DepositRepository) Create(ctx context.Context, d *model.DepositRequest) (*model.DepositRequest, error) {
	query := `
		INSERT INTO deposit_requests (account_id, source, fiat_amount, credit, code, status, created_at, expires_at)
		VALUES ($1, $2, $3::numeric, $4, $5, 'pending', NOW(), $6)
		ON CONFLICT (code) DO NOTHING
		RETURNING ` + depositColumns

	created, err := scanDeposit(r.q.QueryRow(ctx, query,
		d.AccountID, d.Source, d.FiatAmount.String(), d.Credit, d.Code, d.ExpiresAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("failed to create deposit request: %w", err)
	}
	return created, nil
}

// GetByID retrieves a deposit request.
func (r *DepositRepository) GetByID(ctx context.Context, id int64) (*model.DepositRequest, error) {
	return r.get(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1`, id)
}

// GetForUpdate retrieves a deposit request and row-locks it.
func (r *DepositRepository) GetForUpdate(ctx context.Context, id int64) (*model.DepositRequest, error) {
	return r.get(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1 FOR UPDATE`, id)
}

// GetPendingByCode finds a pending request of the given source by its code.
func (r *DepositRepository) GetPendingByCode(ctx context.Context, source model.DepositSource, code string) (*model.DepositRequest, error) {
	return r.get(ctx, `SELECT `+depositColumns+`
		FROM deposit_requests
		WHERE code = $1 AND source = $2 AND status = 'pending'`, code, source)
}

func (r *DepositRepository) get(ctx context.Context, query string, args ...any) (*model.DepositRequest, error) {
	d, err := scanDeposit(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get deposit request: %w", err)
	}
	return d, nil
}

// CodeExists reports whether any deposit request already uses the code.
func (r *DepositRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM deposit_requests WHERE code = $1)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check deposit code: %w", err)
	}
	return exists, nil
}

// AttachProof stores the proof-of-payment reference.
func (r *DepositRepository) AttachProof(ctx context.Context, id int64, proofRef string) error {
	const query = `UPDATE deposit_requests SET proof_ref = $2 WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, proofRef)
	if err != nil {
		return fmt.Errorf("failed to attach proof: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// Resolve moves a request to a terminal status. The caller must hold the row
// lock and have checked that the request is pending.
func (r *DepositRepository) Resolve(ctx context.Context, id int64, status model.RequestStatus, resolvedBy int64) error {
	const query = `
		UPDATE deposit_requests
		SET status = $2, completed_at = NOW(), resolved_by = $3
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.q.Exec(ctx, query, id, status, resolvedBy)
	if err != nil {
		return fmt.Errorf("failed to resolve deposit request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// ListPending returns pending requests, oldest first.
func (r *DepositRepository) ListPending(ctx context.Context, limit int) ([]*model.DepositRequest, error) {
	query := `SELECT ` + depositColumns + `
		FROM deposit_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT $1`

	return r.list(ctx, query, limit)
}

// ListExpiredPending returns pending requests whose expiry is at or before now.
func (r *DepositRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.DepositRequest, error) {
	query := `SELECT ` + depositColumns + `
		FROM deposit_requests
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at ASC, id ASC
		LIMIT $2`

	return r.list(ctx, query, now, limit)
}

// ListByAccount returns an account's requests, newest first.
func (r *DepositRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*model.DepositRequest, error) {
	query := `SELECT ` + depositColumns + `
		FROM deposit_requests
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	return r.list(ctx, query, accountID, limit)
}

func (r *DepositRepository) list(ctx context.Context, query string, args ...any) ([]*model.DepositRequest, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposit requests: %w", err)
	}
	defer rows.Close()

	var out []*model.DepositRequest
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit request: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit requests: %w", err)
	}
	return out, nil
}
