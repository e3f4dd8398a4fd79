// Package repository provides the PostgreSQL data access layer.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRequestNotFound     = errors.New("request not found")
	ErrDuplicateCode       = errors.New("confirmation code already in use")
	ErrTierNotFound        = errors.New("tier not found")
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
// Repositories bound to a transaction take part in its atomic unit.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repos groups every repository over one Querier.
type Repos struct {
	Accounts     *AccountRepository
	Transactions *TransactionRepository
	Outcomes     *GameOutcomeRepository
	Tiers        *TierRepository
	Deposits     *DepositRepository
	Withdrawals  *WithdrawalRepository
	Referrals    *ReferralRepository
	Donations    *DonationRepository
}

// NewRepos binds all repositories to q.
func NewRepos(q Querier) *Repos {
	return &Repos{
		Accounts:     NewAccountRepository(q),
		Transactions: NewTransactionRepository(q),
		Outcomes:     NewGameOutcomeRepository(q),
		Tiers:        NewTierRepository(q),
		Deposits:     NewDepositRepository(q),
		Withdrawals:  NewWithdrawalRepository(q),
		Referrals:    NewReferralRepository(q),
		Donations:    NewDonationRepository(q),
	}
}

// Store owns the pool and hands out repositories, either bound to the pool
// for unlocked reads or to a transaction for atomic units.
type Store struct {
	*Repos
	pool *pgxpool.Pool
}

// NewStore creates a Store over the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Repos: NewRepos(pool), pool: pool}
}

// InTx runs fn inside one database transaction. Returning an error from fn
// rolls everything back, so no partial effect is ever committed.
func (s *Store) InTx(ctx context.Context, fn func(r *Repos) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
