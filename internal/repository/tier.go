package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"telegram-casino-bot/internal/model"
)

// TierRepository handles the tier catalog and per-account tier progress.
type TierRepository struct {
	q Querier
}

// NewTierRepository creates a new TierRepository instance.
func NewTierRepository(q Querier) *TierRepository {
	return &TierRepository{q: q}
}

// Seed upserts the catalog. Existing rows are overwritten so the database
// always mirrors the catalog compiled into the binary.
func (r *TierRepository) Seed(ctx context.Context, tiers []model.Tier) error {
	const query = `
		INSERT INTO tiers (level, name, price, luck, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (level) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price,
		    luck = EXCLUDED.luck, description = EXCLUDED.description
	`

	for _, t := range tiers {
		if _, err := r.q.Exec(ctx, query, t.Level, t.Name, t.Price, t.Luck, t.Description); err != nil {
			return fmt.Errorf("failed to seed tier %d: %w", t.Level, err)
		}
	}
	return nil
}

// List returns the catalog ordered by level.
func (r *TierRepository) List(ctx context.Context) ([]model.Tier, error) {
	const query = `SELECT level, name, price, luck, description FROM tiers ORDER BY level`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}

	tiers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Tier, error) {
		var t model.Tier
		err := row.Scan(&t.Level, &t.Name, &t.Price, &t.Luck, &t.Description)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tiers: %w", err)
	}
	return tiers, nil
}

// Get returns one catalog entry.
func (r *TierRepository) Get(ctx context.Context, level int) (*model.Tier, error) {
	const query = `SELECT level, name, price, luck, description FROM tiers WHERE level = $1`

	var t model.Tier
	err := r.q.QueryRow(ctx, query, level).Scan(&t.Level, &t.Name, &t.Price, &t.Luck, &t.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTierNotFound
		}
		return nil, fmt.Errorf("failed to get tier: %w", err)
	}
	return &t, nil
}

// CreateProgress creates tier 1 progress for an account if it has none.
func (r *TierRepository) CreateProgress(ctx context.Context, accountID int64) error {
	const query = `
		INSERT INTO account_tier_progress (account_id, current_tier, total_spent)
		VALUES ($1, 1, 0)
		ON CONFLICT (account_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("failed to create tier progress: %w", err)
	}
	return nil
}

// GetProgress returns an account's tier progress, creating it lazily.
func (r *TierRepository) GetProgress(ctx context.Context, accountID int64) (*model.TierProgress, error) {
	return r.getProgress(ctx, accountID, false)
}

// GetProgressForUpdate is GetProgress with a row lock held until the
// surrounding transaction ends.
func (r *TierRepository) GetProgressForUpdate(ctx context.Context, accountID int64) (*model.TierProgress, error) {
	return r.getProgress(ctx, accountID, true)
}

func (r *TierRepository) getProgress(ctx context.Context, accountID int64, lock bool) (*model.TierProgress, error) {
	if err := r.CreateProgress(ctx, accountID); err != nil {
		return nil, err
	}

	query := `
		SELECT account_id, current_tier, total_spent, last_upgrade_at
		FROM account_tier_progress
		WHERE account_id = $1
	`
	if lock {
		query += ` FOR UPDATE`
	}

	var p model.TierProgress
	err := r.q.QueryRow(ctx, query, accountID).Scan(&p.AccountID, &p.CurrentTier, &p.TotalSpent, &p.LastUpgradeAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get tier progress: %w", err)
	}
	return &p, nil
}

// Advance moves an account to the given tier, adds the price to the
// cumulative spend and stamps the upgrade time.
func (r *TierRepository) Advance(ctx context.Context, accountID int64, level int, price int64) (*model.TierProgress, error) {
	const query = `
		UPDATE account_tier_progress
		SET current_tier = $2, total_spent = total_spent + $3, last_upgrade_at = NOW()
		WHERE account_id = $1
		RETURNING account_id, current_tier, total_spent, last_upgrade_at
	`

	var p model.TierProgress
	err := r.q.QueryRow(ctx, query, accountID, level, price).Scan(&p.AccountID, &p.CurrentTier, &p.TotalSpent, &p.LastUpgradeAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to advance tier: %w", err)
	}
	return &p, nil
}

// SetLevel overrides the current tier without touching spend or timestamps.
func (r *TierRepository) SetLevel(ctx context.Context, accountID int64, level int) error {
	const query = `UPDATE account_tier_progress SET current_tier = $2 WHERE account_id = $1`

	tag, err := r.q.Exec(ctx, query, accountID, level)
	if err != nil {
		return fmt.Errorf("failed to set tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
