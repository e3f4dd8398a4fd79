package repository

import (
	"context"
	"fmt"

	"telegram-casino-bot/internal/model"
)

// ReferralRepository handles referral links.
type ReferralRepository struct {
	q Querier
}

// NewReferralRepository creates a new ReferralRepository instance.
func NewReferralRepository(q Querier) *ReferralRepository {
	return &ReferralRepository{q: q}
}

// Create records a referral. An account can be referred only once.
func (r *ReferralRepository) Create(ctx context.Context, referrerID, referredID int64, bonusGranted bool) (*model.Referral, error) {
	const query = `
		INSERT INTO referrals (referrer_id, referred_id, bonus_granted, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, referrer_id, referred_id, bonus_granted, created_at
	`

	var ref model.Referral
	err := r.q.QueryRow(ctx, query, referrerID, referredID, bonusGranted).Scan(
		&ref.ID,
		&ref.ReferrerID,
		&ref.ReferredID,
		&ref.BonusGranted,
		&ref.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create referral: %w", err)
	}
	return &ref, nil
}

// CountByReferrer returns how many accounts the referrer invited.
func (r *ReferralRepository) CountByReferrer(ctx context.Context, referrerID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`

	var n int64
	if err := r.q.QueryRow(ctx, query, referrerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return n, nil
}

// GetByReferred returns the referral that brought the account in, if any.
func (r *ReferralRepository) GetByReferred(ctx context.Context, referredID int64) (*model.Referral, error) {
	const query = `
		SELECT id, referrer_id, referred_id, bonus_granted, created_at
		FROM referrals
		WHERE referred_id = $1
	`

	rows, err := r.q.Query(ctx, query, referredID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var ref model.Referral
	if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.BonusGranted, &ref.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan referral: %w", err)
	}
	return &ref, nil
}
