package repository

import (
	"context"
	"fmt"

	"telegram-casino-bot/internal/model"
)

// DonationRepository records donations seen on the third-party feed so each
// one is processed at most once.
type DonationRepository struct {
	q Querier
}

// NewDonationRepository creates a new DonationRepository instance.
func NewDonationRepository(q Querier) *DonationRepository {
	return &DonationRepository{q: q}
}

// Insert stores the event and reports whether it was new.
func (r *DonationRepository) Insert(ctx context.Context, e *model.DonationEvent) (bool, error) {
	const query = `
		INSERT INTO donation_events (external_id, username, message, amount, currency, observed_at)
		VALUES ($1, $2, $3, $4::numeric, $5, NOW())
		ON CONFLICT (external_id) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, e.ExternalID, e.Username, e.Message, e.Amount.String(), e.Currency)
	if err != nil {
		return false, fmt.Errorf("failed to store donation event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkMatched links an event to the deposit request it paid for.
func (r *DonationRepository) MarkMatched(ctx context.Context, externalID string, requestID int64) error {
	const query = `UPDATE donation_events SET matched_request_id = $2 WHERE external_id = $1`

	if _, err := r.q.Exec(ctx, query, externalID, requestID); err != nil {
		return fmt.Errorf("failed to mark donation matched: %w", err)
	}
	return nil
}
