package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"telegram-casino-bot/internal/model"
)

// GameOutcomeRepository stores finished game rounds. Rows are never updated.
type GameOutcomeRepository struct {
	q Querier
}

// NewGameOutcomeRepository creates a new GameOutcomeRepository instance.
func NewGameOutcomeRepository(q Querier) *GameOutcomeRepository {
	return &GameOutcomeRepository{q: q}
}

// Create appends a game outcome.
func (r *GameOutcomeRepository) Create(ctx context.Context, o *model.GameOutcome) error {
	const query = `
		INSERT INTO game_outcomes (account_id, game_type, bet, win, result, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, o.AccountID, o.GameType, o.Bet, o.Win, o.Result).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game outcome: %w", err)
	}
	return nil
}

// GetByAccountID returns an account's most recent rounds, newest first.
func (r *GameOutcomeRepository) GetByAccountID(ctx context.Context, accountID int64, limit int) ([]*model.GameOutcome, error) {
	const query = `
		SELECT id, account_id, game_type, bet, win, result, created_at
		FROM game_outcomes
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get game outcomes: %w", err)
	}

	outcomes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.GameOutcome, error) {
		var o model.GameOutcome
		err := row.Scan(&o.ID, &o.AccountID, &o.GameType, &o.Bet, &o.Win, &o.Result, &o.CreatedAt)
		return &o, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan game outcomes: %w", err)
	}
	return outcomes, nil
}
