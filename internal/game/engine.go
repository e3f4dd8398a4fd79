package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/service"
	"telegram-casino-bot/internal/session"
)

// Settler settles a finished round on the ledger.
type Settler interface {
	RecordGameOutcome(ctx context.Context, g service.GameResult) (int64, error)
}

// Players reads what the engine needs to know about an account.
type Players interface {
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	EffectiveLuck(ctx context.Context, id int64) (float64, error)
}

// Roller produces the Telegram dice value for a round, typically by sending
// the game's animated dice to the chat.
type Roller func(ctx context.Context, g Game) (int, error)

// Round is a settled round.
type Round struct {
	Game    Game
	Bet     int64
	Value   int
	Luck    float64
	Outcome *Outcome
	Balance int64
}

// Engine runs a round end to end: session, roll, scoring and settlement.
type Engine struct {
	registry *Registry
	sessions session.Store
	ledger   Settler
	players  Players
}

// NewEngine creates a new Engine.
func NewEngine(registry *Registry, sessions session.Store, ledger Settler, players Players) *Engine {
	return &Engine{
		registry: registry,
		sessions: sessions,
		ledger:   ledger,
		players:  players,
	}
}

// Registry returns the engine's game registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Play runs one round of command for an account. The bet is checked against
// the balance before rolling and debited at settlement together with any
// win, so a failed roll costs nothing. A second round started while one is
// in flight fails with session.ErrActive.
func (e *Engine) Play(ctx context.Context, accountID int64, command string, bet int64, roll Roller) (*Round, error) {
	g, ok := e.registry.Get(command)
	if !ok {
		return nil, ErrUnknownGame
	}
	if err := g.ValidateBet(bet); err != nil {
		return nil, err
	}

	account, err := e.players.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Balance < bet {
		return nil, service.ErrInsufficientFunds
	}

	s, err := e.sessions.Start(ctx, accountID, command, bet)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := e.sessions.Finish(context.WithoutCancel(ctx), s); err != nil {
			log.Warn().Err(err).Int64("account_id", accountID).Str("session_id", s.ID).Msg("Failed to finish game session")
		}
	}()

	luck, err := e.players.EffectiveLuck(ctx, accountID)
	if err != nil {
		return nil, err
	}

	value, err := roll(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("failed to roll %s: %w", command, err)
	}

	outcome, err := g.Play(bet, luck, value)
	if err != nil {
		return nil, err
	}

	balance, err := e.ledger.RecordGameOutcome(ctx, service.GameResult{
		AccountID: accountID,
		GameType:  command,
		Bet:       bet,
		Win:       outcome.Win,
		Result:    outcome.Result,
	})
	if err != nil {
		if !errors.Is(err, service.ErrInsufficientFunds) {
			log.Error().Err(err).Int64("account_id", accountID).Str("game", command).Msg("Failed to settle game round")
		}
		return nil, err
	}

	log.Debug().
		Int64("account_id", accountID).
		Str("game", command).
		Int64("bet", bet).
		Int("value", value).
		Float64("luck", luck).
		Str("result", outcome.Result).
		Int64("win", outcome.Win).
		Msg("Game round settled")

	return &Round{
		Game:    g,
		Bet:     bet,
		Value:   value,
		Luck:    luck,
		Outcome: outcome,
		Balance: balance,
	}, nil
}
