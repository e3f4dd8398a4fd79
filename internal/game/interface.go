// Package game defines the casino games and the engine that settles them
// through the ledger.
package game

import "errors"

// Errors shared by all games.
var (
	ErrInvalidBet   = errors.New("bet amount must be positive")
	ErrBetTooLow    = errors.New("bet is below the minimum")
	ErrBetTooHigh   = errors.New("bet exceeds maximum allowed")
	ErrInvalidValue = errors.New("roll value out of range")
	ErrUnknownGame  = errors.New("unknown game")
)

// Outcome is how a single round ended.
type Outcome struct {
	Win         int64  // credited back to the player, stake included; 0 on a loss
	Result      string // model.ResultWin, ResultLoss or ResultDraw
	Description string
	Details     map[string]any
}

// Game is one casino game played on a Telegram animated dice.
type Game interface {
	// Name returns the display name, e.g. "Dice".
	Name() string

	// Command returns the bot command without the slash, e.g. "dice".
	Command() string

	Description() string

	// Emoji is the Telegram dice type rolled for this game.
	Emoji() string

	MinBet() int64
	MaxBet() int64

	// Cooldown is the number of seconds between two rounds of one player.
	Cooldown() int

	ValidateBet(bet int64) error

	// Play scores a Telegram dice value. luck is the player's effective
	// luck multiplier; 1.0 is neutral.
	Play(bet int64, luck float64, value int) (*Outcome, error)
}

// BetLimits is the min/max/cooldown triple shared by the built-in games.
type BetLimits struct {
	Min      int64
	Max      int64
	Cooldown int
}

// Validate checks a bet against the limits. A zero Max means no upper bound.
func (l BetLimits) Validate(bet int64) error {
	switch {
	case bet <= 0:
		return ErrInvalidBet
	case bet < l.Min:
		return ErrBetTooLow
	case l.Max > 0 && bet > l.Max:
		return ErrBetTooHigh
	}
	return nil
}
