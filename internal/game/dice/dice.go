// Package dice implements the single-die game.
package dice

import (
	"fmt"
	"math"

	"telegram-casino-bot/internal/game"
	"telegram-casino-bot/internal/model"
)

// NeutralWinAt is the lowest winning face at luck 1.0.
const NeutralWinAt = 5

// WinMultiplier is the payout on a win, stake included.
const WinMultiplier = 2

// DiceGame rolls one die. Faces at or above the luck-shifted threshold win
// double the bet, the face just below it returns the stake, anything lower
// loses.
type DiceGame struct {
	limits game.BetLimits
}

// New creates a DiceGame with the given limits.
func New(limits game.BetLimits) *DiceGame {
	return &DiceGame{limits: limits}
}

func (d *DiceGame) Name() string    { return "Dice" }
func (d *DiceGame) Command() string { return "dice" }
func (d *DiceGame) Emoji() string   { return "🎲" }
func (d *DiceGame) MinBet() int64   { return d.limits.Min }
func (d *DiceGame) MaxBet() int64   { return d.limits.Max }
func (d *DiceGame) Cooldown() int   { return d.limits.Cooldown }

func (d *DiceGame) Description() string {
	return fmt.Sprintf("Roll one die: %d+ wins x%d, %d returns the bet. Luck lowers the bar.",
		NeutralWinAt, WinMultiplier, NeutralWinAt-1)
}

// ValidateBet checks the bet against the game limits.
func (d *DiceGame) ValidateBet(bet int64) error {
	return d.limits.Validate(bet)
}

// WinThreshold returns the lowest winning face for a luck multiplier.
// It is 7 (nothing wins) for very low luck and 2 for very high luck, so a
// 1 never wins outright.
func WinThreshold(luck float64) int {
	if luck <= 0 || math.IsNaN(luck) {
		return 7
	}
	t := int(math.Ceil(NeutralWinAt / luck))
	return min(max(t, 2), 7)
}

// Score classifies a face for a bet at the given luck.
func Score(value int, bet int64, luck float64) (win int64, result string) {
	winAt := WinThreshold(luck)
	switch {
	case value >= winAt:
		return bet * WinMultiplier, model.ResultWin
	case value == winAt-1:
		return bet, model.ResultDraw
	default:
		return 0, model.ResultLoss
	}
}

// Play scores a die face.
func (d *DiceGame) Play(bet int64, luck float64, value int) (*game.Outcome, error) {
	if err := d.ValidateBet(bet); err != nil {
		return nil, err
	}
	if value < 1 || value > 6 {
		return nil, game.ErrInvalidValue
	}

	win, result := Score(value, bet, luck)

	var description string
	switch result {
	case model.ResultWin:
		description = fmt.Sprintf("🎲 %d\n🎉 You won %d coins!", value, win)
	case model.ResultDraw:
		description = fmt.Sprintf("🎲 %d\n😐 Draw, your bet is returned.", value)
	default:
		description = fmt.Sprintf("🎲 %d\n😢 You lost %d coins.", value, bet)
	}

	return &game.Outcome{
		Win:         win,
		Result:      result,
		Description: description,
		Details: map[string]any{
			"value":  value,
			"win_at": WinThreshold(luck),
		},
	}, nil
}
