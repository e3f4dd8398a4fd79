// Package slot implements the slot machine game on Telegram's 🎰 dice.
package slot

import (
	"fmt"

	"telegram-casino-bot/internal/game"
	"telegram-casino-bot/internal/model"
)

// Reel symbols, in the order Telegram encodes them.
const (
	SymbolBAR   = 1
	SymbolGrape = 2
	SymbolLemon = 3
	SymbolSeven = 4
)

// SymbolNames maps a symbol to its display text.
var SymbolNames = map[int]string{
	SymbolBAR:   "BAR",
	SymbolGrape: "🍇",
	SymbolLemon: "🍋",
	SymbolSeven: "7️⃣",
}

// Three-of-a-kind multipliers at neutral luck, stake included.
const (
	TripleMultiplier = 5
	SevenMultiplier  = 10
)

// SlotGame pays on three matching reels, returns the stake on two and
// loses otherwise. Luck scales the three-of-a-kind payout.
type SlotGame struct {
	limits game.BetLimits
}

// New creates a SlotGame with the given limits.
func New(limits game.BetLimits) *SlotGame {
	return &SlotGame{limits: limits}
}

func (s *SlotGame) Name() string    { return "Slot Machine" }
func (s *SlotGame) Command() string { return "slot" }
func (s *SlotGame) Emoji() string   { return "🎰" }
func (s *SlotGame) MinBet() int64   { return s.limits.Min }
func (s *SlotGame) MaxBet() int64   { return s.limits.Max }
func (s *SlotGame) Cooldown() int   { return s.limits.Cooldown }

func (s *SlotGame) Description() string {
	return fmt.Sprintf("Three of a kind pays x%d (777 pays x%d), two of a kind returns the bet.",
		TripleMultiplier, SevenMultiplier)
}

// ValidateBet checks the bet against the game limits.
func (s *SlotGame) ValidateBet(bet int64) error {
	return s.limits.Validate(bet)
}

// DecodeSlot decodes a slot value (1-64) into three symbols (1-4 each).
// value = left + (middle-1)*4 + (right-1)*16
func DecodeSlot(slotValue int) (left, middle, right int) {
	value := slotValue - 1
	left = (value % 4) + 1
	middle = ((value / 4) % 4) + 1
	right = (value / 16) + 1
	return left, middle, right
}

// EncodeSlot is the inverse of DecodeSlot.
func EncodeSlot(left, middle, right int) int {
	return left + (middle-1)*4 + (right-1)*16
}

// Score classifies three reels for a bet at the given luck. A jackpot never
// pays less than the stake back plus one coin.
func Score(left, middle, right int, bet int64, luck float64) (win int64, result string) {
	if left == middle && middle == right {
		mult := int64(TripleMultiplier)
		if left == SymbolSeven {
			mult = SevenMultiplier
		}
		win = int64(float64(bet*mult) * luck)
		return max(win, bet+1), model.ResultWin
	}
	if left == middle || middle == right || left == right {
		return bet, model.ResultDraw
	}
	return 0, model.ResultLoss
}

// Play scores a slot value.
func (s *SlotGame) Play(bet int64, luck float64, value int) (*game.Outcome, error) {
	if err := s.ValidateBet(bet); err != nil {
		return nil, err
	}
	if value < 1 || value > 64 {
		return nil, game.ErrInvalidValue
	}

	left, middle, right := DecodeSlot(value)
	win, result := Score(left, middle, right, bet, luck)

	reels := fmt.Sprintf("%s %s %s", SymbolNames[left], SymbolNames[middle], SymbolNames[right])
	var description string
	switch result {
	case model.ResultWin:
		description = fmt.Sprintf("🎰 %s\n🎊 JACKPOT! You won %d coins!", reels, win)
	case model.ResultDraw:
		description = fmt.Sprintf("🎰 %s\n😐 Two of a kind, your bet is returned.", reels)
	default:
		description = fmt.Sprintf("🎰 %s\n😢 No match. You lost %d coins.", reels, bet)
	}

	return &game.Outcome{
		Win:         win,
		Result:      result,
		Description: description,
		Details: map[string]any{
			"slot_value": value,
			"left":       left,
			"middle":     middle,
			"right":      right,
		},
	}, nil
}
