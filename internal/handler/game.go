package handler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"telegram-casino-bot/internal/game"
	"telegram-casino-bot/internal/model"
)

// AnimationDelay is how long the dice animation plays before the result is shown.
var AnimationDelay = 3 * time.Second

const statsRounds = 10

// RoundHistory lists an account's settled rounds.
type RoundHistory interface {
	GameOutcomes(ctx context.Context, accountID int64, limit int) ([]*model.GameOutcome, error)
}

// GameHandler handles game commands.
type GameHandler struct {
	engine    *game.Engine
	history   RoundHistory
	cooldowns sync.Map // "accountID:command" -> time.Time
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(engine *game.Engine, history RoundHistory) *GameHandler {
	return &GameHandler{engine: engine, history: history}
}

// checkCooldown returns the seconds left before the account may play again, 0 if none.
func (h *GameHandler) checkCooldown(accountID int64, command string, cooldownSecs int) int {
	key := fmt.Sprintf("%d:%s", accountID, command)
	if last, ok := h.cooldowns.Load(key); ok {
		remaining := time.Duration(cooldownSecs)*time.Second - time.Since(last.(time.Time))
		if remaining > 0 {
			return int(remaining.Seconds()) + 1
		}
	}
	return 0
}

func (h *GameHandler) setCooldown(accountID int64, command string) {
	h.cooldowns.Store(fmt.Sprintf("%d:%s", accountID, command), time.Now())
}

// HandleDice handles /dice <bet>.
func (h *GameHandler) HandleDice(c tele.Context) error {
	return h.play(c, "dice")
}

// HandleSlot handles /slot <bet>.
func (h *GameHandler) HandleSlot(c tele.Context) error {
	return h.play(c, "slot")
}

func (h *GameHandler) play(c tele.Context, command string) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}
	g, ok := h.engine.Registry().Get(command)
	if !ok {
		return replyErr(c, game.ErrUnknownGame)
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply(fmt.Sprintf("Usage: /%s <bet>\nBets from %d to %d coins", command, g.MinBet(), g.MaxBet()))
	}
	bet, err := ParseCoins(args[0])
	if err != nil {
		return replyErr(c, game.ErrInvalidBet)
	}

	if remaining := h.checkCooldown(a.ID, command, g.Cooldown()); remaining > 0 {
		return c.Reply(fmt.Sprintf("⏰ Please wait %d seconds before playing again", remaining))
	}

	round, err := h.engine.Play(context.Background(), a.ID, command, bet, telegramRoller(c))
	if err != nil {
		return replyErr(c, err)
	}
	h.setCooldown(a.ID, command)

	time.Sleep(AnimationDelay)
	return c.Send(fmt.Sprintf("%s %s\n💰 Balance: %d", a.DisplayName(), round.Outcome.Description, round.Balance))
}

// telegramRoller rolls by sending the game's animated dice to the chat.
// Telegram decides the value.
func telegramRoller(c tele.Context) game.Roller {
	return func(_ context.Context, g game.Game) (int, error) {
		msg, err := c.Bot().Send(c.Recipient(), &tele.Dice{Type: tele.DiceType(g.Emoji())})
		if err != nil {
			return 0, err
		}
		if msg.Dice == nil {
			return 0, fmt.Errorf("telegram returned no dice value")
		}
		return msg.Dice.Value, nil
	}
}

// HandleGames handles /games.
func (h *GameHandler) HandleGames(c tele.Context) error {
	var b strings.Builder
	b.WriteString("🎮 Games\n")
	for _, g := range h.engine.Registry().List() {
		fmt.Fprintf(&b, "\n%s /%s <bet> - %s\n%s\nBets %d-%d", g.Emoji(), g.Command(), g.Name(), g.Description(), g.MinBet(), g.MaxBet())
		if g.Cooldown() > 0 {
			fmt.Fprintf(&b, ", %ds between rounds", g.Cooldown())
		}
		b.WriteByte('\n')
	}
	return c.Reply(b.String())
}

// HandleStats handles /stats: the caller's game record and recent rounds.
func (h *GameHandler) HandleStats(c tele.Context) error {
	a := AccountFrom(c)
	if a == nil {
		return nil
	}
	outcomes, err := h.history.GameOutcomes(context.Background(), a.ID, statsRounds)
	if err != nil {
		return replyErr(c, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎮 %d games: %d wins, %d losses\n💵 Wagered %d, won %d\n", a.GamesPlayed, a.Wins, a.Losses, a.TotalWagered, a.TotalWon)
	for _, o := range outcomes {
		fmt.Fprintf(&b, "\n%s %s bet %d -> %d (%s)", o.CreatedAt.Format("01-02 15:04"), o.GameType, o.Bet, o.Win, o.Result)
	}
	return c.Reply(b.String())
}
