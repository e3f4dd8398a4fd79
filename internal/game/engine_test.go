package game_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-casino-bot/internal/game"
	"telegram-casino-bot/internal/game/dice"
	"telegram-casino-bot/internal/game/slot"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/service"
	"telegram-casino-bot/internal/session"
)

type fakeLedger struct {
	mu      sync.Mutex
	balance int64
	settled []service.GameResult
	err     error
}

func (f *fakeLedger) RecordGameOutcome(_ context.Context, g service.GameResult) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.balance < g.Bet {
		return 0, service.ErrInsufficientFunds
	}
	f.balance += g.Win - g.Bet
	f.settled = append(f.settled, g)
	return f.balance, nil
}

func (f *fakeLedger) GetAccount(_ context.Context, id int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != 1 {
		return nil, service.ErrNotFound
	}
	return &model.Account{ID: id, Balance: f.balance}, nil
}

func (f *fakeLedger) EffectiveLuck(context.Context, int64) (float64, error) {
	return 1.0, nil
}

func newEngine(t *testing.T, balance int64) (*game.Engine, *fakeLedger, *session.MemoryStore) {
	t.Helper()
	registry, err := game.NewRegistry(
		dice.New(game.BetLimits{Min: 10, Max: 1000, Cooldown: 3}),
		slot.New(game.BetLimits{Min: 10, Max: 1000, Cooldown: 3}),
	)
	require.NoError(t, err)

	ledger := &fakeLedger{balance: balance}
	sessions := session.NewMemoryStore(time.Minute)
	return game.NewEngine(registry, sessions, ledger, ledger), ledger, sessions
}

func rollFace(v int) game.Roller {
	return func(context.Context, game.Game) (int, error) { return v, nil }
}

func TestEngine_PlaySettles(t *testing.T) {
	engine, ledger, sessions := newEngine(t, 1000)
	ctx := context.Background()

	round, err := engine.Play(ctx, 1, "dice", 100, rollFace(6))
	require.NoError(t, err)
	assert.Equal(t, model.ResultWin, round.Outcome.Result)
	assert.Equal(t, int64(1100), round.Balance)

	round, err = engine.Play(ctx, 1, "dice", 100, rollFace(1))
	require.NoError(t, err)
	assert.Equal(t, model.ResultLoss, round.Outcome.Result)
	assert.Equal(t, int64(1000), round.Balance)

	require.Len(t, ledger.settled, 2)
	assert.Equal(t, service.GameResult{AccountID: 1, GameType: "dice", Bet: 100, Win: 200, Result: model.ResultWin}, ledger.settled[0])

	active, err := sessions.Active(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, active, "the session is closed after settlement")
}

func TestEngine_Rejections(t *testing.T) {
	engine, ledger, _ := newEngine(t, 50)
	ctx := context.Background()

	_, err := engine.Play(ctx, 1, "roulette", 10, rollFace(1))
	assert.ErrorIs(t, err, game.ErrUnknownGame)

	_, err = engine.Play(ctx, 1, "dice", 5000, rollFace(1))
	assert.ErrorIs(t, err, game.ErrBetTooHigh)

	_, err = engine.Play(ctx, 1, "dice", 100, rollFace(6))
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	_, err = engine.Play(ctx, 2, "dice", 10, rollFace(6))
	assert.ErrorIs(t, err, service.ErrNotFound)

	rollErr := errors.New("telegram unavailable")
	_, err = engine.Play(ctx, 1, "dice", 10, func(context.Context, game.Game) (int, error) { return 0, rollErr })
	assert.ErrorIs(t, err, rollErr)

	assert.Empty(t, ledger.settled, "nothing is settled when a round fails")
}

func TestEngine_OneRoundAtATime(t *testing.T) {
	engine, ledger, _ := newEngine(t, 1000)
	ctx := context.Background()

	rolling := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := engine.Play(ctx, 1, "slot", 100, func(context.Context, game.Game) (int, error) {
			close(rolling)
			<-release
			return 64, nil
		})
		done <- err
	}()

	<-rolling
	_, err := engine.Play(ctx, 1, "dice", 100, rollFace(6))
	assert.ErrorIs(t, err, session.ErrActive)

	close(release)
	require.NoError(t, <-done)

	_, err = engine.Play(ctx, 1, "dice", 100, rollFace(6))
	assert.NoError(t, err, "the next round can start once the first settled")
	assert.Len(t, ledger.settled, 2)
}

func TestRegistry(t *testing.T) {
	registry, err := game.NewRegistry(dice.New(game.BetLimits{}), slot.New(game.BetLimits{}))
	require.NoError(t, err)

	assert.Equal(t, 2, registry.Count())
	g, ok := registry.Get("slot")
	require.True(t, ok)
	assert.Equal(t, "Slot Machine", g.Name())

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "dice", list[0].Command())

	_, err = game.NewRegistry(nil)
	assert.Error(t, err)
}
