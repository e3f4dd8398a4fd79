package service

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"telegram-casino-bot/internal/config"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/pkg/db"
	"telegram-casino-bot/internal/repository"
	"telegram-casino-bot/internal/tier"
)

var admin = model.Admin{ID: 999}

type testEnv struct {
	store    *repository.Store
	ledger   *Ledger
	accounts *AccountService
	tiers    *TierService
	payments *PaymentService
	bonus    *BonusService
	ranking  *RankingService
}

func checkDockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// newTestEnv wires every service over a fresh PostgreSQL container.
// Skips the test if Docker is not available.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))

	store := repository.NewStore(pool)
	env := &testEnv{
		store:    store,
		ledger:   NewLedger(store),
		accounts: NewAccountService(store, config.LedgerConfig{StartBalance: 1000, ReferrerBonus: 100, ReferredBonus: 50}, nil),
		tiers:    NewTierService(store),
		bonus:    NewBonusService(store, config.DailyConfig{Base: 100, Increment: 50}, time.UTC),
		ranking:  NewRankingService(store, time.UTC),
	}
	require.NoError(t, env.tiers.Seed(ctx, tier.Catalog))

	env.payments, err = NewPaymentService(store,
		config.PaymentsConfig{
			DepositRate: "10", WithdrawRate: "10",
			MinDeposit: "1", MinWithdraw: "1",
			DepositExpiry: 24 * time.Hour,
		},
		config.DonationConfig{AutoConfirm: true},
	)
	require.NoError(t, err)
	return env
}

func (e *testEnv) register(t *testing.T, id int64, referrer *int64) *model.Account {
	t.Helper()
	a, err := e.accounts.RegisterAccount(context.Background(), Registration{AccountID: id, Username: "user", ReferrerID: referrer})
	require.NoError(t, err)
	return a
}

func (e *testEnv) requireReconciled(t *testing.T, id int64) int64 {
	t.Helper()
	rec, err := e.ledger.Reconcile(context.Background(), id)
	require.NoError(t, err)
	require.True(t, rec.Consistent(), "balance %d != transaction sum %d", rec.Balance, rec.Sum)
	require.GreaterOrEqual(t, rec.Balance, int64(0))
	return rec.Balance
}

func TestRegisterAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.register(t, 1, nil)
	assert.Equal(t, int64(1000), a.Balance)
	assert.Equal(t, int64(1000), env.requireReconciled(t, 1))

	status, err := env.tiers.Progress(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Progress.CurrentTier)
	assert.Equal(t, int64(0), status.Progress.TotalSpent)

	_, err = env.accounts.RegisterAccount(ctx, Registration{AccountID: 1})
	assert.ErrorIs(t, err, ErrDuplicateRegistration)
	assert.Equal(t, int64(1000), env.requireReconciled(t, 1))
}

func TestRegisterAccount_WithReferrer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, 1, nil)
	referrer := int64(1)
	b := env.register(t, 2, &referrer)

	assert.Equal(t, int64(1050), b.Balance)
	require.NotNil(t, b.ReferrerID)
	assert.Equal(t, int64(1100), env.requireReconciled(t, 1))
	assert.Equal(t, int64(1050), env.requireReconciled(t, 2))

	ref, err := env.store.Referrals.GetByReferred(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.True(t, ref.BonusGranted)

	bonusTx := 0
	for _, id := range []int64{1, 2} {
		txs, err := env.ledger.Transactions(ctx, id, 10)
		require.NoError(t, err)
		for _, tx := range txs {
			if tx.Category == model.TxReferralBonus {
				bonusTx++
			}
		}
	}
	assert.Equal(t, 2, bonusTx)

	stats, err := env.accounts.ReferralStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count)
	assert.Equal(t, int64(100), stats.Earned)
}

func TestRegisterAccount_UnknownReferrerIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ghost := int64(404)
	a := env.register(t, 1, &ghost)
	assert.Equal(t, int64(1000), a.Balance)
	assert.Nil(t, a.ReferrerID)

	self := int64(2)
	b := env.register(t, 2, &self)
	assert.Equal(t, int64(1000), b.Balance)

	ref, err := env.store.Referrals.GetByReferred(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestAdjustBalance_InsufficientFundsLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	before, err := env.ledger.Transactions(ctx, 1, 100)
	require.NoError(t, err)

	_, err = env.ledger.AdjustBalance(ctx, 1, -1500, model.TxBet, "too big")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	after, err := env.ledger.Transactions(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, int64(1000), env.requireReconciled(t, 1))

	_, err = env.ledger.AdjustBalance(ctx, 404, 10, model.TxAdminAdjust, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustBalance_ConcurrentDebits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.ledger.AdjustBalance(ctx, 1, -100, model.TxBet, "race")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(0), env.requireReconciled(t, 1))
}

func TestAdminAdjust(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	bal, err := env.ledger.AdminAdjust(ctx, admin, 1, 250, "compensation")
	require.NoError(t, err)
	assert.Equal(t, int64(1250), bal)

	_, err = env.ledger.AdminAdjust(ctx, admin, 1, 0, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	txs, err := env.ledger.Transactions(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.TxAdminAdjust, txs[0].Category)
	assert.Contains(t, txs[0].Description, "compensation")
}

func TestRecordGameOutcome(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	bal, err := env.ledger.RecordGameOutcome(ctx, GameResult{AccountID: 1, GameType: "dice", Bet: 100, Win: 250, Result: model.ResultWin})
	require.NoError(t, err)
	assert.Equal(t, int64(1150), bal)

	bal, err = env.ledger.RecordGameOutcome(ctx, GameResult{AccountID: 1, GameType: "dice", Bet: 100, Result: model.ResultLoss})
	require.NoError(t, err)
	assert.Equal(t, int64(1050), bal)

	_, err = env.ledger.RecordGameOutcome(ctx, GameResult{AccountID: 1, GameType: "dice", Bet: 5000, Win: 10000, Result: model.ResultWin})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = env.ledger.RecordGameOutcome(ctx, GameResult{AccountID: 1, GameType: "dice", Bet: 1, Result: "jackpot"})
	assert.ErrorIs(t, err, ErrInvalidResult)

	a, err := env.accounts.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.GamesPlayed)
	assert.Equal(t, int64(1), a.Wins)
	assert.Equal(t, int64(1), a.Losses)
	assert.Equal(t, int64(200), a.TotalWagered)
	assert.Equal(t, int64(250), a.TotalWon)

	outcomes, err := env.ledger.GameOutcomes(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
	assert.Equal(t, int64(1050), env.requireReconciled(t, 1))

	winners, err := env.ranking.DailyWinners(ctx, 10)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, int64(50), winners[0].Net)
}

func TestUpgradeTier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)
	_, err := env.ledger.AdjustBalance(ctx, 1, 4000, model.TxAdminAdjust, "top up")
	require.NoError(t, err)

	up, err := env.tiers.UpgradeTier(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, up.Tier.Level)
	assert.Equal(t, int64(2500), up.PricePaid)
	assert.Equal(t, int64(2500), up.Balance)
	assert.Equal(t, int64(2500), env.requireReconciled(t, 1))

	txs, err := env.ledger.Transactions(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.TxLevelUpgrade, txs[0].Category)
	assert.Equal(t, int64(-2500), txs[0].Amount)

	_, err = env.tiers.UpgradeTier(ctx, 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	status, err := env.tiers.Progress(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Progress.CurrentTier)
	require.NotNil(t, status.Next)
	assert.Equal(t, 3, status.Next.Level)

	luck, err := env.accounts.EffectiveLuck(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.05, luck, 1e-9)
}

func TestUpgradeTier_MaxAndAdminOverride(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	require.NoError(t, env.tiers.SetTier(ctx, admin, 1, tier.MaxLevel))
	_, err := env.tiers.UpgradeTier(ctx, 1)
	assert.ErrorIs(t, err, ErrMaxTierReached)

	require.NoError(t, env.tiers.SetTier(ctx, admin, 1, 3))
	status, err := env.tiers.Progress(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Progress.CurrentTier)

	assert.ErrorIs(t, env.tiers.SetTier(ctx, admin, 1, 0), ErrInvalidTier)
	assert.ErrorIs(t, env.tiers.SetTier(ctx, admin, 404, 2), ErrNotFound)
	_, err = env.tiers.UpgradeTier(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(1000), env.requireReconciled(t, 1))
}

func TestAccountFlagsAndLuck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	_, ok, err := env.accounts.Authorize(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, env.accounts.SetAdmin(ctx, admin, 1))
	got, ok, err := env.accounts.Authorize(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), got.ID)

	require.NoError(t, env.accounts.BanAccount(ctx, admin, 1))
	_, ok, err = env.accounts.Authorize(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "a banned admin loses the capability")

	require.NoError(t, env.accounts.UnbanAccount(ctx, admin, 1))
	require.NoError(t, env.accounts.RemoveAdmin(ctx, admin, 1))
	assert.ErrorIs(t, env.accounts.BanAccount(ctx, admin, 404), ErrNotFound)

	v, err := env.accounts.SetCustomLuck(ctx, admin, 1, 7.5)
	require.NoError(t, err)
	assert.Equal(t, tier.MaxCustomLuck, v)
	luck, err := env.accounts.EffectiveLuck(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, luck, 1e-9)

	require.NoError(t, env.accounts.ResetCustomLuck(ctx, admin, 1))
	a, err := env.accounts.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, tier.DefaultCustomLuck, a.CustomLuck)
}

func TestDeposit_ConfirmIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	d, err := env.payments.CreateDeposit(ctx, 1, decimal.RequireFromString("25.50"))
	require.NoError(t, err)
	assert.Equal(t, int64(255), d.Credit)
	assert.Len(t, d.Code, codeLength)
	assert.Equal(t, int64(1000), env.requireReconciled(t, 1))

	_, err = env.payments.ConfirmDeposit(ctx, admin, d.ID)
	require.NoError(t, err)
	_, err = env.payments.ConfirmDeposit(ctx, admin, d.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = env.payments.RejectDeposit(ctx, admin, d.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.Equal(t, int64(1255), env.requireReconciled(t, 1))

	got, err := env.payments.GetDeposit(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, admin.ID, *got.ResolvedBy)

	_, err = env.payments.ConfirmDeposit(ctx, admin, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeposit_ConcurrentConfirmCreditsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	d, err := env.payments.CreateDeposit(ctx, 1, decimal.NewFromInt(10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.payments.ConfirmDeposit(ctx, admin, d.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1100), env.requireReconciled(t, 1))
}

func TestDeposit_RejectAndValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	d, err := env.payments.CreateDeposit(ctx, 1, decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = env.payments.RejectDeposit(ctx, admin, d.ID)
	require.NoError(t, err)
	_, err = env.payments.ConfirmDeposit(ctx, admin, d.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, int64(1000), env.requireReconciled(t, 1))

	_, err = env.payments.CreateDeposit(ctx, 1, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = env.payments.CreateDeposit(ctx, 1, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = env.payments.CreateDeposit(ctx, 404, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeposit_CodeCollisionRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	codes := []string{"AAAA2222", "AAAA2222", "BBBB3333"}
	env.payments.makeCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	first, err := env.payments.CreateDeposit(ctx, 1, decimal.NewFromInt(10))
	require.NoError(t, err)
	second, err := env.payments.CreateDeposit(ctx, 1, decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.Equal(t, "AAAA2222", first.Code)
	assert.Equal(t, "BBBB3333", second.Code)
}

func TestDeposit_ProofAndExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)
	env.register(t, 2, nil)

	d, err := env.payments.CreateDeposit(ctx, 1, decimal.NewFromInt(10))
	require.NoError(t, err)

	_, err = env.payments.AttachDepositProof(ctx, 2, d.ID, "file")
	assert.ErrorIs(t, err, ErrNotFound, "someone else's request")

	got, err := env.payments.AttachDepositProof(ctx, 1, d.ID, "file")
	require.NoError(t, err)
	assert.Equal(t, "file", *got.ProofRef)

	env.payments.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = env.payments.AttachDepositProof(ctx, 1, d.ID, "late")
	assert.ErrorIs(t, err, ErrRequestExpired)

	n, err := env.payments.ExpireStaleDeposits(ctx, time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = env.payments.GetDeposit(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.Status)
	assert.Equal(t, model.SystemAdmin.ID, *got.ResolvedBy)
	assert.Equal(t, int64(1000), env.requireReconciled(t, 1))
}

func TestDonation_ObserveAutoConfirms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	d, err := env.payments.CreateDonationDeposit(ctx, 1, decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.Equal(t, model.SourceDonation, d.Source)

	ev := model.DonationEvent{
		ExternalID: "ext-1",
		Message:    "for the bot: " + d.Code,
		Amount:     decimal.NewFromInt(20),
		Currency:   "RUB",
	}
	matched, err := env.payments.ObserveDonation(ctx, ev)
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, model.StatusCompleted, matched.Status)
	assert.Equal(t, int64(1200), env.requireReconciled(t, 1))

	again, err := env.payments.ObserveDonation(ctx, ev)
	require.NoError(t, err)
	assert.Nil(t, again, "the same donation is processed once")
	assert.Equal(t, int64(1200), env.requireReconciled(t, 1))
}

func TestDonation_UnderpaidStaysPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	d, err := env.payments.CreateDonationDeposit(ctx, 1, decimal.NewFromInt(20))
	require.NoError(t, err)

	matched, err := env.payments.ObserveDonation(ctx, model.DonationEvent{
		ExternalID: "ext-2", Message: d.Code, Amount: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, model.StatusPending, matched.Status)

	_, err = env.payments.ObserveDonation(ctx, model.DonationEvent{ExternalID: "ext-3", Message: "no code", Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = env.payments.ConfirmHTTPPayment(ctx, admin, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), env.requireReconciled(t, 1))

	bank, err := env.payments.CreateDeposit(ctx, 1, decimal.NewFromInt(20))
	require.NoError(t, err)
	_, err = env.payments.ConfirmHTTPPayment(ctx, admin, bank.ID)
	assert.ErrorIs(t, err, ErrWrongSource)
}

func TestWithdrawal_RejectRefunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	// 100 fiat at rate 10 is exactly the starting balance
	w, err := env.payments.CreateWithdrawal(ctx, 1, decimal.NewFromInt(100), "4111 1111 1111 1111")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, w.Status)
	assert.Equal(t, int64(1000), w.Debit)
	assert.Equal(t, int64(0), env.requireReconciled(t, 1))

	_, err = env.payments.CreateWithdrawal(ctx, 1, decimal.NewFromInt(1), "card")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	pending, err := env.payments.ListPendingWithdrawals(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "a failed withdrawal leaves no request behind")

	_, err = env.payments.RejectWithdrawal(ctx, admin, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), env.requireReconciled(t, 1))

	txs, err := env.ledger.Transactions(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.TxWithdrawRefund, txs[0].Category)
	assert.Equal(t, int64(1000), txs[0].Amount)

	_, err = env.payments.RejectWithdrawal(ctx, admin, w.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, int64(1000), env.requireReconciled(t, 1))
}

func TestWithdrawal_ConfirmKeepsDebit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	w, err := env.payments.CreateWithdrawal(ctx, 1, decimal.NewFromInt(30), "card")
	require.NoError(t, err)
	_, err = env.payments.ConfirmWithdrawal(ctx, admin, w.ID)
	require.NoError(t, err)
	_, err = env.payments.ConfirmWithdrawal(ctx, admin, w.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, int64(700), env.requireReconciled(t, 1))

	_, err = env.payments.CreateWithdrawal(ctx, 1, decimal.NewFromInt(10), "   ")
	assert.ErrorIs(t, err, ErrInvalidDestination)
	_, err = env.payments.CreateWithdrawal(ctx, 1, decimal.Zero, "card")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.payments.CreateWithdrawal(ctx, 404, decimal.NewFromInt(10), "card")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsExpected(err))
}

func TestClaimDailyBonus_Streaks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)

	day := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	claim := func(at time.Time) (*Bonus, error) {
		env.bonus.now = func() time.Time { return at }
		return env.bonus.ClaimDailyBonus(ctx, 1)
	}

	for i, want := range []int{1, 2, 3} {
		b, err := claim(day.AddDate(0, 0, i))
		require.NoError(t, err)
		assert.Equal(t, want, b.Streak)
		assert.Equal(t, BonusAmount(100, 50, want), b.Amount)
	}

	_, err := claim(day.AddDate(0, 0, 2).Add(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	b, err := claim(day.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Streak)

	// 1000 + 100 + 150 + 200 + 100
	assert.Equal(t, int64(1550), env.requireReconciled(t, 1))
}

func TestTopAccounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, 1, nil)
	env.register(t, 2, nil)
	env.register(t, 3, nil)

	_, err := env.ledger.AdjustBalance(ctx, 2, 500, model.TxAdminAdjust, "")
	require.NoError(t, err)
	require.NoError(t, env.accounts.BanAccount(ctx, admin, 3))

	top, err := env.ranking.TopAccounts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].ID)
	assert.Equal(t, int64(1), top[1].ID)
}
