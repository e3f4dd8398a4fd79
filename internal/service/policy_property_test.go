package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"telegram-casino-bot/internal/repository"
)

var day0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// Claims on consecutive days grow the streak by one; any gap resets it.
func TestNextStreakProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gaps := rapid.SliceOfN(rapid.IntRange(0, 4), 1, 30).Draw(t, "gaps")

		var (
			last   *time.Time
			streak int
			today  = day0
		)
		for i, gap := range gaps {
			today = today.AddDate(0, 0, gap)
			next, ok := NextStreak(last, streak, today)

			switch {
			case last == nil:
				if !ok || next != 1 {
					t.Fatalf("claim %d: first claim gave (%d, %v)", i, next, ok)
				}
			case gap == 0:
				if ok {
					t.Fatalf("claim %d: same-day claim allowed", i)
				}
				continue
			case gap == 1:
				if !ok || next != streak+1 {
					t.Fatalf("claim %d: consecutive day gave (%d, %v), streak was %d", i, next, ok, streak)
				}
			default:
				if !ok || next != 1 {
					t.Fatalf("claim %d: gap of %d days gave (%d, %v)", i, gap, next, ok)
				}
			}

			d := today
			last, streak = &d, next
		}
	})
}

func TestNextStreak_Examples(t *testing.T) {
	yesterday := day0.AddDate(0, 0, -1)
	twoDaysAgo := day0.AddDate(0, 0, -2)
	tomorrow := day0.AddDate(0, 0, 1)

	n, ok := NextStreak(&yesterday, 4, day0)
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	n, ok = NextStreak(&twoDaysAgo, 4, day0)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = NextStreak(&day0, 4, day0)
	assert.False(t, ok)

	_, ok = NextStreak(&tomorrow, 4, day0)
	assert.False(t, ok, "a claim dated in the future blocks today's claim")
}

func TestCalendarDayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	late := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC) // already March 2nd at UTC+3

	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), CalendarDay(late, loc))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), CalendarDay(late, time.UTC))
}

func TestBonusAmountProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := rapid.Int64Range(1, 10000).Draw(t, "base")
		inc := rapid.Int64Range(0, 1000).Draw(t, "inc")
		streak := rapid.IntRange(1, 365).Draw(t, "streak")

		got := BonusAmount(base, inc, streak)
		if got != base+int64(streak-1)*inc {
			t.Fatalf("BonusAmount(%d, %d, %d) = %d", base, inc, streak, got)
		}
		if BonusAmount(base, inc, streak+1)-got != inc {
			t.Fatalf("each streak day must add exactly the increment")
		}
	})

	assert.Equal(t, int64(100), BonusAmount(100, 50, 0))
}

// Conversion never credits more than fiat*rate and loses less than one unit.
func TestConvertProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(0, 10_000_000).Draw(t, "cents")
		rateMilli := rapid.Int64Range(1, 100_000).Draw(t, "rateMilli")

		fiat := decimal.New(cents, -2)
		rate := decimal.New(rateMilli, -3)
		exact := fiat.Mul(rate)

		got := decimal.NewFromInt(Convert(fiat, rate))
		if got.GreaterThan(exact) || exact.Sub(got).GreaterThanOrEqual(decimal.NewFromInt(1)) {
			t.Fatalf("Convert(%s, %s) = %s, exact %s", fiat, rate, got, exact)
		}
	})
}

func TestGenerateCodeAndExtract(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, codeLength)
		assert.Empty(t, strings.Trim(code, codeAlphabet))

		msg := fmt.Sprintf("thanks! my code is %s, good luck", strings.ToLower(code))
		assert.Contains(t, ExtractCodes(msg), code)
	}
}

func TestExtractCodes(t *testing.T) {
	assert.Equal(t, []string{"ABCD2345"}, ExtractCodes("pay ABCD2345"))
	assert.Equal(t, []string{"ABCD2345", "ZZZZ9999"}, ExtractCodes("ABCD2345/zzzz9999"))
	assert.Empty(t, ExtractCodes("ABCD234"))   // too short
	assert.Empty(t, ExtractCodes("ABCD23450")) // too long
	assert.Empty(t, ExtractCodes("ABCDO123"))  // O and 1 are not in the alphabet
	assert.Empty(t, ExtractCodes(""))
}

func TestMapRepoErr(t *testing.T) {
	cases := map[error]error{
		repository.ErrAccountNotFound:     ErrNotFound,
		repository.ErrRequestNotFound:     ErrNotFound,
		repository.ErrInsufficientBalance: ErrInsufficientFunds,
		repository.ErrAccountExists:       ErrDuplicateRegistration,
		repository.ErrTierNotFound:        ErrInvalidTier,
	}
	for in, want := range cases {
		assert.ErrorIs(t, mapRepoErr(fmt.Errorf("wrapped: %w", in)), want)
	}

	other := errors.New("connection reset")
	assert.Equal(t, other, mapRepoErr(other))
	assert.NoError(t, mapRepoErr(nil))

	assert.True(t, IsExpected(ErrInsufficientFunds))
	assert.True(t, IsExpected(fmt.Errorf("x: %w", ErrInvalidState)))
	assert.False(t, IsExpected(other))
}
