package service

import (
	"context"
	"fmt"
	"time"

	"telegram-casino-bot/internal/config"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/repository"
)

// BonusService handles the daily streak bonus.
type BonusService struct {
	store  *repository.Store
	policy config.DailyConfig
	loc    *time.Location
	now    func() time.Time
}

// NewBonusService creates a new BonusService. Calendar days are taken in loc.
func NewBonusService(store *repository.Store, policy config.DailyConfig, loc *time.Location) *BonusService {
	if loc == nil {
		loc = time.UTC
	}
	return &BonusService{store: store, policy: policy, loc: loc, now: time.Now}
}

// Bonus is the result of a successful claim.
type Bonus struct {
	Amount  int64
	Streak  int
	Balance int64
}

// CalendarDay returns t's date in loc as midnight UTC, the form stored in
// the database.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextStreak computes the streak for a claim made on today. ok is false when
// a claim was already made today.
func NextStreak(last *time.Time, streak int, today time.Time) (next int, ok bool) {
	if last == nil {
		return 1, true
	}
	y, m, d := last.Date()
	lastDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	switch {
	case !lastDay.Before(today):
		return 0, false
	case lastDay.Equal(today.AddDate(0, 0, -1)):
		return streak + 1, true
	default:
		return 1, true
	}
}

// BonusAmount is base + (streak-1) * increment.
func BonusAmount(base, increment int64, streak int) int64 {
	if streak < 1 {
		streak = 1
	}
	return base + int64(streak-1)*increment
}

// ClaimDailyBonus credits the daily bonus once per calendar day. Consecutive
// days grow the streak, a gap resets it to 1.
func (s *BonusService) ClaimDailyBonus(ctx context.Context, accountID int64) (*Bonus, error) {
	today := CalendarDay(s.now(), s.loc)

	var b Bonus
	err := s.store.InTx(ctx, func(r *repository.Repos) error {
		a, err := r.Accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return mapRepoErr(err)
		}

		streak, ok := NextStreak(a.LastBonusDate, a.BonusStreak, today)
		if !ok {
			return ErrAlreadyClaimed
		}
		amount := BonusAmount(s.policy.Base, s.policy.Increment, streak)

		b.Balance, err = apply(ctx, r, accountID, amount, model.TxDailyBonus, fmt.Sprintf("daily bonus, day %d", streak))
		if err != nil {
			return err
		}
		if err := r.Accounts.SetBonusState(ctx, accountID, today, streak); err != nil {
			return mapRepoErr(err)
		}

		b.Amount = amount
		b.Streak = streak
		return nil
	})
	observe("claim_daily_bonus", err)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
