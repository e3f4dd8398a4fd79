package service

import (
	"context"
	"time"

	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/repository"
)

// RankingService serves leaderboards. Reads are unlocked and may be
// slightly stale.
type RankingService struct {
	store *repository.Store
	loc   *time.Location
	now   func() time.Time
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(store *repository.Store, loc *time.Location) *RankingService {
	if loc == nil {
		loc = time.UTC
	}
	return &RankingService{store: store, loc: loc, now: time.Now}
}

// TopAccounts returns the richest accounts.
func (s *RankingService) TopAccounts(ctx context.Context, limit int) ([]*model.Account, error) {
	return s.store.Accounts.TopByBalance(ctx, limit)
}

// DailyWinners returns today's accounts with the highest net game profit.
func (s *RankingService) DailyWinners(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.store.Transactions.GetDailyNet(ctx, s.dayStart(), limit, true)
}

// DailyLosers returns today's accounts with the largest net game loss.
func (s *RankingService) DailyLosers(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.store.Transactions.GetDailyNet(ctx, s.dayStart(), limit, false)
}

func (s *RankingService) dayStart() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}
