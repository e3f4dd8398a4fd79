package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/service"
)

const rankingLimit = 10

// RankingHandler handles ranking commands.
type RankingHandler struct {
	ranking *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(ranking *service.RankingService) *RankingHandler {
	return &RankingHandler{ranking: ranking}
}

// HandleTop handles /top: richest accounts. Banned accounts are not listed.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	accounts, err := h.ranking.TopAccounts(context.Background(), rankingLimit)
	if err != nil {
		return replyErr(c, err)
	}
	if len(accounts) == 0 {
		return c.Reply("📊 Nobody here yet")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Top %d balances\n", rankingLimit)
	for i, a := range accounts {
		fmt.Fprintf(&b, "%s %s: %d\n", rankLabel(i), a.DisplayName(), a.Balance)
	}
	return c.Reply(b.String())
}

// HandleDailyTop handles /daily_top: today's biggest game winners and losers.
func (h *RankingHandler) HandleDailyTop(c tele.Context) error {
	ctx := context.Background()

	winners, err := h.ranking.DailyWinners(ctx, rankingLimit)
	if err != nil {
		return replyErr(c, err)
	}
	losers, err := h.ranking.DailyLosers(ctx, rankingLimit)
	if err != nil {
		return replyErr(c, err)
	}

	var b strings.Builder
	b.WriteString("📊 Today's games\n━━━━━━━━━━━━━━━\n🏆 Winners\n")
	writeDailyRanks(&b, winners)
	b.WriteString("\n💸 Losers\n")
	writeDailyRanks(&b, losers)
	return c.Reply(b.String())
}

func writeDailyRanks(b *strings.Builder, ranks []*model.DailyRank) {
	if len(ranks) == 0 {
		b.WriteString("No games yet\n")
		return
	}
	for i, r := range ranks {
		name := (&model.Account{Username: r.Username, FirstName: r.FirstName}).DisplayName()
		fmt.Fprintf(b, "%s %s: %+d\n", rankLabel(i), name, r.Net)
	}
}
