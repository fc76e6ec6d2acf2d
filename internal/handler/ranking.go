package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"garden-bot/internal/service"
)

// RankingHandler handles ranking-related commands.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
	}
}

// HandleDailyTop handles the /daily_top command.
// Displays today's top duel earners.
func (h *RankingHandler) HandleDailyTop(c tele.Context) error {
	ctx := context.Background()

	winners, err := h.rankingService.GetDailyDuelWinners(ctx, 10)
	if err != nil {
		return c.Reply("❌ 获取排行榜失败，请稍后重试")
	}

	msg := "⚔️ 今日决斗榜\n"
	msg += "━━━━━━━━━━━━━━━\n"

	if len(winners) == 0 {
		msg += "今天还没有人赢得决斗\n"
	}
	for i, w := range winners {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}

		name := w.Username
		if name == "" {
			name = fmt.Sprintf("User%d", w.UserID)
		}

		msg += fmt.Sprintf("%s %s: +%d\n", rank, name, w.Total)
	}

	msg += "━━━━━━━━━━━━━━━"

	return c.Reply(msg)
}
