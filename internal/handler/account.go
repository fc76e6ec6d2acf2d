package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"garden-bot/internal/service"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accountService *service.AccountService
	rankingService *service.RankingService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, rankingService *service.RankingService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		rankingService: rankingService,
	}
}

// HandleStart handles the /start command in groups.
// Creates a new player with starting coins and food if needed.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	username := displayName(sender)
	p, created, err := h.accountService.EnsurePlayer(ctx, sender.ID, username)
	if err != nil {
		return c.Reply("❌ 创建账户失败，请稍后重试")
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 欢迎 @%s！\n\n"+
				"您的账户已创建，初始金币: %d\n"+
				"背包里放了几份饲料，先去森林里收服一只宠物吧！\n\n"+
				"可用命令:\n"+
				"/explore - 探索森林\n"+
				"/bag - 查看背包和宠物\n"+
				"/feed <宠物ID> <饲料ID> - 喂养宠物\n"+
				"/active <宠物ID> - 设置出战宠物\n"+
				"/battle - 回复对方消息发起决斗\n"+
				"/daily - 每日签到\n"+
				"/top - 富豪榜",
			username, p.Coins,
		))
	}

	return c.Reply(fmt.Sprintf(
		"👋 欢迎回来 @%s！\n\n"+
			"当前金币: %d\n"+
			"宠物数量: %d",
		username, p.Coins, len(p.Creatures),
	))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	p, _, err := h.accountService.EnsurePlayer(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply("❌ 获取余额失败，请稍后重试")
	}

	return c.Reply(fmt.Sprintf("💰 当前金币: %d", p.Coins))
}

// HandleMy handles the /my command and shows the player's profile.
func (h *AccountHandler) HandleMy(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	p, _, err := h.accountService.EnsurePlayer(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply("❌ 获取账户信息失败，请稍后重试")
	}

	active := "无"
	if cr, ok := p.Active(); ok {
		active = fmt.Sprintf("%s Lv.%d ❤️%d", cr.Name, cr.Level, cr.HP)
	}

	return c.Reply(fmt.Sprintf(
		"📊 账户信息\n"+
			"━━━━━━━━━━━━━━━\n"+
			"👤 用户: @%s\n"+
			"💰 金币: %d\n"+
			"🐾 宠物: %d 只\n"+
			"⚔️ 出战: %s\n"+
			"━━━━━━━━━━━━━━━",
		p.Username, p.Coins, len(p.Creatures), active,
	))
}

// HandleDaily handles the /daily command.
func (h *AccountHandler) HandleDaily(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if _, _, err := h.accountService.EnsurePlayer(ctx, sender.ID, displayName(sender)); err != nil {
		return c.Reply("❌ 操作失败，请稍后重试")
	}

	success, msg, err := h.accountService.ClaimDaily(ctx, sender.ID)
	if err != nil {
		return c.Reply("❌ 签到失败，请稍后重试")
	}

	if success {
		return c.Reply(fmt.Sprintf("✅ %s", msg))
	}
	return c.Reply(fmt.Sprintf("⏰ %s", msg))
}

// HandleTop handles the /top command.
// Displays the top 10 players by coins.
func (h *AccountHandler) HandleTop(c tele.Context) error {
	ctx := context.Background()

	players, err := h.rankingService.GetTopPlayers(ctx, 10)
	if err != nil {
		return c.Reply("❌ 获取排行榜失败，请稍后重试")
	}

	if len(players) == 0 {
		return c.Reply("📊 暂无排行数据")
	}

	msg := "🏆 富豪榜 TOP 10\n"
	msg += "━━━━━━━━━━━━━━━\n"

	for i, p := range players {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}

		name := p.Username
		if name == "" {
			name = fmt.Sprintf("User%d", p.UserID)
		}

		msg += fmt.Sprintf("%s @%s: %d\n", rank, name, p.Coins)
	}

	msg += "━━━━━━━━━━━━━━━"

	return c.Reply(msg)
}
