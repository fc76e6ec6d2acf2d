package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"garden-bot/internal/model"
	"garden-bot/internal/service"
)

// AdminHandler handles admin-related commands.
type AdminHandler struct {
	accountService *service.AccountService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accountService *service.AccountService) *AdminHandler {
	return &AdminHandler{
		accountService: accountService,
	}
}

// HandleAdminAdd handles the /admin_add command.
// Format: /admin_add <user_id> <amount>
func (h *AdminHandler) HandleAdminAdd(c tele.Context) error {
	return h.adjust(c, "/admin_add", 1, model.TxTypeAdminAdd, "➕ 添加")
}

// HandleAdminSub handles the /admin_sub command.
// Format: /admin_sub <user_id> <amount>
func (h *AdminHandler) HandleAdminSub(c tele.Context) error {
	return h.adjust(c, "/admin_sub", -1, model.TxTypeAdminSub, "➖ 扣除")
}

func (h *AdminHandler) adjust(c tele.Context, command string, sign int64, txType, label string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID, amount, err := parseAdminArgs(c.Args(), command)
	if err != nil {
		return c.Reply(err.Error())
	}

	if amount <= 0 {
		return c.Reply("❌ 金额必须大于 0")
	}

	desc := fmt.Sprintf("管理员 %d %s", sender.ID, txType)
	p, err := h.accountService.UpdateBalance(ctx, targetID, sign*amount, txType, &desc)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientBalance) {
			return c.Reply("❌ 用户金币不足")
		}
		return c.Reply("❌ 操作失败，请稍后重试")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Int64("amount", amount).
		Str("operation", txType).
		Msg("Admin operation executed")

	name := p.Username
	if name == "" {
		name = fmt.Sprintf("%d", targetID)
	}

	return c.Reply(fmt.Sprintf(
		"✅ 操作成功\n\n"+
			"👤 用户: %s (ID: %d)\n"+
			"%s: %d 金币\n"+
			"💰 当前金币: %d",
		name, targetID, label, amount, p.Coins,
	))
}

// parseAdminArgs parses "<user_id> <amount>".
func parseAdminArgs(args []string, command string) (int64, int64, error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("❌ 用法: %s <用户ID> <金额>\n例如: %s 123456789 100", command, command)
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("❌ 用户ID格式错误，请输入数字")
	}

	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("❌ 金额格式错误，请输入整数")
	}

	return targetID, amount, nil
}

// HandleAdminGiftAll handles the /admin_gift_all command.
// Format: /admin_gift_all <amount>
func (h *AdminHandler) HandleAdminGiftAll(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ 用法: /admin_gift_all 金额\n例如: /admin_gift_all 100")
	}

	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || amount <= 0 {
		return c.Reply("❌ 金额必须是大于 0 的整数")
	}

	desc := fmt.Sprintf("管理员 %d 全员赠送", sender.ID)
	count, err := h.accountService.GiftAll(ctx, amount, &desc)
	if err != nil {
		return c.Reply("❌ 操作失败，请稍后重试")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("amount", amount).
		Int64("user_count", count).
		Str("operation", "admin_gift_all").
		Msg("Admin gift all operation executed")

	return c.Reply(fmt.Sprintf(
		"✅ 赠送成功\n\n"+
			"🎁 赠送金额: %d 金币\n"+
			"👥 受益玩家: %d 人",
		amount, count,
	))
}
