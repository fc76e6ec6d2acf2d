package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"garden-bot/internal/catalog"
	"garden-bot/internal/service"
	"garden-bot/internal/shop"
)

// Callback data prefixes for garden buttons
const (
	CallbackGardenExplore = "garden_explore:" // garden_explore:pine_forest
	CallbackGardenTame    = "garden_tame:"    // garden_tame:pine_forest
)

var (
	errNoSender     = errors.New("no sender")
	errTameCooldown = errors.New("tame on cooldown")
)

// GardenHandler handles exploring, taming and raising creatures.
type GardenHandler struct {
	gardenService  *service.GardenService
	accountService *service.AccountService
	tameCooldown   time.Duration
	cooldowns      *cooldowns
}

// NewGardenHandler creates a new GardenHandler.
func NewGardenHandler(gardenService *service.GardenService, accountService *service.AccountService, tameCooldown time.Duration, clock clockwork.Clock) *GardenHandler {
	return &GardenHandler{
		gardenService:  gardenService,
		accountService: accountService,
		tameCooldown:   tameCooldown,
		cooldowns:      newCooldowns(clock),
	}
}

func (h *GardenHandler) forestPanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, f := range h.gardenService.Forests() {
		rows = append(rows, markup.Row(markup.Data("🌲 "+f.Name, CallbackGardenExplore+f.ID)))
	}
	markup.Inline(rows...)
	return markup
}

// HandleExplore handles /explore [forest_id].
func (h *GardenHandler) HandleExplore(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("🗺️ 选择要探索的森林：", h.forestPanel())
	}

	msg, markup, err := h.forestDetail(args[0])
	if err != nil {
		return c.Reply("❌ 没有这片森林")
	}
	return c.Reply(msg, markup)
}

func (h *GardenHandler) forestDetail(forestID string) (string, *tele.ReplyMarkup, error) {
	forest, err := h.gardenService.Explore(context.Background(), forestID)
	if err != nil {
		return "", nil, err
	}

	msg := fmt.Sprintf("🌲 %s\n%s\n━━━━━━━━━━━━━━━\n", forest.Name, forest.Description)
	for _, sp := range forest.Spawns {
		name := sp.TemplateID
		if tpl, err := h.gardenService.Template(sp.TemplateID); err == nil {
			name = tpl.Name
		}
		msg += fmt.Sprintf("🐾 %s %d%%\n", name, sp.Chance)
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("🎯 收服", CallbackGardenTame+forest.ID)))
	return msg, markup, nil
}

// HandleTame handles /tame <forest_id>.
func (h *GardenHandler) HandleTame(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ 用法: /tame <森林ID>", h.forestPanel())
	}
	msg, _ := h.tame(c.Sender(), args[0])
	return c.Reply(msg)
}

func (h *GardenHandler) tame(sender *tele.User, forestID string) (string, error) {
	ctx := context.Background()
	if sender == nil {
		return "", errNoSender
	}

	if left := h.cooldowns.remaining(sender.ID, "tame", h.tameCooldown); left > 0 {
		return fmt.Sprintf("⏳ 宠物们还在警惕，%d 秒后再来", left), errTameCooldown
	}

	if _, _, err := h.accountService.EnsurePlayer(ctx, sender.ID, displayName(sender)); err != nil {
		return "❌ 操作失败，请稍后重试", err
	}

	cr, err := h.gardenService.Tame(ctx, sender.ID, forestID)
	if err != nil {
		if errors.Is(err, catalog.ErrForestNotFound) {
			return "❌ 没有这片森林", err
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Str("forest", forestID).Msg("Tame failed")
		return "❌ 收服失败，请稍后重试", err
	}

	h.cooldowns.set(sender.ID, "tame")
	return fmt.Sprintf(
		"🎉 @%s 收服了 %s！\n❤️ 生命: %d\n🆔 %s",
		displayName(sender), cr.Name, cr.HP, cr.ID,
	), nil
}

// HandleGardenCallback handles forest and tame buttons.
func (h *GardenHandler) HandleGardenCallback(c tele.Context) error {
	data := callbackData(c)

	switch {
	case strings.HasPrefix(data, CallbackGardenExplore):
		msg, markup, err := h.forestDetail(strings.TrimPrefix(data, CallbackGardenExplore))
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "❌ 没有这片森林", ShowAlert: true})
		}
		return c.Edit(msg, markup)

	case strings.HasPrefix(data, CallbackGardenTame):
		msg, err := h.tame(c.Sender(), strings.TrimPrefix(data, CallbackGardenTame))
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: msg, ShowAlert: true})
		}
		_ = c.Respond(&tele.CallbackResponse{Text: "🎉 收服成功"})
		return c.Send(msg)
	}

	return nil
}

// HandleFeed handles /feed <creature_id> <food_id>.
func (h *GardenHandler) HandleFeed(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ 用法: /feed <宠物ID> <饲料ID>\n例如: /feed wolf1_123 " + shop.FoodBasic)
	}

	res, err := h.gardenService.Feed(ctx, sender.ID, args[0], args[1])
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCreatureNotFound):
			return c.Reply("❌ 没有这只宠物，发送 /bag 查看宠物ID")
		case errors.Is(err, service.ErrNoSuchFood):
			return c.Reply("❌ 背包里没有这种饲料，私聊我发送 /start 去商店购买")
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Feed failed")
		return c.Reply("❌ 喂养失败，请稍后重试")
	}

	cr := res.Creature
	msg := fmt.Sprintf("🍖 %s 获得 %d 点进化值 (%d/%d)\n",
		cr.Name, res.PointsGained, cr.Evolution.Points, cr.Evolution.MaxPoints)
	if res.LeveledUp {
		msg += fmt.Sprintf("⬆️ 升级到 Lv.%d！❤️ 生命 %d\n", cr.Level, cr.HP)
	}
	if res.LearnedMove != nil {
		msg += fmt.Sprintf("✨ 学会了新技能: %s (伤害 %d)\n", res.LearnedMove.Name, res.LearnedMove.Damage)
	}
	return c.Reply(msg)
}

// HandleActive handles /active <creature_id>.
func (h *GardenHandler) HandleActive(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ 用法: /active <宠物ID>")
	}

	cr, err := h.gardenService.SetActive(ctx, sender.ID, args[0])
	if err != nil {
		if errors.Is(err, service.ErrCreatureNotFound) {
			return c.Reply("❌ 没有这只宠物，发送 /bag 查看宠物ID")
		}
		return c.Reply("❌ 操作失败，请稍后重试")
	}

	return c.Reply(fmt.Sprintf("⭐ %s 成为出战宠物", cr.Name))
}
