package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"garden-bot/internal/service"
	"garden-bot/internal/shop"
)

// ShopHandler handles the food shop and the bag.
type ShopHandler struct {
	gardenService  *service.GardenService
	accountService *service.AccountService
}

// NewShopHandler creates a new ShopHandler
func NewShopHandler(gardenService *service.GardenService, accountService *service.AccountService) *ShopHandler {
	return &ShopHandler{
		gardenService:  gardenService,
		accountService: accountService,
	}
}

// HandleShopStart handles /start in private chat to show the shop
func (h *ShopHandler) HandleShopStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()

	if sender == nil || chat == nil || chat.Type != tele.ChatPrivate {
		return nil
	}

	p, _, err := h.accountService.EnsurePlayer(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply("❌ 操作失败，请稍后重试")
	}

	return c.Send(shop.FormatShopMessage(p.Coins), shop.BuildShopPanel())
}

func (h *ShopHandler) showShop(ctx context.Context, c tele.Context, userID int64) error {
	balance, _ := h.accountService.GetBalance(ctx, userID)
	return c.Edit(shop.FormatShopMessage(balance), shop.BuildShopPanel())
}

// HandleShopCallback handles shop button callbacks
func (h *ShopHandler) HandleShopCallback(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	data := callbackData(c)

	switch {
	case data == shop.CallbackShopRefresh, data == shop.CallbackShopCancel:
		return h.showShop(ctx, c, sender.ID)

	case strings.HasPrefix(data, shop.CallbackShopItem):
		food, ok := shop.GetFood(strings.TrimPrefix(data, shop.CallbackShopItem))
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: "❌ 饲料不存在"})
		}

		balance, _ := h.accountService.GetBalance(ctx, sender.ID)
		return c.Edit(shop.FormatFoodDetail(food, balance), shop.BuildConfirmPanel(food.ID))

	case strings.HasPrefix(data, shop.CallbackShopBuy):
		foodID := strings.TrimPrefix(data, shop.CallbackShopBuy)
		food, ok := shop.GetFood(foodID)
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: "❌ 饲料不存在", ShowAlert: true})
		}

		if _, err := h.gardenService.BuyFood(ctx, sender.ID, foodID); err != nil {
			if errors.Is(err, service.ErrInsufficientBalance) {
				return c.Respond(&tele.CallbackResponse{
					Text:      "❌ 金币不足！",
					ShowAlert: true,
				})
			}
			log.Error().Err(err).Int64("user_id", sender.ID).Str("food", foodID).Msg("Purchase failed")
			return c.Respond(&tele.CallbackResponse{
				Text:      "❌ 购买失败，请稍后重试",
				ShowAlert: true,
			})
		}

		_ = c.Respond(&tele.CallbackResponse{
			Text: "✅ 购买成功！" + food.Emoji + " " + food.Name,
		})
		return h.showShop(ctx, c, sender.ID)
	}

	return nil
}

// HandleBag handles /bag to show food and creatures
func (h *ShopHandler) HandleBag(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	p, _, err := h.accountService.EnsurePlayer(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply("❌ 获取背包失败")
	}

	return c.Reply(shop.FormatInventoryMessage(p))
}
