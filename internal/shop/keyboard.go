package shop

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"garden-bot/internal/model"
)

// Callback data prefixes
const (
	CallbackShopItem    = "shop_item:"   // shop_item:basic_food
	CallbackShopBuy     = "shop_buy:"    // shop_buy:basic_food
	CallbackShopCancel  = "shop_cancel"  // shop_cancel
	CallbackShopRefresh = "shop_refresh" // shop_refresh
)

// BuildShopPanel creates the main shop panel with food buttons
func BuildShopPanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	foods := GetAllFoods()
	var rows []tele.Row

	// 2 buttons per row
	var currentRow []tele.Btn
	for i, f := range foods {
		btn := markup.Data(
			fmt.Sprintf("%s %s (%d💰)", f.Emoji, f.Name, f.Price),
			CallbackShopItem+f.ID,
		)
		currentRow = append(currentRow, btn)

		if len(currentRow) == 2 || i == len(foods)-1 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}

	refreshBtn := markup.Data("🔄 刷新", CallbackShopRefresh)
	rows = append(rows, markup.Row(refreshBtn))

	markup.Inline(rows...)
	return markup
}

// BuildConfirmPanel creates the purchase confirmation panel
func BuildConfirmPanel(foodID string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	buyBtn := markup.Data("✅ 购买", CallbackShopBuy+foodID)
	cancelBtn := markup.Data("❌ 取消", CallbackShopCancel)

	markup.Inline(
		markup.Row(buyBtn, cancelBtn),
	)
	return markup
}

// FormatShopMessage creates the shop welcome message
func FormatShopMessage(balance int64) string {
	msg := "🏪 欢迎来到饲料商店\n"
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("💰 你的余额: %d 金币\n", balance)
	msg += "━━━━━━━━━━━━━━━\n"
	msg += "点击下方按钮查看饲料详情："
	return msg
}

// FormatFoodDetail creates the food detail message
func FormatFoodDetail(f Food, balance int64) string {
	msg := fmt.Sprintf("%s %s\n", f.Emoji, f.Name)
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("💰 价格: %d 金币\n", f.Price)
	msg += fmt.Sprintf("🧬 进化点数: +%d\n", f.EvolvePower)
	msg += fmt.Sprintf("📝 %s\n", f.Description)
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("💰 你的余额: %d 金币\n", balance)

	if balance < f.Price {
		msg += "❌ 余额不足！"
	} else {
		msg += "确认购买吗？"
	}

	return msg
}

// FormatInventoryMessage creates the inventory display message
func FormatInventoryMessage(p *model.PlayerRecord) string {
	msg := "🎒 我的背包\n"
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("💰 金币: %d\n", p.Coins)

	if len(p.Inventory.Food) == 0 {
		msg += "🍽️ 没有饲料，私聊我发送 /start 去商店看看\n"
	}
	for _, stack := range p.Inventory.Food {
		emoji := "🍽️"
		if f, ok := GetFood(stack.ID); ok {
			emoji = f.Emoji
		}
		msg += fmt.Sprintf("%s %s x%d (+%d)\n", emoji, stack.Name, stack.Amount, stack.EvolvePower)
	}

	msg += "━━━━━━━━━━━━━━━\n"
	if len(p.Creatures) == 0 {
		msg += "🐾 还没有宠物，发送 /explore 去森林里看看吧"
		return msg
	}
	msg += "🐾 我的宠物\n"
	for _, c := range p.Creatures {
		marker := "  "
		if c.ID == p.ActiveCreature {
			marker = "⭐"
		}
		msg += fmt.Sprintf("%s %s Lv.%d ❤️%d 🧬%d/%d\n",
			marker, c.Name, c.Level, c.HP, c.Evolution.Points, c.Evolution.MaxPoints)
		msg += fmt.Sprintf("   ID: %s\n", c.ID)
	}
	return msg
}
