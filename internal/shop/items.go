// Package shop provides the food shop used to grow creatures.
package shop

import "garden-bot/internal/model"

// Food ids, in display order.
const (
	FoodBasic        = "basic_food"
	FoodPremium      = "premium_food"
	FoodRoyal        = "royal_food"
	FoodMysticFruit  = "mystic_fruit"
	FoodGlowingSnack = "glowing_snack"
	FoodAncientFeast = "ancient_feast"
)

// StarterFoodAmount is how many basic food units a new player receives.
const StarterFoodAmount = 5

// Food holds the configuration for a shop food item
type Food struct {
	ID          string
	Name        string
	Emoji       string
	Price       int64 // 价格（金币）
	EvolvePower int   // 进化点数
	Description string
}

// Foods contains all available food items
var Foods = map[string]Food{
	FoodBasic: {
		ID:          FoodBasic,
		Name:        "普通饲料",
		Emoji:       "🌾",
		Price:       100,
		EvolvePower: 10,
		Description: "最常见的饲料",
	},
	FoodPremium: {
		ID:          FoodPremium,
		Name:        "高级饲料",
		Emoji:       "🥩",
		Price:       300,
		EvolvePower: 30,
		Description: "营养丰富，成长更快",
	},
	FoodRoyal: {
		ID:          FoodRoyal,
		Name:        "皇家饲料",
		Emoji:       "👑",
		Price:       1000,
		EvolvePower: 100,
		Description: "皇家御用，效果惊人",
	},
	FoodMysticFruit: {
		ID:          FoodMysticFruit,
		Name:        "神秘果",
		Emoji:       "🍇",
		Price:       500,
		EvolvePower: 50,
		Description: "森林深处采摘的果实",
	},
	FoodGlowingSnack: {
		ID:          FoodGlowingSnack,
		Name:        "荧光零食",
		Emoji:       "✨",
		Price:       800,
		EvolvePower: 80,
		Description: "在夜里会发光的零食",
	},
	FoodAncientFeast: {
		ID:          FoodAncientFeast,
		Name:        "远古盛宴",
		Emoji:       "🍖",
		Price:       2000,
		EvolvePower: 200,
		Description: "传说中的远古食谱",
	},
}

var displayOrder = []string{
	FoodBasic,
	FoodPremium,
	FoodMysticFruit,
	FoodGlowingSnack,
	FoodRoyal,
	FoodAncientFeast,
}

// GetAllFoods returns all foods in display order
func GetAllFoods() []Food {
	foods := make([]Food, 0, len(displayOrder))
	for _, id := range displayOrder {
		if f, ok := Foods[id]; ok {
			foods = append(foods, f)
		}
	}
	return foods
}

// GetFood returns the food config for a given id
func GetFood(id string) (Food, bool) {
	f, ok := Foods[id]
	return f, ok
}

// Stack returns an inventory stack of this food.
func (f Food) Stack(amount int) model.FoodStack {
	return model.FoodStack{
		ID:          f.ID,
		Name:        f.Name,
		Amount:      amount,
		EvolvePower: f.EvolvePower,
	}
}

// StarterPack is the inventory every new player starts with.
func StarterPack() []model.FoodStack {
	return []model.FoodStack{Foods[FoodBasic].Stack(StarterFoodAmount)}
}
