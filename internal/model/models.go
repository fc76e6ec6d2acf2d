// Package model defines the data models for the garden bot.
package model

import "time"

// Move is a single attack a creature can perform.
// Cooldown is advisory and is not enforced between turns.
type Move struct {
	Name     string `json:"name" yaml:"name"`
	Damage   int    `json:"damage" yaml:"damage"`
	Cooldown int    `json:"cooldown" yaml:"cooldown"`
}

// CreatureTemplate is an immutable catalog entry.
type CreatureTemplate struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Rarity   string `json:"rarity" yaml:"rarity"`
	Element  string `json:"element" yaml:"element"`
	BaseHP   int    `json:"hp" yaml:"hp"`
	Moves    []Move `json:"moves" yaml:"moves"`
	Location string `json:"default_location" yaml:"default_location"`
}

// Spawn is a weighted creature entry inside a forest.
type Spawn struct {
	TemplateID string `json:"id" yaml:"id"`
	Chance     int    `json:"chance" yaml:"chance"`
}

// Forest is an explorable area where creatures can be tamed.
type Forest struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Spawns      []Spawn `json:"pets" yaml:"pets"`
}

// Evolution tracks growth progress of an owned creature.
type Evolution struct {
	Points    int `json:"points"`
	MaxPoints int `json:"max_points"`
	Stage     int `json:"stage"`
}

// OwnedCreature is a player's persistent copy of a template plus growth state.
type OwnedCreature struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id"`
	Species    string    `json:"species"`
	Name       string    `json:"name"`
	Rarity     string    `json:"rarity"`
	Element    string    `json:"element"`
	Level      int       `json:"level"`
	HP         int       `json:"hp"`
	Moves      []Move    `json:"moves"`
	Evolution  Evolution `json:"evolution"`
	TamedAt    time.Time `json:"tamed_at"`
}

// Clone returns a deep copy; the moves slice is not shared.
func (c OwnedCreature) Clone() OwnedCreature {
	out := c
	out.Moves = append([]Move(nil), c.Moves...)
	return out
}

// FoodStack is a stack of one food item in a player's inventory.
type FoodStack struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Amount      int    `json:"amount"`
	EvolvePower int    `json:"evolve_power"`
}

// Inventory holds a player's consumables.
type Inventory struct {
	Food []FoodStack `json:"food"`
}

// PlayerRecord is the durable, account-scoped document for one user.
type PlayerRecord struct {
	UserID         int64           `json:"user_id"`
	Username       string          `json:"username"`
	Coins          int64           `json:"coins"`
	Creatures      []OwnedCreature `json:"pets"`
	ActiveCreature string          `json:"active_pet,omitempty"`
	Inventory      Inventory       `json:"inventory"`
	LastDailyClaim int64           `json:"last_daily_claim"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Version is the store version this record was read at. It is not serialized.
	Version int64 `json:"-"`
}

// Creature returns the owned creature with the given id.
func (p *PlayerRecord) Creature(id string) (*OwnedCreature, bool) {
	for i := range p.Creatures {
		if p.Creatures[i].ID == id {
			return &p.Creatures[i], true
		}
	}
	return nil, false
}

// Active returns the player's active creature, if any.
func (p *PlayerRecord) Active() (*OwnedCreature, bool) {
	if p.ActiveCreature == "" {
		return nil, false
	}
	return p.Creature(p.ActiveCreature)
}

// Food returns the index of the food stack with the given id, or -1.
func (p *PlayerRecord) Food(id string) int {
	for i, f := range p.Inventory.Food {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          string    `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Amount      int64     `json:"amount" db:"amount"`
	Type        string    `json:"type" db:"type"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// DailyRank is one player's total for a ledger type over a day.
type DailyRank struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
	Total    int64  `db:"total"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial      = "initial"       // Initial balance on account creation
	TxTypeDaily        = "daily"         // Daily reward claim
	TxTypeDuelReward   = "duel_reward"   // Duel winner payout
	TxTypeShopPurchase = "shop_purchase" // Food purchase
	TxTypeAdminAdd     = "admin_add"     // Admin added balance
	TxTypeAdminSub     = "admin_sub"     // Admin subtracted balance
	TxTypeAdminGift    = "admin_gift"    // Admin gift to every player
)

// Record collections in the store.
const (
	CollectionPlayers      = "players"
	CollectionCatalog      = "creatures-catalog"
	CollectionForests      = "forests"
	CollectionTransactions = "transactions"
)
