package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/jonboulle/clockwork"

	"garden-bot/internal/catalog"
	"garden-bot/internal/model"
	"garden-bot/internal/repository"
	"garden-bot/internal/shop"
)

// Garden service errors
var (
	ErrItemNotFound     = errors.New("item not found")
	ErrCreatureNotFound = errors.New("creature not found")
	ErrNoSuchFood       = errors.New("food not in inventory")
)

// Stage name suffixes, indexed by evolution stage.
var stageSuffixes = []string{"", "进化", "精英", "传说"}

// FeedResult describes the effect of feeding a creature.
type FeedResult struct {
	Creature     model.OwnedCreature
	PointsGained int
	LeveledUp    bool
	LearnedMove  *model.Move
}

// GardenService handles exploring, taming, buying food, feeding and
// choosing the active creature.
type GardenService struct {
	players *repository.PlayerRepository
	catalog *catalog.Catalog
	ledger  repository.Ledger
	clock   clockwork.Clock
	intn    func(n int) int
}

// NewGardenService creates a new GardenService instance.
func NewGardenService(
	players *repository.PlayerRepository,
	cat *catalog.Catalog,
	ledger repository.Ledger,
	clock clockwork.Clock,
) *GardenService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GardenService{
		players: players,
		catalog: cat,
		ledger:  ledger,
		clock:   clock,
		intn:    rand.Intn,
	}
}

// SetRandom replaces the spawn roll; intn must return a value in [0, n).
func (s *GardenService) SetRandom(intn func(n int) int) {
	s.intn = intn
}

// Forests returns every explorable forest.
func (s *GardenService) Forests() []model.Forest {
	return s.catalog.Forests()
}

// Explore validates a forest and returns it for display.
func (s *GardenService) Explore(ctx context.Context, forestID string) (model.Forest, error) {
	return s.catalog.Forest(forestID)
}

// Template looks up a creature template for display.
func (s *GardenService) Template(id string) (model.CreatureTemplate, error) {
	return s.catalog.TemplateOf(id)
}

// pickSpawn selects a spawn by cumulative weight for a roll in [0, total).
// Rolls outside every bucket fall back to the first spawn.
func pickSpawn(spawns []model.Spawn, roll int) model.Spawn {
	cumulative := 0
	for _, sp := range spawns {
		cumulative += sp.Chance
		if roll < cumulative {
			return sp
		}
	}
	return spawns[0]
}

func totalChance(spawns []model.Spawn) int {
	total := 0
	for _, sp := range spawns {
		total += sp.Chance
	}
	return total
}

// Tame draws a creature from the forest and adds it to the player's roster.
// The first creature a player owns becomes the active one.
func (s *GardenService) Tame(ctx context.Context, userID int64, forestID string) (*model.OwnedCreature, error) {
	forest, err := s.catalog.Forest(forestID)
	if err != nil {
		return nil, err
	}
	if len(forest.Spawns) == 0 {
		return nil, fmt.Errorf("forest %s has no creatures: %w", forestID, catalog.ErrTemplateNotFound)
	}

	roll := 0
	if total := totalChance(forest.Spawns); total > 0 {
		roll = s.intn(total)
	}
	spawn := pickSpawn(forest.Spawns, roll)

	tpl, err := s.catalog.TemplateOf(spawn.TemplateID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var tamed model.OwnedCreature
	_, err = s.players.Update(ctx, userID, func(p *model.PlayerRecord) error {
		base := fmt.Sprintf("%s_%d", tpl.ID, now.UnixNano())
		id := base
		for n := 2; ; n++ {
			if _, exists := p.Creature(id); !exists {
				break
			}
			id = fmt.Sprintf("%s_%d", base, n)
		}

		tamed = model.OwnedCreature{
			ID:         id,
			TemplateID: tpl.ID,
			Species:    tpl.Name,
			Name:       tpl.Name,
			Rarity:     tpl.Rarity,
			Element:    tpl.Element,
			Level:      1,
			HP:         tpl.BaseHP,
			Moves:      append([]model.Move(nil), tpl.Moves...),
			Evolution:  model.Evolution{Points: 0, MaxPoints: 100, Stage: 0},
			TamedAt:    now,
		}
		p.Creatures = append(p.Creatures, tamed)
		if p.ActiveCreature == "" {
			p.ActiveCreature = id
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to tame creature: %w", err)
	}
	return &tamed, nil
}

// BuyFood purchases one unit of food.
func (s *GardenService) BuyFood(ctx context.Context, userID int64, foodID string) (*model.PlayerRecord, error) {
	food, ok := shop.GetFood(foodID)
	if !ok {
		return nil, ErrItemNotFound
	}

	p, err := s.players.Update(ctx, userID, func(p *model.PlayerRecord) error {
		if p.Coins < food.Price {
			return ErrInsufficientBalance
		}
		p.Coins -= food.Price
		if i := p.Food(foodID); i >= 0 {
			p.Inventory.Food[i].Amount++
		} else {
			p.Inventory.Food = append(p.Inventory.Food, food.Stack(1))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	desc := "购买" + food.Name
	record(ctx, s.ledger, userID, -food.Price, model.TxTypeShopPurchase, &desc)
	return p, nil
}

// applyFood adds evolution points and performs at most one level-up.
func applyFood(c *model.OwnedCreature, power int) (bool, *model.Move) {
	c.Evolution.Points += power
	if c.Evolution.MaxPoints <= 0 {
		c.Evolution.MaxPoints = 100 * c.Level
	}
	if c.Evolution.Points < c.Evolution.MaxPoints {
		return false, nil
	}

	c.Evolution.Points -= c.Evolution.MaxPoints
	c.Level++
	c.Evolution.MaxPoints = 100 * c.Level
	c.Evolution.Stage++
	c.HP += c.HP * 20 / 100

	stage := c.Evolution.Stage
	if stage >= len(stageSuffixes) {
		stage = len(stageSuffixes) - 1
	}
	c.Name = fmt.Sprintf("%s·%s", c.Species, stageSuffixes[stage])

	var learned *model.Move
	if len(c.Moves) > 0 {
		first := c.Moves[0].Damage
		switch {
		case c.Evolution.Stage == 1 && len(c.Moves) < 4:
			learned = &model.Move{Name: c.Species + "·强力一击", Damage: first * 3 / 2, Cooldown: 3}
		case c.Evolution.Stage == 3 && len(c.Moves) < 5:
			learned = &model.Move{Name: "终极奥义", Damage: first * 5 / 2, Cooldown: 5}
		}
	}
	if learned != nil {
		c.Moves = append(c.Moves, *learned)
	}
	return true, learned
}

// Feed consumes one unit of food and grows the creature.
func (s *GardenService) Feed(ctx context.Context, userID int64, creatureID, foodID string) (*FeedResult, error) {
	var result FeedResult
	_, err := s.players.Update(ctx, userID, func(p *model.PlayerRecord) error {
		c, ok := p.Creature(creatureID)
		if !ok {
			return ErrCreatureNotFound
		}
		i := p.Food(foodID)
		if i < 0 || p.Inventory.Food[i].Amount <= 0 {
			return ErrNoSuchFood
		}

		stack := &p.Inventory.Food[i]
		power := stack.EvolvePower
		stack.Amount--
		if stack.Amount == 0 {
			p.Inventory.Food = append(p.Inventory.Food[:i], p.Inventory.Food[i+1:]...)
		}

		leveled, learned := applyFood(c, power)
		result = FeedResult{
			Creature:     c.Clone(),
			PointsGained: power,
			LeveledUp:    leveled,
			LearnedMove:  learned,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SetActive makes one of the player's creatures the active duelist.
func (s *GardenService) SetActive(ctx context.Context, userID int64, creatureID string) (*model.OwnedCreature, error) {
	var active model.OwnedCreature
	_, err := s.players.Update(ctx, userID, func(p *model.PlayerRecord) error {
		c, ok := p.Creature(creatureID)
		if !ok {
			return ErrCreatureNotFound
		}
		p.ActiveCreature = c.ID
		active = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &active, nil
}
