// Property-based tests for GardenService.
package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"garden-bot/internal/catalog"
	"garden-bot/internal/model"
	"garden-bot/internal/shop"
)

func newGarden(t *testing.T, env *testEnv) *GardenService {
	cat, err := catalog.Defaults()
	require.NoError(t, err)
	return NewGardenService(env.players, cat, env.ledger, env.clock)
}

// TestPickSpawnProperty tests that every roll maps to the bucket whose
// cumulative range contains it.
func TestPickSpawnProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "n")
		spawns := make([]model.Spawn, n)
		for i := range spawns {
			spawns[i] = model.Spawn{
				TemplateID: string(rune('a' + i)),
				Chance:     rapid.IntRange(1, 100).Draw(t, "chance"),
			}
		}
		total := totalChance(spawns)
		roll := rapid.IntRange(0, total-1).Draw(t, "roll")

		got := pickSpawn(spawns, roll)

		lo := 0
		for _, sp := range spawns {
			if roll >= lo && roll < lo+sp.Chance {
				if got.TemplateID != sp.TemplateID {
					t.Fatalf("roll %d: expected %s, got %s", roll, sp.TemplateID, got.TemplateID)
				}
				return
			}
			lo += sp.Chance
		}
		t.Fatalf("roll %d fell outside all buckets", roll)
	})
}

// TestGrowthMonotonicProperty tests that feeding never decreases level,
// stage, max HP or lifetime points.
func TestGrowthMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := model.OwnedCreature{
			Species:   "灰狼",
			Name:      "灰狼",
			Level:     1,
			HP:        100,
			Moves:     []model.Move{{Name: "撕咬", Damage: 20, Cooldown: 1}, {Name: "狼爪", Damage: 35, Cooldown: 2}},
			Evolution: model.Evolution{MaxPoints: 100},
		}
		feeds := rapid.SliceOfN(rapid.SampledFrom([]int{10, 30, 50, 80, 100, 200}), 1, 40).Draw(t, "feeds")

		lifetime := 0
		for _, power := range feeds {
			before := c.Clone()
			lifetimeBefore := lifetime
			applyFood(&c, power)
			lifetime = (c.Level-1)*c.Level/2*100 + c.Evolution.Points

			if c.Level < before.Level || c.Evolution.Stage < before.Evolution.Stage || c.HP < before.HP {
				t.Fatalf("growth decreased: before=%+v after=%+v", before, c)
			}
			if lifetime < lifetimeBefore {
				t.Fatalf("lifetime points decreased: %d -> %d", lifetimeBefore, lifetime)
			}
			if c.Evolution.MaxPoints != 100*c.Level {
				t.Fatalf("threshold must be 100*level, got %d at level %d", c.Evolution.MaxPoints, c.Level)
			}
			if len(c.Moves) > 5 {
				t.Fatalf("too many moves: %d", len(c.Moves))
			}
		}
	})
}

func TestApplyFoodLevelUp(t *testing.T) {
	c := model.OwnedCreature{
		Species:   "灰狼",
		Name:      "灰狼",
		Level:     1,
		HP:        100,
		Moves:     []model.Move{{Name: "撕咬", Damage: 20, Cooldown: 1}, {Name: "狼爪", Damage: 35, Cooldown: 2}},
		Evolution: model.Evolution{Points: 90, MaxPoints: 100},
	}

	leveled, learned := applyFood(&c, 30)
	assert.True(t, leveled)
	assert.Equal(t, 2, c.Level)
	assert.Equal(t, 20, c.Evolution.Points)
	assert.Equal(t, 200, c.Evolution.MaxPoints)
	assert.Equal(t, 1, c.Evolution.Stage)
	assert.Equal(t, 120, c.HP)
	assert.Equal(t, "灰狼·进化", c.Name)
	require.NotNil(t, learned)
	assert.Equal(t, 30, learned.Damage)
	assert.Equal(t, 3, learned.Cooldown)
	assert.Len(t, c.Moves, 3)

	leveled, learned = applyFood(&c, 10)
	assert.False(t, leveled)
	assert.Nil(t, learned)
	assert.Equal(t, 30, c.Evolution.Points)
}

func TestTameFirstCreatureBecomesActive(t *testing.T) {
	env := newTestEnv()
	garden := newGarden(t, env)
	ctx := context.Background()

	garden.SetRandom(func(n int) int { return 0 })
	first, err := garden.Tame(ctx, 1, "pine_forest")
	require.NoError(t, err)
	assert.Equal(t, "wolf1", first.TemplateID)
	assert.Equal(t, 100, first.HP)
	assert.Equal(t, 1, first.Level)

	garden.SetRandom(func(n int) int { return n - 1 })
	second, err := garden.Tame(ctx, 1, "pine_forest")
	require.NoError(t, err)
	assert.Equal(t, "rare_wolf", second.TemplateID)
	assert.NotEqual(t, first.ID, second.ID)

	p, err := env.players.Get(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, p.Creatures, 2)
	assert.Equal(t, first.ID, p.ActiveCreature)

	_, err = garden.Tame(ctx, 1, "ocean")
	assert.ErrorIs(t, err, catalog.ErrForestNotFound)
}

func TestBuyFood(t *testing.T) {
	env := newTestEnv()
	garden := newGarden(t, env)
	ctx := context.Background()

	p, err := garden.BuyFood(ctx, 1, shop.FoodBasic)
	require.NoError(t, err)
	assert.Equal(t, int64(900), p.Coins)
	assert.Equal(t, 6, p.Inventory.Food[p.Food(shop.FoodBasic)].Amount)

	p, err = garden.BuyFood(ctx, 1, shop.FoodPremium)
	require.NoError(t, err)
	assert.Equal(t, int64(600), p.Coins)
	assert.Equal(t, 1, p.Inventory.Food[p.Food(shop.FoodPremium)].Amount)

	_, err = garden.BuyFood(ctx, 1, shop.FoodAncientFeast)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = garden.BuyFood(ctx, 1, "cake")
	assert.ErrorIs(t, err, ErrItemNotFound)

	got, err := env.players.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(600), got.Coins)

	txs, err := env.ledger.GetByUserID(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestFeedAndSetActive(t *testing.T) {
	env := newTestEnv()
	garden := newGarden(t, env)
	ctx := context.Background()

	garden.SetRandom(func(n int) int { return 0 })
	wolf, err := garden.Tame(ctx, 1, "pine_forest")
	require.NoError(t, err)

	res, err := garden.Feed(ctx, 1, wolf.ID, shop.FoodBasic)
	require.NoError(t, err)
	assert.Equal(t, 10, res.PointsGained)
	assert.Equal(t, 10, res.Creature.Evolution.Points)
	assert.False(t, res.LeveledUp)

	for i := 0; i < 4; i++ {
		_, err = garden.Feed(ctx, 1, wolf.ID, shop.FoodBasic)
		require.NoError(t, err)
	}
	p, err := env.players.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, -1, p.Food(shop.FoodBasic), "empty stack is removed")

	_, err = garden.Feed(ctx, 1, wolf.ID, shop.FoodBasic)
	assert.ErrorIs(t, err, ErrNoSuchFood)
	_, err = garden.Feed(ctx, 1, "nope", shop.FoodBasic)
	assert.ErrorIs(t, err, ErrCreatureNotFound)

	garden.SetRandom(func(n int) int { return n - 1 })
	rare, err := garden.Tame(ctx, 1, "volcano")
	require.NoError(t, err)
	assert.Equal(t, "phoenix1", rare.TemplateID)

	active, err := garden.SetActive(ctx, 1, rare.ID)
	require.NoError(t, err)
	assert.Equal(t, rare.ID, active.ID)

	p, err = env.players.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, rare.ID, p.ActiveCreature)

	_, err = garden.SetActive(ctx, 1, "nope")
	assert.ErrorIs(t, err, ErrCreatureNotFound)
}
