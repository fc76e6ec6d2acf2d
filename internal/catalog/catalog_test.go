package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garden-bot/internal/model"
	"garden-bot/internal/store"
)

func TestDefaults(t *testing.T) {
	c, err := Defaults()
	require.NoError(t, err)

	wolf, err := c.TemplateOf("wolf1")
	require.NoError(t, err)
	assert.Equal(t, 100, wolf.BaseHP)
	require.Len(t, wolf.Moves, 2)
	assert.Equal(t, 20, wolf.Moves[0].Damage)
	assert.Equal(t, 35, wolf.Moves[1].Damage)

	phoenix, err := c.TemplateOf("phoenix1")
	require.NoError(t, err)
	assert.Equal(t, 120, phoenix.BaseHP)
	assert.Len(t, phoenix.Moves, 3)

	forests := c.Forests()
	require.Len(t, forests, 2)
	assert.Equal(t, "pine_forest", forests[0].ID)
	assert.Equal(t, "volcano", forests[1].ID)
}

func TestTemplateOfNotFound(t *testing.T) {
	c, err := Defaults()
	require.NoError(t, err)

	_, err = c.TemplateOf("dragon")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = c.Forest("ocean")
	assert.ErrorIs(t, err, ErrForestNotFound)
}

func TestTemplateOfReturnsCopy(t *testing.T) {
	c, err := Defaults()
	require.NoError(t, err)

	wolf, err := c.TemplateOf("wolf1")
	require.NoError(t, err)
	wolf.Moves[0].Damage = 9999

	again, err := c.TemplateOf("wolf1")
	require.NoError(t, err)
	assert.Equal(t, 20, again.Moves[0].Damage)
}

func TestNewRejectsUnknownSpawn(t *testing.T) {
	_, err := New(
		[]model.CreatureTemplate{{ID: "a", BaseHP: 10, Moves: []model.Move{{Name: "hit", Damage: 1}}}},
		[]model.Forest{{ID: "f", Spawns: []model.Spawn{{TemplateID: "b", Chance: 1}}}},
	)
	assert.Error(t, err)
}

func TestLoadSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	c, err := Load(ctx, s)
	require.NoError(t, err)
	_, err = c.TemplateOf("rare_wolf")
	require.NoError(t, err)

	recs, err := s.LoadAll(ctx, model.CollectionCatalog)
	require.NoError(t, err)
	assert.Len(t, recs, 6)

	recs, err = s.LoadAll(ctx, model.CollectionForests)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestLoadPrefersStoredCatalog(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	custom := model.CreatureTemplate{
		ID:     "slime",
		Name:   "史莱姆",
		BaseHP: 50,
		Moves:  []model.Move{{Name: "弹跳", Damage: 5, Cooldown: 1}},
	}
	data, err := json.Marshal(custom)
	require.NoError(t, err)
	_, err = s.Save(ctx, model.CollectionCatalog, store.Record{Key: custom.ID, Data: data})
	require.NoError(t, err)

	c, err := Load(ctx, s)
	require.NoError(t, err)

	got, err := c.TemplateOf("slime")
	require.NoError(t, err)
	assert.Equal(t, 50, got.BaseHP)

	_, err = c.TemplateOf("wolf1")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Empty(t, c.Forests())
}
