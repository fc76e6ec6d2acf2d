package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Store.RetryAttempts)
	assert.Equal(t, int64(1000), cfg.Garden.StartingCoins)
	assert.Equal(t, 30*time.Second, cfg.Garden.TameCooldown)
	assert.Equal(t, 10*time.Minute, cfg.Garden.Duel.Timeout)
	assert.Equal(t, int64(1000), cfg.Garden.Duel.Reward)
	assert.False(t, cfg.Garden.Duel.ResetTimerOnMove)
	assert.Equal(t, time.Minute, cfg.Garden.Duel.Retain)
	assert.Equal(t, int64(500), cfg.Daily.Reward)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
store:
  driver: bolt
  bolt_path: /tmp/garden.db
garden:
  duel:
    timeout: 90s
    reset_timer_on_move: true
admin:
  ids: [1, 2]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("BOT_TOKEN", "secret")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Bot.Token)
	assert.Equal(t, DriverBolt, cfg.Store.Driver)
	assert.Equal(t, "/tmp/garden.db", cfg.Store.BoltPath)
	assert.Equal(t, 90*time.Second, cfg.Garden.Duel.Timeout)
	assert.True(t, cfg.Garden.Duel.ResetTimerOnMove)
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(3))
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Store:  StoreConfig{Driver: "mongo"},
		Garden: GardenConfig{Duel: DuelConfig{Timeout: time.Minute}},
	}
	assert.Error(t, cfg.Validate())

	cfg.Store.Driver = DriverBolt
	assert.Error(t, cfg.Validate(), "bolt needs a path")

	cfg.Store.BoltPath = "garden.db"
	assert.NoError(t, cfg.Validate())

	cfg.Garden.Duel.Timeout = 0
	assert.Error(t, cfg.Validate())
}

func TestIsChatAllowed(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.IsChatAllowed(-100), "empty whitelist allows all")

	cfg.Whitelist.Chats = []int64{-100}
	assert.True(t, cfg.IsChatAllowed(-100))
	assert.False(t, cfg.IsChatAllowed(-200))
}
