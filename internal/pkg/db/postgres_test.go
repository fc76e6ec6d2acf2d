package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garden-bot/internal/config"
)

func TestPoolConfigDefaults(t *testing.T) {
	pc, err := poolConfig(&config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "garden", Password: "pw", Name: "garden",
		PoolSize: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(2), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, defaultConnectTimeout, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, defaultMaxConnLifetime, pc.MaxConnLifetime)
	assert.Equal(t, defaultMaxConnIdleTime, pc.MaxConnIdleTime)
	assert.Equal(t, "garden", pc.ConnConfig.Database)
}

func TestPoolConfigOverrides(t *testing.T) {
	pc, err := poolConfig(&config.DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Name: "n",
		PoolSize:        20,
		ConnectTimeout:  3 * time.Second,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(20), pc.MaxConns)
	assert.Equal(t, int32(5), pc.MinConns)
	assert.Equal(t, 3*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, 5*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
}
