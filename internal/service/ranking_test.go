package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garden-bot/internal/model"
)

func TestRankingService(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ranking := NewRankingService(env.players, env.ledger, time.UTC, env.clock)

	_, _, err := env.account.EnsurePlayer(ctx, 1, "alice")
	require.NoError(t, err)
	_, _, err = env.account.EnsurePlayer(ctx, 2, "bob")
	require.NoError(t, err)

	_, err = env.account.UpdateBalance(ctx, 2, 1000, model.TxTypeDuelReward, nil)
	require.NoError(t, err)
	_, err = env.account.UpdateBalance(ctx, 1, 500, model.TxTypeAdminAdd, nil)
	require.NoError(t, err)

	top, err := ranking.GetTopPlayers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "bob", top[0].Username)

	winners, err := ranking.GetDailyDuelWinners(ctx, 10)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, int64(2), winners[0].UserID)
	assert.Equal(t, "bob", winners[0].Username)
	assert.Equal(t, int64(1000), winners[0].Total)
}
