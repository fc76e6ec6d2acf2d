package duel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"garden-bot/internal/catalog"
	"garden-bot/internal/model"
	"garden-bot/internal/repository"
	"garden-bot/internal/store"
)

const (
	playerX int64 = 1001
	playerY int64 = 2002
)

// failingStore fails every player save once broken is set, and every
// player load once unreachable is set.
type failingStore struct {
	*store.MemoryStore
	broken      atomic.Bool
	unreachable atomic.Bool
}

func (s *failingStore) Load(ctx context.Context, collection, key string) (*store.Record, error) {
	if s.unreachable.Load() && collection == model.CollectionPlayers {
		return nil, errors.New("connection refused")
	}
	return s.MemoryStore.Load(ctx, collection, key)
}

func (s *failingStore) Save(ctx context.Context, collection string, rec store.Record) (int64, error) {
	if s.broken.Load() && collection == model.CollectionPlayers {
		return 0, errors.New("disk on fire")
	}
	return s.MemoryStore.Save(ctx, collection, rec)
}

// countingSettlement counts Settle calls.
type countingSettlement struct {
	calls atomic.Int64
	err   error
}

func (s *countingSettlement) Settle(_ context.Context, snap Snapshot) (int64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	if !snap.HasWinner() {
		return 0, nil
	}
	return DefaultReward, nil
}

type fixture struct {
	clock   *clockwork.FakeClock
	store   *failingStore
	players *repository.PlayerRepository
	engine  *Engine
}

func newFixture(t testing.TB, settle func(*repository.PlayerRepository) Settlement, window time.Duration, resetOnMove bool, retain time.Duration) *fixture {
	cat, err := catalog.Defaults()
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(t0)
	st := &failingStore{MemoryStore: store.NewMemoryStore()}
	players := repository.NewPlayerRepository(st, nil, repository.PlayerOptions{StartingCoins: 1000, Clock: clock})

	var s Settlement
	if settle != nil {
		s = settle(players)
	} else {
		s = NewRewardSettlement(players, repository.NewStoreLedger(st.MemoryStore, clock), DefaultReward)
	}

	f := &fixture{
		clock:   clock,
		store:   st,
		players: players,
		engine: NewEngine(NewRegistry(), cat, players, s,
			NewTurnClock(clock, window, resetOnMove), Config{Retain: retain}),
	}
	f.givePet(t, playerX, "wolf1", 100)
	f.givePet(t, playerY, "wolf1", 100)
	return f
}

func (f *fixture) givePet(t testing.TB, userID int64, templateID string, hp int) {
	_, err := f.players.Update(context.Background(), userID, func(p *model.PlayerRecord) error {
		p.Username = templateID
		p.Creatures = []model.OwnedCreature{{
			ID:         templateID + "_pet",
			TemplateID: templateID,
			Species:    templateID,
			Name:       templateID,
			Level:      1,
			HP:         hp,
			Moves: []model.Move{
				{Name: "撕咬", Damage: 20, Cooldown: 1},
				{Name: "狼爪", Damage: 35, Cooldown: 2},
			},
		}}
		p.ActiveCreature = templateID + "_pet"
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) coins(t testing.TB, userID int64) int64 {
	p, err := f.players.Get(context.Background(), userID)
	require.NoError(t, err)
	return p.Coins
}

func (f *fixture) version(t testing.TB, userID int64) int64 {
	p, err := f.players.Get(context.Background(), userID)
	require.NoError(t, err)
	return p.Version
}

func TestChallengeStartsWithChallenger(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, 0)

	snap, err := f.engine.Challenge(context.Background(), playerX, playerY)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, StatusActive, snap.Status)
	assert.Equal(t, playerX, snap.TurnHolder)
	assert.Equal(t, 0, snap.Round)
	assert.Equal(t, 100, snap.Contestants[0].HP)
	assert.Equal(t, 100, snap.Contestants[1].HP)
	assert.Equal(t, 1, f.engine.Registry().Len())

	c, ok := f.engine.Registry().ActiveFor(playerY)
	require.True(t, ok)
	assert.Equal(t, snap.SessionID, c.ID())
	_, ok = f.engine.Registry().ActiveFor(42)
	assert.False(t, ok)
}

func TestChallengePreconditions(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, 0)
	ctx := context.Background()

	_, err := f.engine.Challenge(ctx, playerX, playerX)
	assert.ErrorIs(t, err, ErrSelfChallenge)

	_, err = f.engine.Challenge(ctx, playerX, 42)
	assert.ErrorIs(t, err, ErrNoActiveCreature)

	_, err = f.players.Update(ctx, 43, func(p *model.PlayerRecord) error {
		p.Creatures = []model.OwnedCreature{{ID: "ghost", TemplateID: "dragon"}}
		p.ActiveCreature = "ghost"
		return nil
	})
	require.NoError(t, err)
	_, err = f.engine.Challenge(ctx, playerX, 43)
	assert.ErrorIs(t, err, catalog.ErrTemplateNotFound)

	_, err = f.engine.Challenge(ctx, playerX, playerY)
	require.NoError(t, err)
	_, err = f.engine.Challenge(ctx, playerY, playerX)
	assert.ErrorIs(t, err, ErrAlreadyInContest)

	assert.Equal(t, 1, f.engine.Registry().Len())
}

func TestChallengeCapsHPAtTemplateBase(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, 0)
	f.givePet(t, playerY, "wolf1", 144)

	snap, err := f.engine.Challenge(context.Background(), playerX, playerY)
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Contestants[1].HP)
	assert.Equal(t, 144, snap.Contestants[1].Creature.HP)
}

func TestDuelDoesNotTouchRoster(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, 0)
	ctx := context.Background()

	snap, err := f.engine.Challenge(ctx, playerX, playerY)
	require.NoError(t, err)
	_, err = f.engine.ApplyMove(ctx, snap.SessionID, playerX, Attack(1))
	require.NoError(t, err)

	p, err := f.players.Get(ctx, playerY)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Creatures[0].HP)
}

func TestScenarioCKnockoutPaysOnce(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, time.Minute)
	ctx := context.Background()

	snap, err := f.engine.Challenge(ctx, playerX, playerY)
	require.NoError(t, err)
	id := snap.SessionID
	yVersion := f.version(t, playerY)

	steps := []struct {
		actor int64
		yHP   int
	}{
		{playerX, 65},
		{playerY, 65},
		{playerX, 30},
		{playerY, 30},
	}
	for _, s := range steps {
		choice := Attack(1)
		if s.actor == playerY {
			choice = Attack(0)
		}
		out, err := f.engine.ApplyMove(ctx, id, s.actor, choice)
		require.NoError(t, err)
		assert.False(t, out.Ended)
		assert.Equal(t, s.yHP, out.Snapshot.Contestants[1].HP)
	}

	out, err := f.engine.ApplyMove(ctx, id, playerX, Attack(1))
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Equal(t, 0, out.Effect.TargetHP)
	assert.Equal(t, 30, out.Effect.Damage)
	assert.Equal(t, StatusEnded, out.Snapshot.Status)
	assert.Equal(t, playerX, out.Snapshot.Winner)
	assert.Equal(t, EndKnockout, out.Snapshot.Reason)
	assert.Equal(t, 5, out.Snapshot.Round)
	assert.Equal(t, DefaultReward, out.Reward)
	assert.NoError(t, out.RewardErr)

	assert.Equal(t, int64(2000), f.coins(t, playerX))
	assert.Equal(t, yVersion, f.version(t, playerY), "loser record untouched")

	// Further actions are rejected without paying again.
	_, err = f.engine.ApplyMove(ctx, id, playerY, Attack(0))
	assert.ErrorIs(t, err, ErrContestAlreadyEnded)
	_, err = f.engine.ApplyMove(ctx, id, playerX, Attack(1))
	assert.ErrorIs(t, err, ErrContestAlreadyEnded)
	assert.False(t, f.engine.TimeoutTick(id))
	assert.Equal(t, int64(2000), f.coins(t, playerX))

	// Retired sessions leave the registry after the retention window.
	f.clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return f.engine.Registry().Len() == 0 }, time.Second, 5*time.Millisecond)
	_, err = f.engine.ApplyMove(ctx, id, playerY, Attack(0))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestScenarioDTimeoutNoWinner(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, 0)
	ctx := context.Background()

	fired := make(chan Snapshot, 1)
	f.engine.OnTimeout(func(s Snapshot) { fired <- s })

	snap, err := f.engine.Challenge(ctx, playerX, playerY)
	require.NoError(t, err)
	xVersion, yVersion := f.version(t, playerX), f.version(t, playerY)

	_, err = f.engine.ApplyMove(ctx, snap.SessionID, playerX, Attack(0))
	require.NoError(t, err)

	f.clock.Advance(DefaultTimeout - time.Second)
	select {
	case <-fired:
		t.Fatal("timeout fired early")
	case <-time.After(20 * time.Millisecond):
	}

	f.clock.Advance(time.Second)
	select {
	case s := <-fired:
		assert.Equal(t, snap.SessionID, s.SessionID)
		assert.Equal(t, StatusEnded, s.Status)
		assert.Equal(t, EndTimeout, s.Reason)
		assert.False(t, s.HasWinner())
		assert.Equal(t, 1, s.Round)
	case <-time.After(time.Second):
		t.Fatal("timeout did not fire")
	}

	assert.Equal(t, 0, f.engine.Registry().Len())
	assert.Equal(t, xVersion, f.version(t, playerX))
	assert.Equal(t, yVersion, f.version(t, playerY))

	_, err = f.engine.ApplyMove(ctx, snap.SessionID, playerY, Attack(0))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestScenarioERejectedMoveChangesNothing(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, 0)
	ctx := context.Background()

	snap, err := f.engine.Challenge(ctx, playerX, playerY)
	require.NoError(t, err)

	_, err = f.engine.ApplyMove(ctx, snap.SessionID, playerY, Attack(1))
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.True(t, IsRejection(err))

	_, err = f.engine.ApplyMove(ctx, snap.SessionID, playerX, Attack(9))
	assert.ErrorIs(t, err, ErrInvalidMoveChoice)

	_, err = f.engine.ApplyMove(ctx, "missing", playerX, Attack(0))
	assert.ErrorIs(t, err, ErrSessionNotFound)

	after, err := f.engine.Get(snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, snap, after)
}

func TestKnockoutStopsTurnClock(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, 0)
	f.givePet(t, playerY, "wolf1", 20)
	ctx := context.Background()

	var timeouts atomic.Int64
	f.engine.OnTimeout(func(Snapshot) { timeouts.Add(1) })

	snap, err := f.engine.Challenge(ctx, playerX, playerY)
	require.NoError(t, err)

	out, err := f.engine.ApplyMove(ctx, snap.SessionID, playerX, Attack(0))
	require.NoError(t, err)
	require.True(t, out.Ended)

	f.clock.Advance(2 * DefaultTimeout)
	assert.Never(t, func() bool { return timeouts.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, int64(2000), f.coins(t, playerX))
}

func TestResetTimerOnMove(t *testing.T) {
	window := 5 * time.Minute
	f := newFixture(t, nil, window, true, 0)
	ctx := context.Background()

	fired := make(chan Snapshot, 1)
	f.engine.OnTimeout(func(s Snapshot) { fired <- s })

	snap, err := f.engine.Challenge(ctx, playerX, playerY)
	require.NoError(t, err)

	f.clock.Advance(4 * time.Minute)
	_, err = f.engine.ApplyMove(ctx, snap.SessionID, playerX, Defend())
	require.NoError(t, err)

	f.clock.Advance(4 * time.Minute)
	select {
	case <-fired:
		t.Fatal("window was not reset by the move")
	case <-time.After(20 * time.Millisecond):
	}

	f.clock.Advance(time.Minute)
	select {
	case s := <-fired:
		assert.Equal(t, EndTimeout, s.Reason)
	case <-time.After(time.Second):
		t.Fatal("timeout did not fire")
	}
}

func TestSettlementFailureKeepsOutcome(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, time.Minute)
	f.givePet(t, playerY, "wolf1", 20)
	ctx := context.Background()

	snap, err := f.engine.Challenge(ctx, playerX, playerY)
	require.NoError(t, err)

	f.store.broken.Store(true)
	out, err := f.engine.ApplyMove(ctx, snap.SessionID, playerX, Attack(0))
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Equal(t, playerX, out.Snapshot.Winner)
	assert.Error(t, out.RewardErr)
	assert.Zero(t, out.Reward)

	f.store.broken.Store(false)
	assert.Equal(t, int64(1000), f.coins(t, playerX))

	_, err = f.engine.ApplyMove(ctx, snap.SessionID, playerY, Attack(0))
	assert.ErrorIs(t, err, ErrContestAlreadyEnded)
}

func TestChallengeSurfacesStoreErrors(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, 0)
	f.store.unreachable.Store(true)

	_, err := f.engine.Challenge(context.Background(), playerX, playerY)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoActiveCreature)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, f.engine.Registry().Len())

	f.store.unreachable.Store(false)
	_, err = f.engine.Challenge(context.Background(), playerX, playerY)
	assert.NoError(t, err)
}

func TestCancelFreesPlayers(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, time.Minute)
	var timeouts atomic.Int64
	f.engine.OnTimeout(func(Snapshot) { timeouts.Add(1) })
	ctx := context.Background()

	snap, err := f.engine.Challenge(ctx, playerX, playerY)
	require.NoError(t, err)

	assert.True(t, f.engine.Cancel(snap.SessionID))
	assert.False(t, f.engine.Cancel(snap.SessionID))
	assert.Equal(t, 0, f.engine.Registry().Len())
	_, err = f.engine.Get(snap.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.engine.Challenge(ctx, playerY, playerX)
	require.NoError(t, err)

	f.clock.Advance(DefaultTimeout - time.Second)
	assert.Never(t, func() bool { return timeouts.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, int64(1000), f.coins(t, playerX))
	assert.Equal(t, int64(1000), f.coins(t, playerY))
}

func TestShutdownEndsEverything(t *testing.T) {
	f := newFixture(t, nil, DefaultTimeout, false, 0)
	var timeouts atomic.Int64
	f.engine.OnTimeout(func(Snapshot) { timeouts.Add(1) })

	_, err := f.engine.Challenge(context.Background(), playerX, playerY)
	require.NoError(t, err)

	f.engine.Shutdown()
	assert.Equal(t, 0, f.engine.Registry().Len())

	f.clock.Advance(DefaultTimeout)
	assert.Never(t, func() bool { return timeouts.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

// TestFinalMoveRacesTimeoutProperty tests that when the finishing move and
// the timeout race, exactly one of them ends the contest and the reward is
// settled at most once.
func TestFinalMoveRacesTimeoutProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		attempts := rapid.IntRange(1, 6).Draw(rt, "attempts")

		settle := &countingSettlement{}
		f := newFixture(t, func(*repository.PlayerRepository) Settlement { return settle }, DefaultTimeout, false, time.Hour)
		f.givePet(t, playerY, "wolf1", 20)
		ctx := context.Background()

		snap, err := f.engine.Challenge(ctx, playerX, playerY)
		if err != nil {
			rt.Fatalf("challenge: %v", err)
		}

		var knockouts, timeouts atomic.Int64
		var wg sync.WaitGroup
		wg.Add(attempts * 2)
		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				out, err := f.engine.ApplyMove(ctx, snap.SessionID, playerX, Attack(0))
				if err == nil && out.Ended {
					knockouts.Add(1)
				}
			}()
			go func() {
				defer wg.Done()
				if f.engine.TimeoutTick(snap.SessionID) {
					timeouts.Add(1)
				}
			}()
		}
		wg.Wait()

		if knockouts.Load()+timeouts.Load() != 1 {
			rt.Fatalf("expected exactly one ending, got %d knockouts and %d timeouts", knockouts.Load(), timeouts.Load())
		}
		if settle.calls.Load() != knockouts.Load() {
			rt.Fatalf("settled %d times for %d knockouts", settle.calls.Load(), knockouts.Load())
		}
	})
}
