// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"garden-bot/internal/model"
	"garden-bot/internal/pkg/lock"
	"garden-bot/internal/store"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound   = errors.New("player not found")
	ErrTooManyConflicts = errors.New("player record kept changing, giving up")
)

// PlayerOptions configures how new players are bootstrapped and how hard
// Update retries on version conflicts.
type PlayerOptions struct {
	StartingCoins int64
	StarterFood   []model.FoodStack
	RetryAttempts int
	Clock         clockwork.Clock
}

// PlayerRepository handles player record persistence.
// Every mutation runs under the player's lock and is saved with a version
// check, so concurrent commands against one player cannot lose updates.
type PlayerRepository struct {
	store store.RecordStore
	locks *lock.UserLock
	opts  PlayerOptions
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(s store.RecordStore, locks *lock.UserLock, opts PlayerOptions) *PlayerRepository {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if locks == nil {
		locks = lock.NewUserLock()
	}
	return &PlayerRepository{store: s, locks: locks, opts: opts}
}

func playerKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (r *PlayerRepository) newPlayer(userID int64, username string) *model.PlayerRecord {
	now := r.opts.Clock.Now()
	food := make([]model.FoodStack, len(r.opts.StarterFood))
	copy(food, r.opts.StarterFood)
	return &model.PlayerRecord{
		UserID:    userID,
		Username:  username,
		Coins:     r.opts.StartingCoins,
		Creatures: []model.OwnedCreature{},
		Inventory: model.Inventory{Food: food},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func decodePlayer(rec *store.Record) (*model.PlayerRecord, error) {
	var p model.PlayerRecord
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode player %s: %w", rec.Key, err)
	}
	p.Version = rec.Version
	return &p, nil
}

// load reads a player; a missing record is returned as a fresh, unsaved
// player with version 0.
func (r *PlayerRepository) load(ctx context.Context, userID int64, username string) (*model.PlayerRecord, bool, error) {
	rec, err := r.store.Load(ctx, model.CollectionPlayers, playerKey(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return r.newPlayer(userID, username), true, nil
		}
		return nil, false, fmt.Errorf("failed to load player: %w", err)
	}
	p, err := decodePlayer(rec)
	if err != nil {
		return nil, false, err
	}
	return p, false, nil
}

func (r *PlayerRepository) save(ctx context.Context, p *model.PlayerRecord) error {
	p.UpdatedAt = r.opts.Clock.Now()
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode player: %w", err)
	}
	version, err := r.store.Save(ctx, model.CollectionPlayers, store.Record{
		Key:     playerKey(p.UserID),
		Data:    data,
		Version: p.Version,
	})
	if err != nil {
		return err
	}
	p.Version = version
	return nil
}

// Get retrieves a player by Telegram ID.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) Get(ctx context.Context, userID int64) (*model.PlayerRecord, error) {
	rec, err := r.store.Load(ctx, model.CollectionPlayers, playerKey(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return decodePlayer(rec)
}

// GetOrCreate gets an existing player or creates a new one.
// Returns the player and a boolean indicating if the player was created.
func (r *PlayerRepository) GetOrCreate(ctx context.Context, userID int64, username string) (*model.PlayerRecord, bool, error) {
	if p, err := r.Get(ctx, userID); err == nil {
		return p, false, nil
	} else if !errors.Is(err, ErrPlayerNotFound) {
		return nil, false, err
	}

	var created bool
	p, err := r.update(ctx, userID, username, func(p *model.PlayerRecord) error {
		created = p.Version == 0
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return p, created, nil
}

// Update runs fn against the current player record and saves the result.
// A missing player is bootstrapped first. If fn returns an error nothing is
// saved and the error is returned unchanged. fn may run more than once when
// the record is changed underneath it, so it must only touch the record it
// is given.
func (r *PlayerRepository) Update(ctx context.Context, userID int64, fn func(p *model.PlayerRecord) error) (*model.PlayerRecord, error) {
	return r.update(ctx, userID, "", fn)
}

func (r *PlayerRepository) update(ctx context.Context, userID int64, username string, fn func(p *model.PlayerRecord) error) (*model.PlayerRecord, error) {
	if err := r.locks.LockContext(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to lock player: %w", err)
	}
	defer r.locks.Unlock(userID)

	for attempt := 1; attempt <= r.opts.RetryAttempts; attempt++ {
		p, _, err := r.load(ctx, userID, username)
		if err != nil {
			return nil, err
		}
		if username != "" && p.Username != username {
			p.Username = username
		}

		if err := fn(p); err != nil {
			return nil, err
		}

		err = r.save(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to save player: %w", err)
		}
		log.Warn().
			Int64("user_id", userID).
			Int("attempt", attempt).
			Msg("Player record version conflict, retrying")
	}

	return nil, ErrTooManyConflicts
}

// List returns every stored player.
func (r *PlayerRepository) List(ctx context.Context) ([]*model.PlayerRecord, error) {
	recs, err := r.store.LoadAll(ctx, model.CollectionPlayers)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	players := make([]*model.PlayerRecord, 0, len(recs))
	for i := range recs {
		p, err := decodePlayer(&recs[i])
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

// GetTopPlayers retrieves the top players by coins.
func (r *PlayerRepository) GetTopPlayers(ctx context.Context, limit int) ([]*model.PlayerRecord, error) {
	players, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Coins > players[j].Coins
	})
	if limit > 0 && len(players) > limit {
		players = players[:limit]
	}
	return players, nil
}
