package duel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"garden-bot/internal/model"
	"garden-bot/internal/repository"
)

// TemplateSource looks up creature templates.
type TemplateSource interface {
	TemplateOf(id string) (model.CreatureTemplate, error)
}

// PlayerSource reads player records.
type PlayerSource interface {
	Get(ctx context.Context, userID int64) (*model.PlayerRecord, error)
}

// Outcome is the result of an accepted move.
type Outcome struct {
	Effect   Effect
	Snapshot Snapshot
	Ended    bool

	// Reward is what the winner was paid. RewardErr is set when the
	// contest ended with a winner but the payment failed; the result stands.
	Reward    int64
	RewardErr error
}

// Config controls engine behavior.
type Config struct {
	// Retain keeps ended contests in the registry so late actions get
	// ErrContestAlreadyEnded instead of ErrSessionNotFound.
	Retain time.Duration
}

// Engine runs duels: it creates contests, routes moves to them, races the
// turn clock and settles the winner.
type Engine struct {
	registry  *Registry
	templates TemplateSource
	players   PlayerSource
	settle    Settlement
	clock     *TurnClock
	cfg       Config

	mu        sync.RWMutex
	onTimeout func(Snapshot)
}

// NewEngine creates a new Engine instance.
func NewEngine(
	registry *Registry,
	templates TemplateSource,
	players PlayerSource,
	settle Settlement,
	clock *TurnClock,
	cfg Config,
) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	if clock == nil {
		clock = NewTurnClock(nil, DefaultTimeout, false)
	}
	return &Engine{
		registry:  registry,
		templates: templates,
		players:   players,
		settle:    settle,
		clock:     clock,
		cfg:       cfg,
	}
}

// OnTimeout registers fn to run after a contest is ended by the turn clock.
// fn runs on the timer goroutine.
func (e *Engine) OnTimeout(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTimeout = fn
}

// Registry returns the session registry.
func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) contestant(ctx context.Context, userID int64) (Contestant, error) {
	p, err := e.players.Get(ctx, userID)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return Contestant{}, fmt.Errorf("player %d: %w", userID, ErrNoActiveCreature)
	}
	if err != nil {
		return Contestant{}, fmt.Errorf("failed to load player %d: %w", userID, err)
	}
	creature, ok := p.Active()
	if !ok {
		return Contestant{}, fmt.Errorf("player %d: %w", userID, ErrNoActiveCreature)
	}
	tpl, err := e.templates.TemplateOf(creature.TemplateID)
	if err != nil {
		return Contestant{}, fmt.Errorf("creature %s: %w", creature.ID, err)
	}

	hp := creature.HP
	if hp > tpl.BaseHP || hp <= 0 {
		hp = tpl.BaseHP
	}
	name := p.Username
	if name == "" {
		name = fmt.Sprintf("%d", userID)
	}
	return Contestant{
		UserID:   userID,
		Name:     name,
		Creature: creature.Clone(),
		BaseHP:   tpl.BaseHP,
		HP:       hp,
	}, nil
}

// Challenge starts a duel between challenger and opponent using each
// player's active creature. The challenger moves first.
func (e *Engine) Challenge(ctx context.Context, challengerID, opponentID int64) (Snapshot, error) {
	if challengerID == opponentID {
		return Snapshot{}, ErrSelfChallenge
	}
	challenger, err := e.contestant(ctx, challengerID)
	if err != nil {
		return Snapshot{}, err
	}
	opponent, err := e.contestant(ctx, opponentID)
	if err != nil {
		return Snapshot{}, err
	}

	c, err := e.registry.Create(challenger, opponent, e.clock.Now())
	if err != nil {
		return Snapshot{}, err
	}
	id := c.ID()
	e.clock.Start(c, func() { e.TimeoutTick(id) })

	log.Info().
		Str("session_id", id).
		Int64("challenger", challengerID).
		Int64("opponent", opponentID).
		Dur("window", e.clock.Window()).
		Msg("Duel started")

	return c.Snapshot(), nil
}

// Get returns a snapshot of a session.
func (e *Engine) Get(sessionID string) (Snapshot, error) {
	c, err := e.registry.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return c.Snapshot(), nil
}

// ApplyMove routes a move to its contest. Rejections are returned as
// errors and leave the contest unchanged. When the move ends the contest
// the winner is settled before returning.
func (e *Engine) ApplyMove(ctx context.Context, sessionID string, actorID int64, choice MoveChoice) (*Outcome, error) {
	c, err := e.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	effect, ended, snap, err := c.Apply(actorID, choice, e.clock.Now())
	if err != nil {
		return nil, err
	}

	out := &Outcome{Effect: effect, Snapshot: snap, Ended: ended}
	if !ended {
		e.clock.Moved(c)
		return out, nil
	}

	log.Info().
		Str("session_id", sessionID).
		Int64("winner", snap.Winner).
		Int("rounds", snap.Round).
		Msg("Duel ended by knockout")

	if e.settle != nil {
		out.Reward, out.RewardErr = e.settle.Settle(ctx, snap)
		if out.RewardErr != nil {
			log.Error().Err(out.RewardErr).
				Str("session_id", sessionID).
				Int64("winner", snap.Winner).
				Msg("Duel reward could not be paid")
		}
	}
	e.retire(sessionID)
	return out, nil
}

// TimeoutTick ends the contest with no winner if it is still Active. It
// reports whether this call ended the contest.
func (e *Engine) TimeoutTick(sessionID string) bool {
	c, err := e.registry.Get(sessionID)
	if err != nil {
		return false
	}

	ended, snap := c.Timeout(e.clock.Now())
	if !ended {
		return false
	}

	log.Info().
		Str("session_id", sessionID).
		Int("rounds", snap.Round).
		Msg("Duel timed out")

	e.retire(sessionID)

	e.mu.RLock()
	fn := e.onTimeout
	e.mu.RUnlock()
	if fn != nil {
		fn(snap)
	}
	return true
}

func (e *Engine) retire(sessionID string) {
	if e.cfg.Retain <= 0 {
		e.registry.Remove(sessionID)
		return
	}
	e.clock.After(e.cfg.Retain, func() { e.registry.Remove(sessionID) })
}

// Cancel ends an Active contest with no winner and drops it from the
// registry at once. No settlement or timeout callback runs. It reports
// whether the contest was still Active.
func (e *Engine) Cancel(sessionID string) bool {
	c, err := e.registry.Get(sessionID)
	if err != nil {
		return false
	}
	ended, _ := c.Timeout(e.clock.Now())
	e.registry.Remove(sessionID)
	if ended {
		log.Info().Str("session_id", sessionID).Msg("Duel cancelled")
	}
	return ended
}

// Shutdown ends every Active contest without a winner and empties the
// registry. No timeout callbacks run.
func (e *Engine) Shutdown() {
	now := e.clock.Now()
	for _, c := range e.registry.All() {
		c.Timeout(now)
		e.registry.Remove(c.ID())
	}
}

// IsRejection reports whether err is a contest-level rejection that left
// the contest untouched.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrContestAlreadyEnded) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrInvalidMoveChoice)
}
