// Package duel implements turn-based creature duels between two players.
//
// A Contest moves from Active to Ended exactly once, either because a
// contestant's HP reached zero or because the turn clock ran out. Only the
// caller that performs that transition settles the reward.
package duel

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"garden-bot/internal/model"
)

// Status is the lifecycle state of a Contest.
type Status int

const (
	StatusActive Status = iota
	StatusEnded
)

func (s Status) String() string {
	if s == StatusActive {
		return "active"
	}
	return "ended"
}

// EndReason says why a contest ended.
type EndReason int

const (
	EndNone EndReason = iota
	EndKnockout
	EndTimeout
)

// Contestant is one side of a duel. Creature is a snapshot taken when the
// duel started; HP is duel-local and never written back to the roster.
type Contestant struct {
	UserID   int64
	Name     string
	Creature model.OwnedCreature
	BaseHP   int
	HP       int
}

func (c Contestant) clone() Contestant {
	c.Creature = c.Creature.Clone()
	return c
}

// Snapshot is an immutable copy of a contest's state.
type Snapshot struct {
	SessionID    string
	Contestants  [2]Contestant
	TurnHolder   int64 // 0 once ended
	Round        int
	Status       Status
	Winner       int64 // 0 for no winner
	Reason       EndReason
	CreatedAt    time.Time
	LastActivity time.Time
}

// HasWinner reports whether the contest ended with a winner.
func (s Snapshot) HasWinner() bool {
	return s.Status == StatusEnded && s.Winner != 0
}

// Contestant returns the side belonging to userID.
func (s Snapshot) Contestant(userID int64) (Contestant, bool) {
	for _, c := range s.Contestants {
		if c.UserID == userID {
			return c, true
		}
	}
	return Contestant{}, false
}

// Contest is the state machine of a single duel.
type Contest struct {
	mu sync.Mutex

	id          string
	contestants [2]Contestant
	turn        int // index of the turn holder
	round       int
	status      Status
	winner      int // index of the winner, -1 for none
	reason      EndReason
	createdAt   time.Time
	lastActive  time.Time
	timer       clockwork.Timer
}

// NewContest starts an Active contest; the challenger holds the first turn.
func NewContest(id string, challenger, opponent Contestant, now time.Time) *Contest {
	return &Contest{
		id:          id,
		contestants: [2]Contestant{challenger.clone(), opponent.clone()},
		turn:        0,
		status:      StatusActive,
		winner:      -1,
		createdAt:   now,
		lastActive:  now,
	}
}

// ID returns the session id.
func (c *Contest) ID() string { return c.id }

// Snapshot returns a copy of the current state.
func (c *Contest) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Contest) snapshotLocked() Snapshot {
	s := Snapshot{
		SessionID:    c.id,
		Contestants:  [2]Contestant{c.contestants[0].clone(), c.contestants[1].clone()},
		Round:        c.round,
		Status:       c.status,
		Reason:       c.reason,
		CreatedAt:    c.createdAt,
		LastActivity: c.lastActive,
	}
	if c.status == StatusActive {
		s.TurnHolder = c.contestants[c.turn].UserID
	}
	if c.winner >= 0 {
		s.Winner = c.contestants[c.winner].UserID
	}
	return s
}

// setTimer attaches the turn timer; it is stopped when the contest ends.
func (c *Contest) setTimer(t clockwork.Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusEnded {
		t.Stop()
		return
	}
	c.timer = t
}

// Apply performs one move for actorID. It returns the effect, whether this
// call ended the contest, and the post-move snapshot. On error nothing
// changes.
func (c *Contest) Apply(actorID int64, choice MoveChoice, now time.Time) (Effect, bool, Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusEnded {
		return Effect{}, false, Snapshot{}, ErrContestAlreadyEnded
	}
	if c.contestants[c.turn].UserID != actorID {
		return Effect{}, false, Snapshot{}, ErrNotYourTurn
	}

	actor := &c.contestants[c.turn]
	defender := &c.contestants[1-c.turn]

	effect, err := Resolve(actor, defender, choice)
	if err != nil {
		return Effect{}, false, Snapshot{}, err
	}

	c.round++
	c.lastActive = now

	if defender.HP == 0 {
		c.endLocked(c.turn, EndKnockout)
		return effect, true, c.snapshotLocked(), nil
	}

	c.turn = 1 - c.turn
	return effect, false, c.snapshotLocked(), nil
}

// Timeout ends an Active contest with no winner. It reports whether this
// call performed the transition; a contest that already ended is left alone.
func (c *Contest) Timeout(now time.Time) (bool, Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusEnded {
		return false, c.snapshotLocked()
	}
	c.lastActive = now
	c.endLocked(-1, EndTimeout)
	return true, c.snapshotLocked()
}

// resetTimer pushes the timer out by d if the contest is still Active.
func (c *Contest) resetTimer(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusActive && c.timer != nil {
		c.timer.Reset(d)
	}
}

func (c *Contest) endLocked(winner int, reason EndReason) {
	c.status = StatusEnded
	c.winner = winner
	c.reason = reason
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
