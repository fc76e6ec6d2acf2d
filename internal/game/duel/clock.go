package duel

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTimeout bounds a whole duel.
const DefaultTimeout = 10 * time.Minute

// TurnClock arms the timeout timer of each contest.
//
// By default one window, started when the contest is created, bounds the
// whole duel. With ResetOnMove every accepted move restarts the window.
type TurnClock struct {
	clock       clockwork.Clock
	window      time.Duration
	resetOnMove bool
}

// NewTurnClock creates a TurnClock. A non-positive window uses DefaultTimeout.
func NewTurnClock(clock clockwork.Clock, window time.Duration, resetOnMove bool) *TurnClock {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultTimeout
	}
	return &TurnClock{clock: clock, window: window, resetOnMove: resetOnMove}
}

// Now returns the clock's current time.
func (tc *TurnClock) Now() time.Time { return tc.clock.Now() }

// Window returns the timeout window.
func (tc *TurnClock) Window() time.Duration { return tc.window }

// Start arms c's timer; fire runs once the window elapses.
func (tc *TurnClock) Start(c *Contest, fire func()) {
	c.setTimer(tc.clock.AfterFunc(tc.window, fire))
}

// Moved is called after every accepted move that did not end c.
func (tc *TurnClock) Moved(c *Contest) {
	if tc.resetOnMove {
		c.resetTimer(tc.window)
	}
}

// After schedules fn after d on the same clock.
func (tc *TurnClock) After(d time.Duration, fn func()) clockwork.Timer {
	return tc.clock.AfterFunc(d, fn)
}
