package handler

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// cooldowns tracks per-user, per-action cooldowns.
type cooldowns struct {
	last  sync.Map // "userID:action" -> time.Time
	clock clockwork.Clock
}

func newCooldowns(clock clockwork.Clock) *cooldowns {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &cooldowns{clock: clock}
}

// remaining returns how many whole seconds are left, 0 if the action is free.
func (c *cooldowns) remaining(userID int64, action string, d time.Duration) int {
	key := fmt.Sprintf("%d:%s", userID, action)
	if v, ok := c.last.Load(key); ok {
		left := d - c.clock.Since(v.(time.Time))
		if left > 0 {
			return int(left.Seconds()) + 1
		}
	}
	return 0
}

func (c *cooldowns) set(userID int64, action string) {
	c.last.Store(fmt.Sprintf("%d:%s", userID, action), c.clock.Now())
}
