package duel

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the in-memory table of contests, keyed by session id.
// Contests do not survive a restart.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Contest
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Contest)}
}

// Create registers a new Active contest and returns it. It fails with
// ErrAlreadyInContest if either side is already in an Active contest.
func (r *Registry) Create(challenger, opponent Contestant, now time.Time) (*Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, userID := range []int64{challenger.UserID, opponent.UserID} {
		if _, busy := r.activeForLocked(userID); busy {
			return nil, ErrAlreadyInContest
		}
	}

	c := NewContest(uuid.NewString(), challenger, opponent, now)
	r.sessions[c.ID()] = c
	return c, nil
}

// Get returns the contest for sessionID or ErrSessionNotFound.
func (r *Registry) Get(sessionID string) (*Contest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Remove deletes a contest. Removing an unknown id is a no-op.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Len returns the number of registered contests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ActiveFor returns the Active contest userID takes part in, if any.
func (r *Registry) ActiveFor(userID int64) (*Contest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeForLocked(userID)
}

func (r *Registry) activeForLocked(userID int64) (*Contest, bool) {
	for _, c := range r.sessions {
		s := c.Snapshot()
		if s.Status != StatusActive {
			continue
		}
		if _, ok := s.Contestant(userID); ok {
			return c, true
		}
	}
	return nil, false
}

// All returns every registered contest.
func (r *Registry) All() []*Contest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Contest, 0, len(r.sessions))
	for _, c := range r.sessions {
		out = append(out, c)
	}
	return out
}
