package duel

import "errors"

// Contest errors. All of them leave the contest untouched.
var (
	ErrNotYourTurn         = errors.New("not your turn")
	ErrContestAlreadyEnded = errors.New("contest already ended")
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidMoveChoice   = errors.New("invalid move choice")
	ErrSelfChallenge       = errors.New("cannot challenge yourself")
	ErrNoActiveCreature    = errors.New("player has no active creature")
)

// ErrAlreadyInContest is returned when either side is already dueling.
var ErrAlreadyInContest = errors.New("player is already in a contest")
