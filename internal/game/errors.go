package game

import "errors"

// Rejections surfaced to the requester with a reason. Expected gameplay
// races (stale item ids, dead catch links, double catches) are silent
// no-ops instead and never produce an error.
var (
	ErrUnknownSession = errors.New("unknown join code")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrSessionFull    = errors.New("session is full")
	ErrSessionActive  = errors.New("session has already started")
	ErrSessionEnded   = errors.New("session has ended")
	ErrInventoryFull  = errors.New("inventory is full")
	ErrNotHost        = errors.New("only the host can start the session")

	ErrInvalidBoundary  = errors.New("boundary polygon is degenerate")
	ErrBoundaryTooLarge = errors.New("boundary polygon exceeds the maximum play area")
	ErrInvalidDuration  = errors.New("duration must be positive")
	ErrInvalidQuota     = errors.New("role quotas must be positive")
)
