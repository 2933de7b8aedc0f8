package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/platform/logger"
)

// endedSessionGrace is how long a finished session stays resolvable so
// lingering clients still receive the outcome before the code is freed.
const endedSessionGrace = 30 * time.Second

// vacantLobbyTimeout reclaims lobbies that were created but never joined
// (an unscanned QR poster, for example). Joined lobbies are reclaimed as
// soon as their last connection drops.
const vacantLobbyTimeout = 10 * time.Minute

// ResultRecorder persists the summary row of a finished match.
type ResultRecorder interface {
	RecordResult(result MatchResult) error
}

// Directory owns the live session table: join-code allocation, config
// validation and end-of-life reclamation. Directory and session locks never
// nest; the callbacks between them run lock-free on the caller's side.
type Directory struct {
	mu     sync.RWMutex
	byCode map[string]*Session
	byID   map[string]*Session

	bc       Broadcaster
	log      *logger.Logger
	matchLog *events.MatchLog
	results  ResultRecorder
	rng      *rand.Rand

	maxAreaM2 float64
}

// NewDirectory builds an empty directory. maxAreaKm2 bounds the play area
// accepted at creation; zero disables the check. results may be nil.
func NewDirectory(bc Broadcaster, log *logger.Logger, matchLog *events.MatchLog, results ResultRecorder, rng *rand.Rand, maxAreaKm2 float64) *Directory {
	return &Directory{
		byCode:    make(map[string]*Session),
		byID:      make(map[string]*Session),
		bc:        bc,
		log:       log,
		matchLog:  matchLog,
		results:   results,
		rng:       rng,
		maxAreaM2: maxAreaKm2 * 1e6,
	}
}

// Create validates the config, allocates a unique join code and registers
// a new lobby-phase session.
func (d *Directory) Create(cfg Config) (*Session, error) {
	if !cfg.Boundary.Valid() {
		return nil, ErrInvalidBoundary
	}
	if d.maxAreaM2 > 0 && cfg.Boundary.AreaSquareMeters() > d.maxAreaM2 {
		return nil, ErrBoundaryTooLarge
	}
	if cfg.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if cfg.Quota.Hunters <= 0 || cfg.Quota.Hunted <= 0 {
		return nil, ErrInvalidQuota
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	code := generateJoinCode(d.rng)
	for _, taken := d.byCode[code]; taken; _, taken = d.byCode[code] {
		code = generateJoinCode(d.rng)
	}

	// Each session gets its own rng stream so session-local sampling does
	// not race with join-code allocation.
	sessionRNG := rand.New(rand.NewSource(d.rng.Int63()))
	s := newSession(cfg, code, d.bc, d.log, d.matchLog, sessionRNG, d.sessionEnded)
	d.byCode[code] = s
	d.byID[s.ID()] = s

	d.matchLog.Record(s.ID(), events.MatchSessionCreated, "system", "", map[string]any{"join_code": code})
	d.log.Event("SESSION_CREATED", "system", "Session "+code)

	time.AfterFunc(vacantLobbyTimeout, func() { d.removeIfVacant(s) })

	return s, nil
}

// Get resolves a join code, case-insensitively.
func (d *Directory) Get(code string) (*Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.byCode[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s, nil
}

// GetByID resolves a session by its opaque identifier.
func (d *Directory) GetByID(id string) (*Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.byID[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s, nil
}

// Count returns the number of registered sessions.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byCode)
}

// Disconnect detaches one player connection and tears the session down
// once nobody is left on a lobby or ended session. Active sessions stay
// registered so a mid-match drop can reconnect; the end timer plus the
// grace period reclaims them.
func (d *Directory) Disconnect(s *Session, playerID string) {
	remaining := s.Disconnect(playerID)
	if remaining == 0 && s.Phase() != PhaseActive {
		d.remove(s)
	}
}

// removeIfVacant reclaims a lobby nobody is connected to.
func (d *Directory) removeIfVacant(s *Session) {
	if s.Phase() == PhaseLobby && s.ConnectionCount() == 0 {
		d.remove(s)
	}
}

// sessionEnded runs inside the session's own lock, so it must not touch
// session state; it hands the result off and schedules the reclaim.
func (d *Directory) sessionEnded(s *Session, result MatchResult) {
	if d.results != nil {
		go func() {
			if err := d.results.RecordResult(result); err != nil {
				d.log.Error(fmt.Sprintf("persist match result: %v", err))
			}
		}()
	}
	time.AfterFunc(endedSessionGrace, func() { d.remove(s) })
}

func (d *Directory) remove(s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.byCode[s.JoinCode()] == s {
		delete(d.byCode, s.JoinCode())
		delete(d.byID, s.ID())
	}
}
