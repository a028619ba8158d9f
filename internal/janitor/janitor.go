// Package janitor periodically sweeps the Lobby Manager for hostless rooms
// past their TTL and disconnected players past their grace period, removing
// both. It implements health.JanitorChecker so /health/ready can report a
// stuck sweep loop.
package janitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/partyquiz/server/internal/logging"
	"go.uber.org/zap"
)

// LobbyManager is the subset of *lobby.Manager the sweep needs.
type LobbyManager interface {
	HostlessRoomsForCleanup(ttl time.Duration) []string
	RemoveDisconnectedPlayers(ctx context.Context, code string, grace time.Duration) (int, error)
	RemoveRoom(ctx context.Context, code string)
	AllRoomCodes() []string
}

// GameStopper lets the janitor discard any live orchestrator state for a
// room it is about to remove, so a stale quiz timer never fires against a
// room that no longer exists.
type GameStopper interface {
	StopGame(code string)
}

// Config tunes sweep cadence and eviction thresholds.
type Config struct {
	Interval                time.Duration
	RoomWithoutHostTTL      time.Duration
	DisconnectedPlayerGrace time.Duration
}

// Janitor runs the periodic sweep loop.
type Janitor struct {
	lobby LobbyManager
	games GameStopper
	cfg   Config

	lastSweep atomic.Value // time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a Janitor. games may be nil if no orchestrator is wired
// (e.g. a lobby-only deployment).
func New(lobby LobbyManager, games GameStopper, cfg Config) *Janitor {
	j := &Janitor{
		lobby:  lobby,
		games:  games,
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	j.lastSweep.Store(time.Time{})
	return j
}

// Run blocks, sweeping every cfg.Interval until ctx is cancelled or Stop is
// called. Intended to be run in its own goroutine from main.
func (j *Janitor) Run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

// Stop signals Run to exit and blocks until it has.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
	<-j.doneCh
}

func (j *Janitor) sweep(ctx context.Context) {
	stale := j.lobby.HostlessRoomsForCleanup(j.cfg.RoomWithoutHostTTL)
	staleSet := make(map[string]bool, len(stale))
	for _, code := range stale {
		staleSet[code] = true
		if j.games != nil {
			j.games.StopGame(code)
		}
		j.lobby.RemoveRoom(ctx, code)
	}

	playersRemoved := 0
	for _, code := range j.lobby.AllRoomCodes() {
		if staleSet[code] {
			continue
		}
		n, err := j.lobby.RemoveDisconnectedPlayers(ctx, code, j.cfg.DisconnectedPlayerGrace)
		if err != nil {
			continue
		}
		playersRemoved += n
	}

	j.lastSweep.Store(time.Now())
	logging.Info(ctx, "janitor sweep completed", zap.Int("rooms_removed", len(stale)), zap.Int("players_removed", playersRemoved))
}

// Check implements health.JanitorChecker: unhealthy if the sweep loop
// hasn't completed a pass in over 3x its configured interval.
func (j *Janitor) Check(_ context.Context) string {
	last, _ := j.lastSweep.Load().(time.Time)
	if last.IsZero() {
		return "healthy"
	}
	if time.Since(last) > 3*j.cfg.Interval {
		return "unhealthy"
	}
	return "healthy"
}
