// Package autoplay implements the bot driver acknowledged, but not fully
// designed, by the Autoplay config block: for every connected bot player, a
// ticker polls the room's current QuizSnapshot and, after a randomized
// delay, submits a uniformly-random legal answer through the same command
// path a human client would use. It has no special engine access.
package autoplay

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/partyquiz/server/internal/lobby"
	"github.com/partyquiz/server/internal/logging"
	"github.com/partyquiz/server/internal/quiz"
	"go.uber.org/zap"
)

// GameCommander is the subset of *orchestrator.Orchestrator a bot needs:
// reading the current view and submitting through the same command methods
// a human connection dispatches into.
type GameCommander interface {
	SnapshotFor(code, viewerID string) (quiz.QuizSnapshot, bool)
	SubmitAnswer(ctx context.Context, code, playerID, optionKey string) error
	SubmitRankingVote(ctx context.Context, code, voterID, votedForID string) error
}

// RoomSource enumerates which (roomCode, playerID) pairs are live bots right
// now. *lobby.Manager satisfies this directly.
type RoomSource interface {
	BotPlayers() []lobby.BotPlayer
}

// Config tunes poll cadence and per-action delay jitter.
type Config struct {
	PollInterval    time.Duration
	MinActionDelay  time.Duration
	MaxActionDelay  time.Duration
}

// Driver runs the bot poll loop.
type Driver struct {
	games GameCommander
	rooms RoomSource
	cfg   Config

	rngMu sync.Mutex
	rng   *rand.Rand

	acting sync.Map // BotPlayer -> struct{}, in-flight delay guard
}

// New constructs a Driver. seed makes action-delay jitter reproducible under
// test.
func New(games GameCommander, rooms RoomSource, cfg Config, seed int64) *Driver {
	return &Driver{
		games: games,
		rooms: rooms,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Run polls on cfg.PollInterval until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Driver) tick(ctx context.Context) {
	for _, bot := range d.rooms.BotPlayers() {
		if _, inFlight := d.acting.LoadOrStore(bot, struct{}{}); inFlight {
			continue
		}
		go d.act(ctx, bot)
	}
}

func (d *Driver) act(ctx context.Context, bot lobby.BotPlayer) {
	defer d.acting.Delete(bot)

	snap, ok := d.games.SnapshotFor(bot.RoomCode, bot.PlayerID)
	if !ok {
		return
	}

	action, ready := d.chooseAction(snap)
	if !ready {
		return
	}

	delay := d.randomDelay()
	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	if err := action(ctx, d.games, bot.RoomCode, bot.PlayerID); err != nil {
		logging.Warn(ctx, "autoplay action failed", zap.String("room_code", bot.RoomCode), zap.String("player_id", bot.PlayerID), zap.Error(err))
	}
}

type botAction func(ctx context.Context, games GameCommander, roomCode, playerID string) error

// chooseAction picks a random legal action for the current phase, or false
// if there is nothing a bot can do right now (the phase isn't an answering
// phase, or it offers nothing to pick). Whether the bot has already
// answered is not checked.
func (d *Driver) chooseAction(snap quiz.QuizSnapshot) (botAction, bool) {
	switch snap.Phase {
	case quiz.PhaseAnswering:
		if len(snap.Options) == 0 {
			return nil, false
		}
		key := snap.Options[d.randIntn(len(snap.Options))].Key
		return func(ctx context.Context, games GameCommander, roomCode, playerID string) error {
			return games.SubmitAnswer(ctx, roomCode, playerID, key)
		}, true
	case quiz.PhaseDictionaryAnswering:
		if len(snap.WordOptions) == 0 {
			return nil, false
		}
		index := d.randIntn(len(snap.WordOptions))
		return func(ctx context.Context, games GameCommander, roomCode, playerID string) error {
			return games.SubmitAnswer(ctx, roomCode, playerID, indexToString(index))
		}, true
	case quiz.PhaseRankingVoting:
		return func(ctx context.Context, games GameCommander, roomCode, playerID string) error {
			candidates := make([]string, 0, len(snap.Scoreboard))
			for _, entry := range snap.Scoreboard {
				if entry.PlayerID != "" && entry.PlayerID != playerID {
					candidates = append(candidates, entry.PlayerID)
				}
			}
			if len(candidates) == 0 {
				return nil
			}
			target := candidates[d.randIntn(len(candidates))]
			return games.SubmitRankingVote(ctx, roomCode, playerID, target)
		}, len(snap.Scoreboard) > 1
	default:
		return nil, false
	}
}

func (d *Driver) randIntn(n int) int {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.rng.Intn(n)
}

func (d *Driver) randomDelay() time.Duration {
	lo, hi := d.cfg.MinActionDelay, d.cfg.MaxActionDelay
	if hi <= lo {
		return lo
	}
	d.rngMu.Lock()
	jitter := d.rng.Int63n(int64(hi - lo))
	d.rngMu.Unlock()
	return lo + time.Duration(jitter)
}

func indexToString(i int) string {
	return string(rune('0' + i))
}
