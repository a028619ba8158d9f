// Package orchestrator implements the Quiz Orchestrator: the one piece of
// the system that couples the pure Quiz Engine (package quiz) to real time
// and to broadcasts. It owns one *quiz.QuizGameState per in-progress room,
// schedules the timer for whatever phase that state is currently in, and
// re-enters the engine when that timer fires or when a player command
// arrives - always under that room's own mutex.
package orchestrator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/partyquiz/server/internal/apierr"
	"github.com/partyquiz/server/internal/clock"
	"github.com/partyquiz/server/internal/content"
	"github.com/partyquiz/server/internal/logging"
	"github.com/partyquiz/server/internal/metrics"
	"github.com/partyquiz/server/internal/quiz"
	"github.com/partyquiz/server/internal/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/partyquiz/server/internal/orchestrator")

// Broadcaster pushes a freshly computed QuizSnapshot to one live connection.
// The transport layer supplies the concrete implementation; the Orchestrator
// never holds a websocket handle directly.
type Broadcaster interface {
	SendQuizSnapshot(connID string, snapshot quiz.QuizSnapshot)
}

// game is the Orchestrator's bookkeeping for one room's live play: the
// engine state, its own mutex (distinct from registry.Room's), and the
// currently armed timer plus a generation counter that invalidates a timer
// fire raced by a newer schedule. cancel is closed whenever the armed timer
// is superseded or the game stops, releasing the goroutine parked on it
// (Timer.Stop alone never unblocks a receiver).
type game struct {
	mu         sync.Mutex
	state      *quiz.QuizGameState
	timer      clock.Timer
	cancel     chan struct{}
	generation int
}

// Orchestrator is the Quiz Orchestrator. It implements lobby.GameStarter.
type Orchestrator struct {
	registry    *registry.Registry
	connIndex   *registry.ConnectionIndex
	store       *content.Store
	clock       clock.Clock
	broadcaster Broadcaster
	durations   quiz.Durations

	rngMu sync.Mutex
	rng   *rand.Rand

	mu    sync.Mutex
	games map[string]*game
}

// New constructs an Orchestrator. rngSeed seeds booster assignment only;
// all content draws go through store, which has its own seed.
func New(reg *registry.Registry, connIndex *registry.ConnectionIndex, store *content.Store, clk clock.Clock, broadcaster Broadcaster, durations quiz.Durations, rngSeed int64) *Orchestrator {
	return &Orchestrator{
		registry:    reg,
		connIndex:   connIndex,
		store:       store,
		clock:       clk,
		broadcaster: broadcaster,
		durations:   durations,
		rng:         rand.New(rand.NewSource(rngSeed)),
		games:       make(map[string]*game),
	}
}

func (o *Orchestrator) nextRand() *rand.Rand {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	seed := o.rng.Int63()
	return rand.New(rand.NewSource(seed))
}

// StartGame implements lobby.GameStarter. room is already InGame/locked by
// the time the Lobby Manager calls this. It builds the initial
// QuizGameState from the current roster, assigns boosters, starts the
// first planned round, and arms the first phase timer.
func (o *Orchestrator) StartGame(ctx context.Context, room *registry.Room, gameType string) error {
	ctx, span := tracer.Start(ctx, "orchestrator.StartGame", trace.WithAttributes(attribute.String("room_code", room.Code)))
	defer span.End()

	room.Lock()
	playerIDs := make([]string, 0, len(room.Players))
	names := make(map[string]string, len(room.Players))
	for id, p := range room.Players {
		playerIDs = append(playerIDs, id)
		names[id] = p.DisplayName
	}
	room.Unlock()

	if len(playerIDs) == 0 {
		return apierr.New(apierr.NotEnoughPlayers, "no players to start a game with")
	}

	// Locale is fixed to "en" for now: only en content packs ship and the
	// StartGame wire method carries no locale field. Room-level locale
	// selection would slot in here.
	state := quiz.NewGameState(room.Code, "en", playerIDs, names)
	quiz.AssignBoosters(state, playerIDs, o.nextRand())

	g := &game{state: state}

	o.mu.Lock()
	o.games[room.Code] = g
	o.mu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	now := o.clock.Now()
	quiz.StartNextPlannedRound(state, o.store, o.durations, now)
	o.recordTransition(state)
	o.scheduleLocked(room.Code, g)
	o.broadcastLocked(room.Code, g)

	logging.Info(ctx, "quiz started", zap.String("room_code", room.Code), zap.Int("players", len(playerIDs)))
	return nil
}

// StopGame discards the engine state for code, if any, and cancels its
// timer. Used by the janitor when a room is removed out from under a live
// game (e.g. every player left).
func (o *Orchestrator) StopGame(code string) {
	o.mu.Lock()
	g, ok := o.games[code]
	delete(o.games, code)
	o.mu.Unlock()

	if !ok {
		return
	}
	g.mu.Lock()
	if g.timer != nil {
		g.timer.Stop()
	}
	if g.cancel != nil {
		close(g.cancel)
		g.cancel = nil
	}
	g.generation++
	g.mu.Unlock()
}

func (o *Orchestrator) lookup(code string) (*game, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	g, ok := o.games[code]
	return g, ok
}

// SnapshotFor renders the current QuizSnapshot for a reconnecting or newly
// joined viewer, without mutating engine state. Returns false if code has
// no live game. Display names are looked up from the room roster directly
// (via roomNames) rather than supplied by the caller, since the transport
// layer only holds connection bindings, not the registry.
func (o *Orchestrator) SnapshotFor(code, viewerID string) (quiz.QuizSnapshot, bool) {
	g, ok := o.lookup(code)
	if !ok {
		return quiz.QuizSnapshot{}, false
	}
	names := o.roomNames(code)
	g.mu.Lock()
	defer g.mu.Unlock()
	return quiz.View(g.state, viewerID, names, o.clock.Now()), true
}

// NotifyConnectionChanged keeps a player's engine-side Connected flag in
// sync with the registry's, so EligiblePlayerIDs and the leader-selection
// tie-break reflect who is actually reachable right now.
func (o *Orchestrator) NotifyConnectionChanged(code, playerID string, connected bool) {
	g, ok := o.lookup(code)
	if !ok {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, exists := g.state.Scoreboard[playerID]; exists {
		p.Connected = connected
	}
}

func (o *Orchestrator) roomNames(code string) map[string]string {
	room, ok := o.registry.Get(code)
	if !ok {
		return nil
	}
	room.Lock()
	defer room.Unlock()
	names := make(map[string]string, len(room.Players))
	for id, p := range room.Players {
		names[id] = p.DisplayName
	}
	return names
}

// broadcastLocked sends every connection bound to code its own view of the
// current state (the host and any viewer holding an active booster effect
// each get a distinct snapshot). Caller must hold g.mu.
func (o *Orchestrator) broadcastLocked(code string, g *game) {
	if o.broadcaster == nil {
		return
	}
	names := o.roomNames(code)
	now := o.clock.Now()
	for _, binding := range o.connIndex.ListForRoom(code) {
		viewerID := binding.PlayerID
		snapshot := quiz.View(g.state, viewerID, names, now)
		o.broadcaster.SendQuizSnapshot(binding.ConnectionID, snapshot)
	}
}

func (o *Orchestrator) recordTransition(s *quiz.QuizGameState) {
	metrics.PhaseTransitionsTotal.WithLabelValues(string(s.Phase)).Inc()
}

// command runs fn (a quiz package mutator returning an error) against code's
// live game under its mutex, then reschedules and broadcasts on success.
// Every exported command method is a thin wrapper around this.
func (o *Orchestrator) command(ctx context.Context, code, spanName string, fn func(s *quiz.QuizGameState, now time.Time) error) error {
	g, ok := o.lookup(code)
	if !ok {
		return apierr.New(apierr.InvalidState, "no game in progress for this room")
	}

	_, span := tracer.Start(ctx, spanName, trace.WithAttributes(attribute.String("room_code", code)))
	defer span.End()

	g.mu.Lock()
	defer g.mu.Unlock()

	now := o.clock.Now()
	if err := fn(g.state, now); err != nil {
		return err
	}

	o.maybeEarlyAdvanceLocked(code, g)
	return nil
}

// SelectCategory is the round leader's category choice.
func (o *Orchestrator) SelectCategory(ctx context.Context, code, playerID, category string) error {
	return o.command(ctx, code, "orchestrator.SelectCategory", func(s *quiz.QuizGameState, now time.Time) error {
		return quiz.SelectCategory(s, o.store, o.durations, playerID, category, now)
	})
}

// SubmitAnswer records an answer for the current question: an A-D option
// key during a CategoryQuiz round, a stringified 0..3 index during a
// DictionaryGame round. One wire method covers both; the round type picks
// the engine mutator.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, code, playerID, optionKey string) error {
	err := o.command(ctx, code, "orchestrator.SubmitAnswer", func(s *quiz.QuizGameState, now time.Time) error {
		switch s.CurrentRound {
		case quiz.RoundDictionary:
			return quiz.SubmitDictionaryAnswer(s, playerID, optionKey, now)
		default:
			return quiz.SubmitAnswer(s, playerID, optionKey, now)
		}
	})
	o.recordAnswerMetric(code, err)
	return err
}

// SubmitRankingVote is a RankingStars vote.
func (o *Orchestrator) SubmitRankingVote(ctx context.Context, code, voterID, votedForID string) error {
	err := o.command(ctx, code, "orchestrator.SubmitRankingVote", func(s *quiz.QuizGameState, now time.Time) error {
		return quiz.SubmitRankingVote(s, voterID, votedForID, now)
	})
	o.recordAnswerMetric(code, err)
	return err
}

// ActivateBooster resolves activatorID's assigned booster, optionally
// against targetID.
func (o *Orchestrator) ActivateBooster(ctx context.Context, code, activatorID, targetID string) error {
	return o.command(ctx, code, "orchestrator.ActivateBooster", func(s *quiz.QuizGameState, now time.Time) error {
		_, err := quiz.ActivateBooster(s, activatorID, targetID, now)
		return err
	})
}

// NextQuestion is the host-only early-advance command, valid only while the
// room is showing the end-of-round Scoreboard.
func (o *Orchestrator) NextQuestion(ctx context.Context, code, requestingConnID string) error {
	room, ok := o.registry.Get(code)
	if !ok {
		return apierr.New(apierr.RoomNotFound, "room not found")
	}
	room.Lock()
	isHost := room.HostConnectionID == requestingConnID
	room.Unlock()
	if !isHost {
		return apierr.New(apierr.NotHost, "only the host may advance past the scoreboard")
	}

	g, ok := o.lookup(code)
	if !ok {
		return apierr.New(apierr.InvalidState, "no game in progress for this room")
	}

	_, span := tracer.Start(ctx, "orchestrator.NextQuestion", trace.WithAttributes(attribute.String("room_code", code)))
	defer span.End()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Phase != quiz.PhaseScoreboard {
		return apierr.New(apierr.InvalidState, "can only advance from the scoreboard")
	}

	now := o.clock.Now()
	quiz.RoundComplete(g.state, o.store, o.durations, now)
	o.afterTransitionLocked(code, g)
	return nil
}

func (o *Orchestrator) recordAnswerMetric(code string, err error) {
	g, ok := o.lookup(code)
	if !ok {
		return
	}
	g.mu.Lock()
	roundType := string(g.state.CurrentRound)
	g.mu.Unlock()

	correct := "true"
	if err != nil {
		correct = "false"
	}
	metrics.AnswersSubmittedTotal.WithLabelValues(roundType, correct).Inc()
}

// maybeEarlyAdvanceLocked fires the current phase's transition immediately,
// cancelling its timer, if every eligible player has now answered. Caller
// holds g.mu.
func (o *Orchestrator) maybeEarlyAdvanceLocked(code string, g *game) {
	if !earlyAdvancePhases[g.state.Phase] {
		o.afterTransitionLocked(code, g)
		return
	}
	if !quiz.AllPlayersAnswered(g.state, g.state.EligiblePlayerIDs()) {
		o.afterTransitionLocked(code, g)
		return
	}
	o.advanceLocked(g.state, o.clock.Now())
	o.afterTransitionLocked(code, g)
}

// afterTransitionLocked reschedules the phase timer for whatever phase the
// state is now in and broadcasts the result. Caller holds g.mu.
func (o *Orchestrator) afterTransitionLocked(code string, g *game) {
	o.recordTransition(g.state)
	if g.state.Phase == quiz.PhaseFinished {
		o.markRoomFinished(code)
	}
	o.scheduleLocked(code, g)
	o.broadcastLocked(code, g)
}

// markRoomFinished flips the room to Finished once the last planned round
// completes. The room itself is kept (the final scoreboard stays visible)
// until the janitor collects it as hostless.
func (o *Orchestrator) markRoomFinished(code string) {
	room, ok := o.registry.Get(code)
	if !ok {
		return
	}
	room.Lock()
	alreadyFinished := room.Status == registry.StatusFinished
	if !alreadyFinished {
		room.Status = registry.StatusFinished
	}
	room.Unlock()

	if !alreadyFinished {
		logging.Info(context.Background(), "quiz finished", zap.String("room_code", code))
	}
}
