package orchestrator

import (
	"time"

	"github.com/partyquiz/server/internal/clock"
	"github.com/partyquiz/server/internal/quiz"
)

// earlyAdvancePhases are the answering-style phases where, once every
// eligible player has answered, the Orchestrator fires the reveal
// transition immediately instead of waiting out the rest of the timer.
var earlyAdvancePhases = map[quiz.Phase]bool{
	quiz.PhaseAnswering:           true,
	quiz.PhaseDictionaryAnswering: true,
	quiz.PhaseRankingVoting:       true,
}

// advanceLocked calls whichever pure quiz.* transition corresponds to the
// timer (or early-advance) firing for s's current phase. This single
// dispatch point is what lets every phase's timer callback share one code
// path: schedule whatever advanceLocked produces, then schedule again.
// Caller holds the owning game's mutex.
func (o *Orchestrator) advanceLocked(s *quiz.QuizGameState, now time.Time) {
	switch s.Phase {
	case quiz.PhaseCategorySelection:
		quiz.AutoSelectCategory(s, o.store, o.durations, now)
	case quiz.PhaseQuestion:
		quiz.BeginAnswering(s, o.durations, now)
	case quiz.PhaseAnswering:
		quiz.RevealQuestion(s, o.durations, now)
	case quiz.PhaseDictionaryWord:
		quiz.BeginDictionaryAnswering(s, o.durations, now)
	case quiz.PhaseDictionaryAnswering:
		quiz.RevealDictionaryWord(s, o.durations, now)
	case quiz.PhaseRankingPrompt:
		quiz.BeginRankingVoting(s, o.durations, now)
	case quiz.PhaseRankingVoting:
		quiz.RevealRanking(s, o.durations, now)
	case quiz.PhaseReveal:
		switch s.CurrentRound {
		case quiz.RoundCategoryQuiz:
			quiz.AfterQuestionReveal(s, o.store, o.durations, now)
		case quiz.RoundDictionary:
			quiz.AfterDictionaryReveal(s, o.store, o.durations, now)
		}
	case quiz.PhaseRankingReveal:
		quiz.AfterRankingReveal(s, o.store, o.durations, now)
	case quiz.PhaseScoreboard:
		quiz.RoundComplete(s, o.store, o.durations, now)
	case quiz.PhaseFinished:
		// terminal; nothing to schedule.
	}
}

// scheduleLocked arms (replacing any existing) timer for g's current phase
// deadline. The previous wait's cancel channel is closed so its goroutine
// exits instead of staying parked on a timer that will never fire. Finished
// has no deadline and is never rescheduled. Caller holds g.mu.
func (o *Orchestrator) scheduleLocked(code string, g *game) {
	if g.timer != nil {
		g.timer.Stop()
	}
	if g.cancel != nil {
		close(g.cancel)
		g.cancel = nil
	}
	if g.state.Phase == quiz.PhaseFinished || g.state.PhaseEndsAt.IsZero() {
		g.timer = nil
		return
	}

	g.generation++
	generation := g.generation
	// EffectiveDeadline, not PhaseEndsAt: an active LateLock pushes the
	// room timer out with the holder's personal deadline, so the phase is
	// still accepting when their late submission arrives. Everyone else's
	// submissions in that window are still rejected by their own
	// (unextended) personal deadline.
	duration := g.state.EffectiveDeadline().Sub(o.clock.Now())
	if duration < 0 {
		duration = 0
	}

	timer := o.clock.NewTimer(duration)
	cancel := make(chan struct{})
	g.timer = timer
	g.cancel = cancel

	go o.awaitTimer(code, g, generation, timer, cancel)
}

// awaitTimer blocks on a single timer fire, then re-enters the engine under
// g.mu. The generation check discards a fire that raced a newer schedule
// through the cancel-then-fire window.
func (o *Orchestrator) awaitTimer(code string, g *game, generation int, timer clock.Timer, cancel <-chan struct{}) {
	select {
	case <-timer.C():
	case <-cancel:
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if generation != g.generation {
		return
	}

	o.advanceLocked(g.state, o.clock.Now())
	o.afterTransitionLocked(code, g)
}
