package quiz

import (
	"math/rand"
	"sort"
	"time"

	"github.com/partyquiz/server/internal/content"
)

// CategoryCount is how many categories the engine offers the round leader.
const CategoryCount = 3

// RoundNumber is 1-based: index 0 of PlannedRounds is round 1.
func (s *QuizGameState) RoundNumber() int {
	return s.RoundIndex + 1
}

// HasMorePlannedRounds reports whether the planned-round sequence has any
// round after the current one.
func (s *QuizGameState) HasMorePlannedRounds() bool {
	return s.RoundIndex+1 < len(s.PlannedRounds)
}

// advanceRoundIndex moves to the next planned round and clears the
// per-round-type bookkeeping for whichever type comes next.
func (s *QuizGameState) advanceRoundIndex() {
	s.RoundIndex++
	s.CurrentRound = s.PlannedRounds[s.RoundIndex]
	s.Question = nil
	s.Dictionary = nil
	s.Ranking = nil
}

// selectRoundLeader picks the player with the lowest score, breaking ties
// by scoreboard order (score desc, displayName asc), and never repeats the
// immediately previous leader unless doing so would exclude every
// candidate. The choice is recorded in LeaderHistory.
func (s *QuizGameState) selectRoundLeader() string {
	ids := make([]string, 0, len(s.Scoreboard))
	for id, p := range s.Scoreboard {
		if p.Connected {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}

	sort.Slice(ids, func(i, j int) bool {
		a, b := s.Scoreboard[ids[i]], s.Scoreboard[ids[j]]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		nameA, nameB := displayNameOrID(s.Names, ids[i]), displayNameOrID(s.Names, ids[j])
		if nameA != nameB {
			return nameA < nameB
		}
		return ids[i] < ids[j]
	})

	var previous string
	if len(s.LeaderHistory) > 0 {
		previous = s.LeaderHistory[len(s.LeaderHistory)-1]
	}

	leader := ids[0]
	if leader == previous && len(ids) > 1 {
		leader = ids[1]
	}

	s.LeaderHistory = append(s.LeaderHistory, leader)
	return leader
}

// StartNextPlannedRound dispatches to the starter for whichever round type
// comes next, or reports that the game is finished.
func StartNextPlannedRound(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	if !s.HasMorePlannedRounds() {
		FinishGame(s, now)
		return
	}

	s.advanceRoundIndex()

	switch s.CurrentRound {
	case RoundCategoryQuiz:
		StartCategoryQuizRound(s, store, durations, now)
	case RoundRankingStars:
		StartRankingRound(s, store, durations, now)
	case RoundDictionary:
		StartDictionaryRound(s, store, durations, now)
	}
}

// FinishGame ends the game: phase=Finished, no further scheduled
// transitions expected from the engine's point of view.
func FinishGame(s *QuizGameState, now time.Time) {
	s.Phase = PhaseFinished
	s.PhaseEndsAt = time.Time{}
}

// BeginScoreboard shows the end-of-round scoreboard. Scoreboard only ever
// appears here, at the boundary between rounds, never between questions
// within a round.
func BeginScoreboard(s *QuizGameState, durations Durations, now time.Time) {
	s.Phase = PhaseScoreboard
	s.PhaseEndsAt = now.Add(durations.Scoreboard)
}

// RoundComplete ends the current round's scoreboard display and advances
// to the next planned round (or finishes the game).
func RoundComplete(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	StartNextPlannedRound(s, store, durations, now)
}

// newRNG returns a rand.Rand seeded from now, used only to shuffle a
// dictionary word's definition options - not for content draws, which go
// through the injected content.Store.
func newRNG(now time.Time) *rand.Rand {
	return rand.New(rand.NewSource(now.UnixNano()))
}
