package quiz

import (
	"sort"
	"time"

	"github.com/partyquiz/server/internal/apierr"
	"github.com/partyquiz/server/internal/content"
)

const promptsPerRound = itemsPerRound

// StartRankingRound begins a RankingStars round: no category selection,
// straight into the first prompt.
func StartRankingRound(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	s.Ranking = &RankingRoundState{
		Votes: make(map[string]*AnswerRecord),
	}
	beginRankingPrompt(s, store, durations, now)
}

func beginRankingPrompt(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	prompt, ok := store.RandomRankingPrompt(s.Locale, s.UsedPrompts)
	if !ok {
		endRankingRound(s, durations, now)
		return
	}

	s.UsedPrompts.Insert(prompt.ID)
	s.Ranking.CurrentPrompt = &prompt
	s.Ranking.Votes = seedAnswers(s)
	s.resetActiveEffects()

	s.Phase = PhaseRankingPrompt
	s.PhaseEndsAt = now.Add(durations.RankingPrompt)
}

// BeginRankingVoting moves from the timed prompt display into
// RankingVoting, where votes are accepted.
func BeginRankingVoting(s *QuizGameState, durations Durations, now time.Time) {
	if s.Phase != PhaseRankingPrompt {
		return
	}
	s.Phase = PhaseRankingVoting
	s.PhaseEndsAt = now.Add(durations.RankingVoting)
}

// SubmitRankingVote records voterID's vote for votedForID, who must differ
// from the voter and exist in the scoreboard.
func SubmitRankingVote(s *QuizGameState, voterID, votedForID string, now time.Time) error {
	if s.Phase != PhaseRankingVoting || s.Ranking == nil {
		return notAcceptingErr()
	}
	rec, inGame := s.Ranking.Votes[voterID]
	if !inGame {
		return notInGameErr()
	}
	if eff, noped := s.ActiveEffects[voterID]; noped && eff.IsNoped {
		return nopedErr()
	}
	if votedForID == voterID {
		return invalidStateErr("cannot vote for yourself")
	}
	if _, exists := s.Scoreboard[votedForID]; !exists {
		return apierr.New(apierr.InvalidState, "voted-for player is not in this game")
	}
	if rec != nil && !s.canChangeAnswer(voterID) {
		return nil
	}
	if now.After(s.personalDeadline(voterID)) {
		return invalidStateErr("voting window has closed")
	}

	s.Ranking.Votes[voterID] = &AnswerRecord{Value: votedForID, SubmittedAt: now}
	return nil
}

const (
	rankingStarPoints        = 100
	rankingCorrectVotePoints = 40
)

// RevealRanking scores the just-closed prompt: whichever player(s) got the
// most votes (ties share the win) earn star points; voters who picked a
// winner earn correct-vote points. Both tiers apply the usual catch-up
// bonus.
func RevealRanking(s *QuizGameState, durations Durations, now time.Time) {
	if s.Ranking == nil {
		return
	}

	counts := make(map[string]int)
	for _, rec := range s.Ranking.Votes {
		if rec != nil {
			counts[rec.Value]++
		}
	}

	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}

	winners := make(map[string]bool)
	if max > 0 {
		for target, c := range counts {
			if c == max {
				winners[target] = true
			}
		}
	}

	median := s.medianScore()

	for id, p := range s.Scoreboard {
		p.LastAnsweredCorrectly = false
		p.LastSelectedOption = ""
		p.LastPointsEarned = 0
		p.LastSpeedBonus = false
		p.LastRankingStar = false
		p.LastRankingVotes = counts[id]
		if rec, ok := s.Ranking.Votes[id]; ok && rec != nil {
			p.LastSelectedOption = rec.Value
		}
	}

	award := func(id string, points int) {
		p, ok := s.Scoreboard[id]
		if !ok {
			return
		}
		earned := points
		if p.Score <= median {
			earned += catchUpBonus
		}
		p.Score += earned
		p.LastPointsEarned += earned
		p.LastAnsweredCorrectly = true
	}

	for winner := range winners {
		award(winner, rankingStarPoints)
		if p, ok := s.Scoreboard[winner]; ok {
			p.LastRankingStar = true
		}
	}
	for voter, rec := range s.Ranking.Votes {
		if rec != nil && winners[rec.Value] {
			award(voter, rankingCorrectVotePoints)
		}
	}
	s.recomputePositions()
	s.Ranking.PromptsAsked++

	s.Phase = PhaseRankingReveal
	s.PhaseEndsAt = now.Add(durations.RankingReveal)
}

// WinnerPlayerIDs returns the sorted set of players tied for the most
// votes in the just-revealed prompt; empty if no votes were cast.
func (s *QuizGameState) WinnerPlayerIDs() []string {
	if s.Ranking == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, rec := range s.Ranking.Votes {
		if rec != nil {
			counts[rec.Value]++
		}
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return nil
	}
	var winners []string
	for target, c := range counts {
		if c == max {
			winners = append(winners, target)
		}
	}
	sort.Strings(winners)
	return winners
}

// HasMoreRankingPrompts reports whether the round has asked fewer than
// promptsPerRound prompts.
func (s *QuizGameState) HasMoreRankingPrompts() bool {
	return s.Ranking != nil && s.Ranking.PromptsAsked < promptsPerRound
}

// AfterRankingReveal is called when the Reveal timer fires for a ranking
// prompt: either the next prompt begins, or the round ends at Scoreboard.
func AfterRankingReveal(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	if s.HasMoreRankingPrompts() {
		beginRankingPrompt(s, store, durations, now)
		return
	}
	endRankingRound(s, durations, now)
}

func endRankingRound(s *QuizGameState, durations Durations, now time.Time) {
	BeginScoreboard(s, durations, now)
}
