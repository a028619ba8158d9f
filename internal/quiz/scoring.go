package quiz

import "sort"

// speedRankPoints is the ranked point table: 1st 100, 2nd 90, 3rd 85, any
// other correct answer 80, incorrect or unanswered 0.
var speedRankPoints = []int{100, 90, 85}

const (
	otherCorrectPoints = 80
	catchUpBonus       = 20
	// tieWindow groups submissions within 1ms of each other into the same
	// speed rank.
	tieWindowMillis = 1
)

func medianOf(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	// Deliberately uses the middle index after sort without averaging the
	// two central values on an even-length slice - a slight bias toward
	// the higher of the two medians, left unfixed per design note.
	return sorted[len(sorted)/2]
}

// sortByScoreDescThenName orders ids by (score desc, displayName asc), the
// scoreboard's total order. names maps
// playerId -> displayName; a missing entry falls back to the id itself so
// the comparator stays total even for a player names doesn't cover.
func sortByScoreDescThenName(ids []string, scoreboard map[string]*PlayerScore, names map[string]string) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := scoreboard[ids[i]], scoreboard[ids[j]]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		nameA, nameB := displayNameOrID(names, ids[i]), displayNameOrID(names, ids[j])
		if nameA != nameB {
			return nameA < nameB
		}
		return ids[i] < ids[j]
	})
}

// rankedCorrectAnswers orders the playerIDs who answered correctly by
// submission instant and assigns tied-within-1ms groups the same rank,
// skipping the next rank by the group size.
func rankedCorrectAnswers(correct []string, answers map[string]*AnswerRecord) [][]string {
	sort.Slice(correct, func(i, j int) bool {
		return answers[correct[i]].SubmittedAt.Before(answers[correct[j]].SubmittedAt)
	})

	var groups [][]string
	for _, id := range correct {
		if len(groups) == 0 {
			groups = append(groups, []string{id})
			continue
		}
		last := groups[len(groups)-1]
		delta := answers[id].SubmittedAt.Sub(answers[last[0]].SubmittedAt)
		if delta.Milliseconds() < tieWindowMillis {
			groups[len(groups)-1] = append(last, id)
		} else {
			groups = append(groups, []string{id})
		}
	}
	return groups
}

func pointsForRank(rank int) int {
	if rank < len(speedRankPoints) {
		return speedRankPoints[rank]
	}
	return otherCorrectPoints
}

// applySpeedScoring awards speed-ranked points (plus the catch-up bonus) to
// every correct answerer and zero to everyone else, then updates the
// scoreboard and recomputes positions.
func (s *QuizGameState) applySpeedScoring(answers map[string]*AnswerRecord, isCorrect func(value string) bool) {
	median := s.medianScore()

	for id, p := range s.Scoreboard {
		p.LastAnsweredCorrectly = false
		p.LastSelectedOption = ""
		p.LastPointsEarned = 0
		p.LastSpeedBonus = false
		if rec, ok := answers[id]; ok && rec != nil {
			p.LastSelectedOption = rec.Value
		}
	}

	var correct []string
	for id, rec := range answers {
		if rec != nil && isCorrect(rec.Value) {
			correct = append(correct, id)
		}
	}

	groups := rankedCorrectAnswers(correct, answers)
	rank := 0
	for _, group := range groups {
		points := pointsForRank(rank)
		for _, id := range group {
			p, ok := s.Scoreboard[id]
			if !ok {
				continue
			}
			earned := points
			if p.Score <= median {
				earned += catchUpBonus
			}
			p.Score += earned
			p.LastAnsweredCorrectly = true
			p.LastPointsEarned = earned
			p.LastSpeedBonus = rank == 0
		}
		rank += len(group)
	}
	s.recomputePositions()
}
