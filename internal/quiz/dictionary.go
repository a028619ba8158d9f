package quiz

import (
	"math/rand"
	"time"

	"github.com/partyquiz/server/internal/content"
)

// wordsPerRound is fixed at 3, and DictionaryGame is always the last
// planned round.
const wordsPerRound = itemsPerRound

// StartDictionaryRound begins a DictionaryGame round: no category
// selection, straight into the first word.
func StartDictionaryRound(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	s.Dictionary = &DictionaryRoundState{
		Answers: make(map[string]*AnswerRecord),
	}
	beginDictionaryWord(s, store, durations, now)
}

func beginDictionaryWord(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	draw, ok := store.RandomDictionaryWord(s.Locale, s.UsedWords)
	if !ok {
		endDictionaryRound(s, durations, now)
		return
	}

	s.UsedWords.Insert(draw.Word)
	s.Dictionary.CurrentWord = &draw
	s.Dictionary.Options = shuffleDefinitions(draw, newRNG(now))
	s.Dictionary.Answers = seedAnswers(s)
	s.resetActiveEffects()

	s.Phase = PhaseDictionaryWord
	s.PhaseEndsAt = now.Add(durations.DictionaryWord)
}

// shuffleDefinitions orders the correct definition among its 3 distractors;
// CorrectIndex recovers which index is correct.
func shuffleDefinitions(draw content.DictionaryDraw, rng *rand.Rand) []string {
	options := append([]string{draw.CorrectDefinition}, draw.Distractors...)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}

// CorrectIndex returns the index of draw.CorrectDefinition within options.
func CorrectIndex(draw *content.DictionaryDraw, options []string) int {
	for i, opt := range options {
		if opt == draw.CorrectDefinition {
			return i
		}
	}
	return -1
}

// BeginDictionaryAnswering moves from the timed word display into
// DictionaryAnswering, where index submissions are accepted.
func BeginDictionaryAnswering(s *QuizGameState, durations Durations, now time.Time) {
	if s.Phase != PhaseDictionaryWord {
		return
	}
	s.Phase = PhaseDictionaryAnswering
	s.PhaseEndsAt = now.Add(durations.DictionaryAnswer)
}

// SubmitDictionaryAnswer records playerID's stringified option index
// (0..3) for the current word.
func SubmitDictionaryAnswer(s *QuizGameState, playerID, index string, now time.Time) error {
	if s.Phase != PhaseDictionaryAnswering || s.Dictionary == nil || s.Dictionary.CurrentWord == nil {
		return notAcceptingErr()
	}
	rec, inGame := s.Dictionary.Answers[playerID]
	if !inGame {
		return notInGameErr()
	}
	if eff, noped := s.ActiveEffects[playerID]; noped && eff.IsNoped {
		return nopedErr()
	}
	if !validDictionaryIndex(index, len(s.Dictionary.Options)) {
		return invalidStateErr("unknown option index")
	}
	if rec != nil && !s.canChangeAnswer(playerID) {
		return nil
	}
	if now.After(s.personalDeadline(playerID)) {
		return invalidStateErr("answer window has closed")
	}

	s.Dictionary.Answers[playerID] = &AnswerRecord{Value: index, SubmittedAt: now}
	return nil
}

func validDictionaryIndex(index string, n int) bool {
	if len(index) != 1 {
		return false
	}
	d := index[0] - '0'
	return int(d) < n && index[0] >= '0' && index[0] <= '9'
}

const (
	dictionaryBasePoints = 70
	dictionarySpeedBonus = 30
)

// RevealDictionaryWord scores the just-closed word: every correct
// answerer earns the fixed base (plus catch-up if applicable); the single
// fastest correct answerer also earns the speed bonus.
func RevealDictionaryWord(s *QuizGameState, durations Durations, now time.Time) {
	if s.Dictionary == nil || s.Dictionary.CurrentWord == nil {
		return
	}
	correctIndex := CorrectIndex(s.Dictionary.CurrentWord, s.Dictionary.Options)
	correctStr := indexToString(correctIndex)

	median := s.medianScore()

	for id, p := range s.Scoreboard {
		p.LastAnsweredCorrectly = false
		p.LastSelectedOption = ""
		p.LastPointsEarned = 0
		p.LastSpeedBonus = false
		if rec, ok := s.Dictionary.Answers[id]; ok && rec != nil {
			p.LastSelectedOption = rec.Value
		}
	}

	var correct []string
	for id, rec := range s.Dictionary.Answers {
		if rec != nil && rec.Value == correctStr {
			correct = append(correct, id)
		}
	}
	groups := rankedCorrectAnswers(correct, s.Dictionary.Answers)

	for gi, group := range groups {
		for _, id := range group {
			p, ok := s.Scoreboard[id]
			if !ok {
				continue
			}
			earned := dictionaryBasePoints
			speedBonus := gi == 0 && len(group) == 1
			if speedBonus {
				earned += dictionarySpeedBonus
			}
			if p.Score <= median {
				earned += catchUpBonus
			}
			p.Score += earned
			p.LastAnsweredCorrectly = true
			p.LastPointsEarned = earned
			p.LastSpeedBonus = speedBonus
		}
	}
	s.recomputePositions()
	s.Dictionary.WordsAsked++

	s.Phase = PhaseReveal
	s.PhaseEndsAt = now.Add(durations.Reveal)
}

func indexToString(i int) string {
	if i < 0 {
		return ""
	}
	return string(rune('0' + i))
}

// HasMoreDictionaryWords reports whether the round has asked fewer than
// wordsPerRound words.
func (s *QuizGameState) HasMoreDictionaryWords() bool {
	return s.Dictionary != nil && s.Dictionary.WordsAsked < wordsPerRound
}

// AfterDictionaryReveal is called when the Reveal timer fires for a
// dictionary word: either the next word begins, or the round (and, since
// DictionaryGame is always last, the game) ends at Scoreboard.
func AfterDictionaryReveal(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	if s.HasMoreDictionaryWords() {
		beginDictionaryWord(s, store, durations, now)
		return
	}
	endDictionaryRound(s, durations, now)
}

func endDictionaryRound(s *QuizGameState, durations Durations, now time.Time) {
	BeginScoreboard(s, durations, now)
}
